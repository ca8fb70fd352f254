package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Input length limits to prevent resource exhaustion
const (
	MaxNameLength        = 200     // provider asset name limit
	MaxExternalKeyLength = 36      // data extension customer keys are GUID-sized
	MaxQueryTextLength   = 100000  // 100KB of SQL
	MaxJSONPayload       = 1048576 // 1MB for JSON payloads
	MaxSubdomainLength   = 63      // DNS label limit
)

// ValidateSubdomain validates a tenant subdomain. The subdomain becomes the
// leading DNS label of every endpoint host, so it must be a valid label.
func ValidateSubdomain(subdomain string) error {
	if subdomain == "" {
		return fmt.Errorf("subdomain cannot be empty")
	}
	if len(subdomain) > MaxSubdomainLength {
		return fmt.Errorf("subdomain exceeds maximum length of %d characters (got %d)", MaxSubdomainLength, len(subdomain))
	}
	for i, r := range subdomain {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			continue
		}
		if r == '-' && i > 0 && i < len(subdomain)-1 {
			continue
		}
		return fmt.Errorf("invalid subdomain: character %q not allowed", r)
	}
	return nil
}

// ValidateAssetName validates a query or data extension name length.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	length := utf8.RuneCountInString(name)
	if length > MaxNameLength {
		return fmt.Errorf("name exceeds maximum length of %d characters (got %d)", MaxNameLength, length)
	}
	return nil
}

// ValidateExternalKey validates a data extension external key.
// Empty keys are allowed; lookups then fall back to name resolution.
func ValidateExternalKey(key string) error {
	if key == "" {
		return nil
	}
	if len(key) > MaxExternalKeyLength {
		return fmt.Errorf("external key exceeds maximum length of %d characters (got %d)", MaxExternalKeyLength, len(key))
	}
	if strings.ContainsAny(key, "<>&\"'") {
		return fmt.Errorf("external key contains characters not allowed in SOAP payloads")
	}
	return nil
}

// ValidateQueryText validates SQL query text size.
func ValidateQueryText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("query text cannot be empty")
	}
	if len(text) > MaxQueryTextLength {
		return fmt.Errorf("query text exceeds maximum size of %d bytes (got %d)", MaxQueryTextLength, len(text))
	}
	return nil
}

// ValidateJSONPayload validates JSON payload size
func ValidateJSONPayload(payload string) error {
	if payload == "" {
		return fmt.Errorf("JSON payload cannot be empty")
	}
	if len(payload) > MaxJSONPayload {
		return fmt.Errorf("JSON payload exceeds maximum size of %d bytes (got %d)", MaxJSONPayload, len(payload))
	}
	return nil
}

// ValidateBusinessUnit validates a business unit MID. Empty is allowed;
// calls then run against the account's default business unit.
func ValidateBusinessUnit(mid string) error {
	if mid == "" {
		return nil
	}
	_, err := ParsePositiveInt(mid, "business unit")
	return err
}

// ParsePositiveInt parses a string as a positive integer ID.
// Returns error if the value is not a positive integer or exceeds int64 range.
func ParsePositiveInt(s string, fieldName string) (int64, error) {
	s = strings.TrimSpace(s)
	id64, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", fieldName, err)
	}
	if id64 <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", fieldName)
	}
	return id64, nil
}
