package soapenv

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

// Fault is a SOAP 1.1 fault element.
type Fault struct {
	XMLName xml.Name `xml:"Fault"`

	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
	Actor  string `xml:"faultactor,omitempty"`
}

func (f *Fault) Error() string {
	return fmt.Sprintf("soap fault: %s (%s)", f.Code, f.String)
}

// The provider signals an expired or rejected token with a Security fault
// whose faultstring reads "Login Failed". Both markers are checked on the
// raw text first, since a malformed fault body may not parse.
var (
	authFaultStringRe = regexp.MustCompile(`(?is)<\s*faultstring[^>]*>[^<]*login failed[^<]*<`)
	authFaultCodeRe   = regexp.MustCompile(`(?is)<\s*faultcode[^>]*>[^<]*security[^<]*<`)
)

// IsAuthFault reports whether a SOAP response is the provider's
// token-rejection fault. The faultcode must contain "Security" AND the
// faultstring must contain "Login Failed" (both case-insensitive); either
// alone does not qualify, so ordinary Security faults and unrelated login
// messages are left to callers as business faults.
//
// The raw text is checked first; when that is inconclusive the parsed fault
// (if any) is checked with the same dual-match rule.
func IsAuthFault(raw []byte, fault *Fault) bool {
	if authFaultStringRe.Match(raw) && authFaultCodeRe.Match(raw) {
		return true
	}
	if fault == nil {
		return false
	}
	return strings.Contains(strings.ToLower(fault.Code), "security") &&
		strings.Contains(strings.ToLower(fault.String), "login failed")
}
