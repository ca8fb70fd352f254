package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/queryforge/queryforge-cli/internal/bridge"
	"github.com/queryforge/queryforge-cli/internal/config"
)

// HandleError processes an error and returns a user-friendly message with suggestions
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var msg strings.Builder

	var bridgeErr *bridge.Error
	switch {
	case errors.Is(err, config.ErrNotConfigured):
		msg.WriteString("Not authenticated.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: queryforge auth login\n")
		msg.WriteString("  - Or export QUERYFORGE_SUBDOMAIN, QUERYFORGE_CLIENT_ID, and QUERYFORGE_CLIENT_SECRET\n")

	case errors.As(err, &bridgeErr):
		msg.WriteString(describeBridgeError(bridgeErr))

	case strings.Contains(err.Error(), "connection refused"):
		msg.WriteString("Connection refused.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check your network connection\n")
		msg.WriteString("  - Verify the tenant subdomain: queryforge auth status\n")

	case strings.Contains(err.Error(), "no such host"):
		msg.WriteString("DNS resolution failed.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check the tenant subdomain spelling\n")
		msg.WriteString("  - Verify your DNS settings\n")

	default:
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
	}

	return msg.String()
}

func describeBridgeError(err *bridge.Error) string {
	var msg strings.Builder

	switch err.Class {
	case bridge.ClassAuthExpired:
		msg.WriteString("Authentication failed.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: queryforge auth login\n")
		msg.WriteString("  - Verify the client ID and secret are still valid\n")
		msg.WriteString("  - Check that the API integration has not been revoked\n")

	case bridge.ClassForbidden:
		msg.WriteString("Permission denied.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check the API integration's permission scopes\n")
		msg.WriteString("  - Verify the business unit MID with --business-unit\n")

	case bridge.ClassRateLimited:
		msg.WriteString("Rate limit exceeded.\n\n")
		msg.WriteString("Suggestions:\n")
		if err.RetryAfter != nil {
			fmt.Fprintf(&msg, "  - The provider asked to retry after %s\n", err.RetryAfter)
		}
		msg.WriteString("  - Wait a few seconds and retry\n")
		msg.WriteString("  - Reduce request frequency\n")

	case bridge.ClassPaginationExceeded:
		msg.WriteString("Result set too large to page through.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Narrow the retrieve with a filter\n")
		msg.WriteString("  - Export large data sets through the provider UI instead\n")

	case bridge.ClassSOAPOperationFailure:
		fmt.Fprintf(&msg, "Operation failed: %s\n\n", err.StatusMessage)
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check the object name and property spelling\n")
		msg.WriteString("  - Verify the data extension exists: queryforge de list\n")

	default:
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
	}

	if err.Operation != "" && err.Class != bridge.ClassSOAPOperationFailure {
		fmt.Fprintf(&msg, "\nOperation: %s\n", err.Operation)
	}
	return msg.String()
}
