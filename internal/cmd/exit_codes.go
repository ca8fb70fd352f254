package cmd

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/spf13/pflag"

	"github.com/queryforge/queryforge-cli/internal/bridge"
	"github.com/queryforge/queryforge-cli/internal/config"
)

// Exit codes line up with the error taxonomy so scripts can branch on
// the failure class without parsing stderr.
const (
	exitOK          = 0
	exitGeneric     = 1
	exitUsage       = 2
	exitAuth        = 3
	exitForbidden   = 5
	exitRateLimited = 6
	exitServer      = 7
	exitNetwork     = 8
)

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if handled, ok := err.(*handledError); ok {
		if handled.exitCode != 0 {
			return handled.exitCode
		}
		err = handled.err
	}

	switch {
	case exitCodeFromClass(err) != 0:
		return exitCodeFromClass(err)
	case errors.Is(err, config.ErrNotConfigured):
		return exitAuth
	case looksLikeUsageError(err):
		return exitUsage
	case looksLikeNetworkError(err):
		return exitNetwork
	}
	return exitGeneric
}

func exitCodeFromClass(err error) int {
	switch bridge.ClassOf(err) {
	case bridge.ClassAuthExpired:
		return exitAuth
	case bridge.ClassForbidden:
		return exitForbidden
	case bridge.ClassRateLimited:
		return exitRateLimited
	case bridge.ClassServerError, bridge.ClassSOAPOperationFailure, bridge.ClassPaginationExceeded:
		return exitServer
	case bridge.ClassBadRequest:
		return exitUsage
	default:
		return 0
	}
}

// looksLikeNetworkError catches transport failures that never made it far
// enough to earn a classification: DNS, TLS, refused connections, timeouts.
func looksLikeNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	var opErr *net.OpError
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &opErr) || errors.As(err, &urlErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"no such host",
		"tls",
		"certificate",
		"i/o timeout",
		"timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// looksLikeUsageError sniffs Cobra and pflag error text; neither library
// exposes a typed error for bad invocations.
func looksLikeUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"flag provided but not defined",
		"requires at least",
		"requires exactly",
		"invalid argument",
		"invalid value",
		"must be",
		"is required",
		"missing",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
