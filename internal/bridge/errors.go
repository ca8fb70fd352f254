// Package bridge turns tenant-scoped operation requests into authenticated
// wire calls against the provider's REST and SOAP APIs. It owns transient
// retry, error classification, transparent auth-refresh retry, and bounded
// SOAP pagination. Everything above it only forwards or wraps what it
// produces; raw transport errors never escape this package.
package bridge

import (
	"errors"
	"fmt"
	"time"
)

// Classification is the closed taxonomy of bridge failures. Every error
// leaving the bridge carries exactly one of these.
type Classification string

const (
	ClassBadRequest           Classification = "bad-request"
	ClassAuthExpired          Classification = "auth-expired"
	ClassForbidden            Classification = "forbidden"
	ClassRateLimited          Classification = "rate-limited"
	ClassServerError          Classification = "server-error"
	ClassSOAPOperationFailure Classification = "soap-operation-failure"
	ClassPaginationExceeded   Classification = "pagination-exceeded"
)

// retryable reports whether the transient retry policy may reattempt a
// failure with this classification. Auth expiry is handled by the
// dispatchers' own single-shot refresh, never by the transient policy.
func (c Classification) retryable() bool {
	return c == ClassRateLimited || c == ClassServerError
}

// Error is a classified bridge failure. Operation is the request path with
// any query string stripped (or the SOAP action), StatusMessage is a
// truncated human-readable message extracted from the response body.
type Error struct {
	Class         Classification
	Operation     string
	Status        int
	StatusMessage string

	// RetryAfter carries a provider-supplied retry hint, set only by the
	// transport when the response included a usable Retry-After header.
	RetryAfter *time.Duration

	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Class, e.Operation)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.StatusMessage != "" {
		msg += ": " + e.StatusMessage
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Context returns the diagnostic fields exposed to callers alongside the
// classification code.
func (e *Error) Context() map[string]any {
	return map[string]any{
		"operation":     e.Operation,
		"status":        e.Status,
		"statusMessage": e.StatusMessage,
	}
}

// ClassOf returns the classification carried by err, or "" if err is not a
// bridge error.
func ClassOf(err error) Classification {
	var be *Error
	if errors.As(err, &be) {
		return be.Class
	}
	return ""
}

// IsRetryable reports whether the transient retry policy may reattempt err.
func IsRetryable(err error) bool {
	return ClassOf(err).retryable()
}

// IsAuthExpired checks if the error is a classified auth expiry.
func IsAuthExpired(err error) bool {
	return ClassOf(err) == ClassAuthExpired
}

// IsRateLimited checks if the error is a classified rate limit.
func IsRateLimited(err error) bool {
	return ClassOf(err) == ClassRateLimited
}

// IsPaginationExceeded checks if the error is a pagination ceiling failure.
func IsPaginationExceeded(err error) bool {
	return ClassOf(err) == ClassPaginationExceeded
}

// retryAfterHint extracts the provider retry hint from err, if any.
func retryAfterHint(err error) (time.Duration, bool) {
	var be *Error
	if errors.As(err, &be) && be.RetryAfter != nil {
		return *be.RetryAfter, true
	}
	return 0, false
}
