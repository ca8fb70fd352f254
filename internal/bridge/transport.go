package bridge

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxStatusMessageLen bounds the diagnostic message extracted from response
// bodies. Provider error pages can be arbitrarily large.
const maxStatusMessageLen = 500

// Transport executes single wire calls and translates every failure into a
// classified Error. It is the only place (together with the SOAP
// dispatcher's fault detection) allowed to mint classifications from
// transport-level signals.
type Transport struct {
	HTTP *http.Client

	// maxBody overrides the response byte cap when positive. Tests use it;
	// production transports keep the default.
	maxBody int64
}

func (t *Transport) bodyLimit() int64 {
	if t.maxBody > 0 {
		return t.maxBody
	}
	return maxResponseBytes
}

// NewTransport returns a Transport with a TLS1.2+ client. Per-call deadlines
// come from request contexts, not the client, so a single client serves all
// timeout classes.
func NewTransport() *Transport {
	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		baseTransport = &http.Transport{}
	}
	transport := baseTransport.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	} else {
		transport.TLSClientConfig = transport.TLSClientConfig.Clone()
	}
	transport.TLSClientConfig.MinVersion = tls.VersionTLS12

	return &Transport{
		HTTP: &http.Client{Transport: transport},
	}
}

// Do issues one HTTP request with the given timeout and returns the raw
// response body on 2xx. Any other outcome is a classified *Error carrying
// the query-stripped operation path and a truncated status message.
func (t *Transport) Do(ctx context.Context, method, reqURL string, headers map[string]string, body []byte, timeout time.Duration) ([]byte, http.Header, error) {
	operation := stripQuery(reqURL)
	if timeout <= 0 {
		timeout = TimeoutDefault
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, nil, &Error{Class: ClassBadRequest, Operation: operation, Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.HTTP.Do(req)
	if err != nil {
		// Connection failures and timeouts are transient from the caller's
		// point of view.
		slog.Debug("request failed", "method", method, "operation", operation, "error", err)
		return nil, nil, &Error{Class: ClassServerError, Operation: operation, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	limit := t.bodyLimit()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, nil, &Error{Class: ClassServerError, Operation: operation, Status: resp.StatusCode, Err: err}
	}
	if int64(len(respBody)) > limit {
		return nil, nil, &Error{
			Class:         ClassServerError,
			Operation:     operation,
			Status:        resp.StatusCode,
			StatusMessage: fmt.Sprintf("response exceeds %d byte limit", limit),
		}
	}

	slog.Debug("request complete",
		"method", method, "operation", operation,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, resp.Header, nil
	}

	classified := &Error{
		Class:         classify(resp.StatusCode),
		Operation:     operation,
		Status:        resp.StatusCode,
		StatusMessage: statusMessage(respBody),
	}
	if d, ok := retryAfterDuration(resp.Header); ok {
		classified.RetryAfter = &d
	}
	return nil, resp.Header, classified
}

// classify maps an HTTP status to the closed taxonomy.
func classify(status int) Classification {
	switch {
	case status == http.StatusUnauthorized:
		return ClassAuthExpired
	case status == http.StatusForbidden:
		return ClassForbidden
	case status == http.StatusTooManyRequests:
		return ClassRateLimited
	case status >= 500:
		return ClassServerError
	default:
		return ClassBadRequest
	}
}

// stripQuery drops the query string from a request URL so tokens and filter
// values never end up in logs or error context.
func stripQuery(reqURL string) string {
	u, err := url.Parse(reqURL)
	if err != nil {
		if i := strings.IndexByte(reqURL, '?'); i >= 0 {
			return reqURL[:i]
		}
		return reqURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// statusMessage extracts a human-readable message from an error response
// body, preferring the provider's JSON error fields, truncated to a sane
// length.
func statusMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var errResp struct {
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	msg := ""
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch {
		case errResp.Message != "":
			msg = errResp.Message
		case errResp.Error != "":
			msg = errResp.Error
		case errResp.ErrorDescription != "":
			msg = errResp.ErrorDescription
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return truncate(msg, maxStatusMessageLen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
