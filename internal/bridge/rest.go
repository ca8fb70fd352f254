package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// REST dispatches JSON API calls. Each call fetches a token, builds the
// tenant base URL, and executes through the transport under the transient
// retry policy. A 401 triggers one transparent invalidate-and-force-refresh
// retry before it is allowed to surface.
type REST struct {
	tokens    TokenProvider
	transport *Transport
	domain    string
	retry     RetryConfig
}

// NewREST wires a REST dispatcher. domain is the provider API domain the
// tenant host is prefixed onto (e.g. "{host}.rest." + domain).
func NewREST(tokens TokenProvider, transport *Transport, domain string, retry RetryConfig) *REST {
	return &REST{
		tokens:    tokens,
		transport: transport,
		domain:    domain,
		retry:     retry,
	}
}

// Request executes op for the given identity and returns the raw response
// body. Failures are always classified; callers never see transport
// internals.
//
// The forced-refresh 401 retry runs inside the function handed to the
// transient policy, so a rate limit or 5xx hitting the refreshed attempt is
// still transient-retried. The refresh itself never loops: exactly one
// invalidation and one force-refresh per policy attempt, then auth-expired
// propagates.
func (d *REST) Request(ctx context.Context, id Identity, op Operation) ([]byte, error) {
	attempt := func() ([]byte, error) {
		body, err := d.once(ctx, id, op, false)
		if err == nil || !IsAuthExpired(err) {
			return body, err
		}

		slog.Debug("token rejected, forcing refresh", "operation", op.Path, "tenant", id.TenantID)
		d.tokens.InvalidateToken(ctx, id)
		return d.once(ctx, id, op, true)
	}
	return Retry(ctx, d.retry, op.Path, attempt)
}

// RequestJSON executes op and decodes the JSON response into result.
// A response that fails to decode never yields a partial result.
func (d *REST) RequestJSON(ctx context.Context, id Identity, op Operation, result any) error {
	body, err := d.Request(ctx, id, op)
	if err != nil {
		return err
	}
	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return &Error{
				Class:     ClassServerError,
				Operation: op.Path,
				Err:       fmt.Errorf("decoding response: %w", err),
			}
		}
	}
	return nil
}

// once performs a single authenticated attempt.
func (d *REST) once(ctx context.Context, id Identity, op Operation, forceRefresh bool) ([]byte, error) {
	creds, err := d.tokens.RefreshToken(ctx, id, forceRefresh)
	if err != nil {
		return nil, &Error{
			Class:     ClassAuthExpired,
			Operation: op.Path,
			Err:       fmt.Errorf("refreshing token: %w", err),
		}
	}

	headers := map[string]string{
		"Authorization": "Bearer " + creds.AccessToken,
		"Content-Type":  "application/json",
		"Accept":        "application/json",
	}
	for k, v := range op.Headers {
		headers[k] = v
	}

	reqURL := fmt.Sprintf("https://%s.rest.%s%s", creds.Host, d.domain, op.Path)
	body, _, err := d.transport.Do(ctx, op.Method, reqURL, headers, op.Body, op.Timeout)
	return body, err
}
