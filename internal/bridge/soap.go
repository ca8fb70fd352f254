package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/queryforge/queryforge-cli/internal/soapenv"
)

// soapServicePath is the provider's single legacy SOAP endpoint.
const soapServicePath = "/Service.asmx"

// SOAPResult is a parsed SOAP response. Fault is non-nil when the provider
// answered with a non-auth business fault; that is data for the caller, not
// a bridge error.
type SOAPResult struct {
	Fault *soapenv.Fault
	Raw   []byte
}

// SOAP dispatches calls against the provider's legacy XML API. Auth faults
// get one transparent envelope rebuild with a forced token refresh; every
// other fault is handed back to the caller. The dispatcher itself never
// retries transport failures — callers wanting transient retry wrap the
// call in Retry, matching the REST path's layering.
type SOAP struct {
	tokens    TokenProvider
	transport *Transport
	domain    string
}

// NewSOAP wires a SOAP dispatcher for the given provider API domain.
func NewSOAP(tokens TokenProvider, transport *Transport, domain string) *SOAP {
	return &SOAP{
		tokens:    tokens,
		transport: transport,
		domain:    domain,
	}
}

// Request posts reqBody (an XML-marshalable operation struct) as a SOAP
// envelope for action and decodes the response body into result. The access
// token is embedded in the envelope header, so each attempt rebuilds the
// envelope from scratch.
func (d *SOAP) Request(ctx context.Context, id Identity, action string, reqBody, result any) (*SOAPResult, error) {
	return d.RequestTimeout(ctx, id, action, reqBody, result, TimeoutDefault)
}

// RequestTimeout is Request with an explicit timeout class.
func (d *SOAP) RequestTimeout(ctx context.Context, id Identity, action string, reqBody, result any, timeout time.Duration) (*SOAPResult, error) {
	res, err := d.once(ctx, id, action, reqBody, result, timeout, false)
	if err != nil {
		return nil, err
	}
	if !soapenv.IsAuthFault(res.Raw, res.Fault) {
		return res, nil
	}

	slog.Debug("soap auth fault, forcing refresh", "action", action, "tenant", id.TenantID)
	d.tokens.InvalidateToken(ctx, id)
	res, err = d.once(ctx, id, action, reqBody, result, timeout, true)
	if err != nil {
		return nil, err
	}
	if soapenv.IsAuthFault(res.Raw, res.Fault) {
		classified := &Error{Class: ClassAuthExpired, Operation: action}
		if res.Fault != nil {
			classified.StatusMessage = res.Fault.String
		}
		return nil, classified
	}
	return res, nil
}

// once builds the envelope with a current token, posts it, and parses the
// response. Transport failures come back classified; SOAP faults do not —
// fault handling belongs to the caller above.
func (d *SOAP) once(ctx context.Context, id Identity, action string, reqBody, result any, timeout time.Duration, forceRefresh bool) (*SOAPResult, error) {
	creds, err := d.tokens.RefreshToken(ctx, id, forceRefresh)
	if err != nil {
		return nil, &Error{
			Class:     ClassAuthExpired,
			Operation: action,
			Err:       fmt.Errorf("refreshing token: %w", err),
		}
	}

	envelope, err := soapenv.New(creds.AccessToken, reqBody).Marshal()
	if err != nil {
		return nil, &Error{Class: ClassBadRequest, Operation: action, Err: err}
	}

	headers := map[string]string{
		"Content-Type": "text/xml",
		"SOAPAction":   action,
	}
	reqURL := fmt.Sprintf("https://%s.soap.%s%s", creds.Host, d.domain, soapServicePath)
	raw, _, err := d.transport.Do(ctx, http.MethodPost, reqURL, headers, envelope, timeout)
	if err != nil {
		return nil, err
	}

	fault, err := soapenv.Unmarshal(raw, result)
	if err != nil {
		// A body the XML decoder rejects outright may still be a mangled
		// auth fault; the raw-text check above gets its chance before we
		// give up.
		if soapenv.IsAuthFault(raw, nil) {
			return &SOAPResult{Raw: raw}, nil
		}
		return nil, &Error{
			Class:     ClassServerError,
			Operation: action,
			Err:       err,
		}
	}
	return &SOAPResult{Fault: fault, Raw: raw}, nil
}
