// Package cmd provides test utilities for the queryforge CLI commands.
//
// The main components are:
//
//   - routeHandler: a chainable HTTP handler for routing requests to mock responses
//   - setupTestEnv: credentials + mock server + transport rewiring with automatic cleanup
//   - captureStdout / captureStderr: output capture utilities
//   - jsonResponse: helper for creating JSON response handlers
//
// Commands build their provider hosts from the configured subdomain, so the
// mock transport rewrites every request's scheme and host to the test
// server. The token endpoint (POST /v2/token) is always mounted; tests add
// the REST/SOAP routes they need.
package cmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/99designs/keyring"

	"github.com/queryforge/queryforge-cli/internal/bridge"
	"github.com/queryforge/queryforge-cli/internal/config"
)

// withEmptyKeyring sets up an empty mock keyring for testing
func withEmptyKeyring(t *testing.T) {
	t.Helper()
	cleanup := config.SetOpenKeyring(func(cfg keyring.Config) (keyring.Keyring, error) {
		return keyring.NewArrayKeyring(nil), nil
	})
	t.Cleanup(cleanup)
}

// withPersistentKeyring sets up a mock keyring that keeps state across
// openings, so a save in one command is visible to the next.
func withPersistentKeyring(t *testing.T) {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	cleanup := config.SetOpenKeyring(func(cfg keyring.Config) (keyring.Keyring, error) {
		return ring, nil
	})
	t.Cleanup(cleanup)
}

// clearCredentialEnv blanks the credential env vars so a test sees only what
// it sets itself. The config loaders treat empty values as unset.
func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"QUERYFORGE_SUBDOMAIN",
		"QUERYFORGE_CLIENT_ID",
		"QUERYFORGE_CLIENT_SECRET",
		"QUERYFORGE_BUSINESS_UNIT",
		"QUERYFORGE_USER_ID",
		"QUERYFORGE_PROVIDER_DOMAIN",
		"QUERYFORGE_PROFILE",
		"QUERYFORGE_TOKEN_CACHE_REDIS",
	} {
		t.Setenv(key, "")
	}
}

// rewriteRoundTripper sends every request to the test server regardless of
// the provider host the dispatchers built.
type rewriteRoundTripper struct{ target *url.URL }

func (rt rewriteRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

// routeHandler routes requests by method and path to registered handlers.
type routeHandler struct {
	routes map[string]http.HandlerFunc
}

func newRouteHandler() *routeHandler {
	return &routeHandler{routes: make(map[string]http.HandlerFunc)}
}

// On registers a handler for a method and exact path. Chainable.
func (h *routeHandler) On(method, path string, handler http.HandlerFunc) *routeHandler {
	h.routes[method+" "+path] = handler
	return h
}

func (h *routeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if handler, ok := h.routes[r.Method+" "+r.URL.Path]; ok {
		handler(w, r)
		return
	}
	http.NotFound(w, r)
}

// jsonResponse creates an http.HandlerFunc that returns a JSON response with
// the given status and body.
func jsonResponse(statusCode int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(body))
	}
}

// tokenResponse is the canned auth endpoint reply mounted by setupTestEnv.
func tokenResponse(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"access_token":"test-token","expires_in":3600,"token_type":"Bearer"}`))
}

// setupTestEnv points credentials at a mock server and reroutes all provider
// traffic to it. The handler receives REST and SOAP requests; the token
// endpoint is mounted automatically unless the handler claims POST /v2/token
// itself.
func setupTestEnv(t *testing.T, handler *routeHandler) *httptest.Server {
	t.Helper()

	if handler == nil {
		handler = newRouteHandler()
	}
	if _, ok := handler.routes["POST /v2/token"]; !ok {
		handler.On("POST", "/v2/token", tokenResponse)
	}

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	target, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}
	transport := bridge.NewTransport()
	transport.HTTP.Transport = rewriteRoundTripper{target: target}

	origOverride := transportOverride
	transportOverride = transport
	t.Cleanup(func() { transportOverride = origOverride })

	withEmptyKeyring(t)
	clearCredentialEnv(t)
	t.Setenv("QUERYFORGE_SUBDOMAIN", "mc1234567")
	t.Setenv("QUERYFORGE_CLIENT_ID", "test-client-id")
	t.Setenv("QUERYFORGE_CLIENT_SECRET", "test-client-secret")
	t.Setenv("QUERYFORGE_OUTPUT", "text") // Ensure tests use text output by default
	t.Setenv("QUERYFORGE_NO_CACHE", "1")  // Keep metadata lookups off the real cache dir

	return server
}

// captureStdout executes a function and captures its stdout output.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// captureStderr executes a function and captures its stderr output.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	fn()

	_ = w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}
