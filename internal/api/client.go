// Package api exposes typed services over the provider's REST and SOAP
// surfaces: query definitions, data extensions, and row retrieval.
package api

import (
	"fmt"

	"github.com/queryforge/queryforge-cli/internal/auth"
	"github.com/queryforge/queryforge-cli/internal/bridge"
	"github.com/queryforge/queryforge-cli/internal/cache"
	"github.com/queryforge/queryforge-cli/internal/config"
)

// Options configures a Client.
type Options struct {
	Subdomain      string
	Domain         string // provider API domain; defaults to config.DefaultProviderDomain
	BusinessUnitID string
	UserID         string
	Secrets        auth.SecretSource
	SharedCache    auth.TokenCache    // optional cross-process token cache
	Retry          bridge.RetryConfig // zero value means defaults

	// Transport, when set, is shared by the dispatchers and the token
	// service. Nil means a fresh default transport.
	Transport *bridge.Transport

	// CacheDir, when set, enables file caching of data extension
	// metadata for name-to-key resolution.
	CacheDir string
}

// Client is the provider API client. It owns the token service and the
// REST/SOAP dispatchers; services share them.
type Client struct {
	rest     *bridge.REST
	soap     *bridge.SOAP
	tokens   bridge.TokenProvider
	identity bridge.Identity
	retry    bridge.RetryConfig // wraps SOAP calls; REST carries its own copy
	deCache  *cache.Store       // nil disables metadata caching
}

// New creates a provider API client.
func New(opts Options) (*Client, error) {
	if opts.Subdomain == "" {
		return nil, fmt.Errorf("subdomain is required")
	}
	if opts.Secrets == nil {
		return nil, fmt.Errorf("secret source is required")
	}

	domain := opts.Domain
	if domain == "" {
		domain = config.DefaultProviderDomain
	}

	retry := opts.Retry
	if retry == (bridge.RetryConfig{}) {
		retry = bridge.DefaultRetryConfig()
	}

	transport := opts.Transport
	if transport == nil {
		transport = bridge.NewTransport()
	}
	tokens := auth.NewService(opts.Secrets, domain, opts.SharedCache)
	tokens.SetHTTPClient(transport.HTTP)

	var deCache *cache.Store
	if opts.CacheDir != "" {
		deCache = cache.NewStore(opts.CacheDir, "dataextensions", opts.Subdomain, opts.BusinessUnitID)
	}

	return &Client{
		rest:    bridge.NewREST(tokens, transport, domain, retry),
		soap:    bridge.NewSOAP(tokens, transport, domain),
		tokens:  tokens,
		retry:   retry,
		deCache: deCache,
		identity: bridge.Identity{
			TenantID:       opts.Subdomain,
			UserID:         opts.UserID,
			BusinessUnitID: opts.BusinessUnitID,
		},
	}, nil
}

// newClient wires a client from pre-built dispatchers. Used by tests.
func newClient(rest *bridge.REST, soap *bridge.SOAP, tokens bridge.TokenProvider, id bridge.Identity, retry bridge.RetryConfig) *Client {
	return &Client{rest: rest, soap: soap, tokens: tokens, identity: id, retry: retry}
}

// Identity returns the identity requests run under.
func (c *Client) Identity() bridge.Identity {
	return c.identity
}

// Queries returns the query definition service.
func (c *Client) Queries() QueriesService {
	return QueriesService{c: c}
}

// DataExtensions returns the data extension service.
func (c *Client) DataExtensions() DataExtensionsService {
	return DataExtensionsService{c: c}
}

// Rows returns the row retrieval service.
func (c *Client) Rows() RowsService {
	return RowsService{c: c}
}
