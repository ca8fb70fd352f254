package bridge

import (
	"context"
	"time"
)

// Per-operation timeout classes. Metadata lookups, queue submissions, and
// status polls are short; bulk data retrieval gets a longer leash.
const (
	TimeoutMetadata      = 30 * time.Second
	TimeoutQueueJob      = 30 * time.Second
	TimeoutStatusPoll    = 30 * time.Second
	TimeoutDataRetrieval = 120 * time.Second
	TimeoutDefault       = 30 * time.Second
)

// maxResponseBytes caps how much of a response body is read, bounding memory
// use on pathological responses.
const maxResponseBytes = 50 << 20 // 50 MB

// Identity scopes a provider call to a tenant, acting user, and business
// unit. Every dispatcher call requires one.
type Identity struct {
	TenantID       string
	UserID         string
	BusinessUnitID string
}

// Credentials is an opaque token plus the tenant's provider host (the
// per-tenant subdomain the REST/SOAP base URLs are built from). The bridge
// never parses or caches it; it is fetched per call.
type Credentials struct {
	AccessToken string
	Host        string
}

// TokenProvider supplies and invalidates provider tokens. Implementations
// own caching and must not return a token already known to be invalid when
// force is true. InvalidateToken is idempotent and never errors.
type TokenProvider interface {
	RefreshToken(ctx context.Context, id Identity, force bool) (Credentials, error)
	InvalidateToken(ctx context.Context, id Identity)
}

// Operation is a fully formed, side-effect-free description of one REST
// call. Build it once; the dispatchers never mutate it.
type Operation struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte

	// Timeout selects the per-call deadline; zero means TimeoutDefault.
	Timeout time.Duration
}
