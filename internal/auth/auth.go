// Package auth implements the bridge's token provider: an OAuth2
// client-credentials flow against the provider's tenant auth endpoint, with
// an in-process cache, an optional shared Redis cache, and deduplication of
// concurrent refreshes.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/queryforge/queryforge-cli/internal/bridge"
	"github.com/queryforge/queryforge-cli/internal/debug"
)

const (
	// tokenTimeout bounds the token fetch itself.
	tokenTimeout = 30 * time.Second

	// expirySkew is subtracted from the provider's expires_in so a token is
	// never handed out moments before the provider stops honoring it.
	expirySkew = 60 * time.Second
)

// ClientCredentials is the per-tenant API client identity used to mint
// tokens.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// SecretSource supplies client credentials for a tenant. The keyring-backed
// config store implements this.
type SecretSource interface {
	ClientCredentials(tenantID string) (ClientCredentials, error)
}

// TokenCache is an optional second cache layer shared across processes.
type TokenCache interface {
	Get(ctx context.Context, key string) (bridge.Credentials, time.Time, bool)
	Set(ctx context.Context, key string, creds bridge.Credentials, expiresAt time.Time)
	Delete(ctx context.Context, key string)
}

type cachedToken struct {
	creds     bridge.Credentials
	expiresAt time.Time
}

// Service implements bridge.TokenProvider.
type Service struct {
	http    *http.Client
	domain  string
	secrets SecretSource
	shared  TokenCache // may be nil

	mu     sync.Mutex
	tokens map[string]cachedToken
	group  singleflight.Group

	now func() time.Time
}

var _ bridge.TokenProvider = (*Service)(nil)

// NewService builds a token service for the given provider auth domain.
// shared may be nil when no cross-process cache is configured.
func NewService(secrets SecretSource, domain string, shared TokenCache) *Service {
	return &Service{
		http:    &http.Client{Timeout: tokenTimeout},
		domain:  domain,
		secrets: secrets,
		shared:  shared,
		tokens:  make(map[string]cachedToken),
		now:     time.Now,
	}
}

// SetHTTPClient replaces the HTTP client used for token fetches, letting
// callers route token requests through a shared transport.
func (s *Service) SetHTTPClient(hc *http.Client) {
	if hc != nil {
		s.http = hc
	}
}

// RefreshToken returns a currently valid token for the identity. With force
// set, cached entries are discarded first so the result is materially fresh.
// Concurrent refreshes for the same identity are collapsed into one fetch.
func (s *Service) RefreshToken(ctx context.Context, id bridge.Identity, force bool) (bridge.Credentials, error) {
	key := cacheKey(id)

	if force {
		s.evict(ctx, key)
	} else if creds, ok := s.cached(ctx, key); ok {
		return creds, nil
	}

	flightKey := key
	if force {
		// Forced refreshes must not be satisfied by an in-flight ordinary
		// fetch that may be returning the token we just invalidated.
		flightKey = "force:" + key
	}
	v, err, _ := s.group.Do(flightKey, func() (any, error) {
		return s.fetch(ctx, id, key)
	})
	if err != nil {
		return bridge.Credentials{}, err
	}
	return v.(bridge.Credentials), nil
}

// InvalidateToken marks the cached token unusable. Idempotent; never errors.
func (s *Service) InvalidateToken(ctx context.Context, id bridge.Identity) {
	s.evict(ctx, cacheKey(id))
}

func (s *Service) cached(ctx context.Context, key string) (bridge.Credentials, bool) {
	s.mu.Lock()
	entry, ok := s.tokens[key]
	s.mu.Unlock()
	if ok && s.now().Before(entry.expiresAt) {
		return entry.creds, true
	}

	if s.shared == nil {
		return bridge.Credentials{}, false
	}
	creds, expiresAt, ok := s.shared.Get(ctx, key)
	if !ok || !s.now().Before(expiresAt) {
		return bridge.Credentials{}, false
	}
	s.store(key, creds, expiresAt)
	return creds, true
}

func (s *Service) store(key string, creds bridge.Credentials, expiresAt time.Time) {
	s.mu.Lock()
	s.tokens[key] = cachedToken{creds: creds, expiresAt: expiresAt}
	s.mu.Unlock()
}

func (s *Service) evict(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.tokens, key)
	s.mu.Unlock()
	if s.shared != nil {
		s.shared.Delete(ctx, key)
	}
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AccountID    string `json:"account_id,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// fetch mints a token from the tenant auth endpoint and populates both
// cache layers.
func (s *Service) fetch(ctx context.Context, id bridge.Identity, key string) (bridge.Credentials, error) {
	creds, err := s.secrets.ClientCredentials(id.TenantID)
	if err != nil {
		return bridge.Credentials{}, fmt.Errorf("loading client credentials: %w", err)
	}

	payload, err := json.Marshal(tokenRequest{
		GrantType:    "client_credentials",
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		AccountID:    id.BusinessUnitID,
	})
	if err != nil {
		return bridge.Credentials{}, err
	}

	tokenURL := fmt.Sprintf("https://%s.auth.%s/v2/token", id.TenantID, s.domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(payload))
	if err != nil {
		return bridge.Credentials{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return bridge.Credentials{}, fmt.Errorf("requesting token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return bridge.Credentials{}, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return bridge.Credentials{}, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return bridge.Credentials{}, fmt.Errorf("decoding token response: %w", err)
	}
	if tok.AccessToken == "" {
		return bridge.Credentials{}, fmt.Errorf("token endpoint returned no access token")
	}

	result := bridge.Credentials{AccessToken: tok.AccessToken, Host: id.TenantID}
	expiresAt := s.now().Add(time.Duration(tok.ExpiresIn)*time.Second - expirySkew)
	if expiresAt.After(s.now()) {
		s.store(key, result, expiresAt)
		if s.shared != nil {
			s.shared.Set(ctx, key, result, expiresAt)
		}
	}
	slog.Debug("token refreshed", "tenant", id.TenantID, "businessUnit", id.BusinessUnitID,
		"expiresIn", tok.ExpiresIn, "token", debug.Redact(tok.AccessToken))
	return result, nil
}

func cacheKey(id bridge.Identity) string {
	return strings.Join([]string{id.TenantID, id.UserID, id.BusinessUnitID}, "|")
}
