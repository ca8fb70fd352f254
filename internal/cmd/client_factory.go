package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/queryforge/queryforge-cli/internal/api"
	"github.com/queryforge/queryforge-cli/internal/auth"
	"github.com/queryforge/queryforge-cli/internal/bridge"
	"github.com/queryforge/queryforge-cli/internal/cache"
	"github.com/queryforge/queryforge-cli/internal/config"
)

// transportOverride routes all provider traffic through a caller-supplied
// transport. Tests set it to point hardcoded provider hosts at a local
// server.
var transportOverride *bridge.Transport

type clientFactory struct {
	timeout      time.Duration
	profile      string
	businessUnit string
}

func newClientFactory() *clientFactory {
	return &clientFactory{
		timeout:      flags.Timeout,
		profile:      flags.Profile,
		businessUnit: flags.BusinessUnit,
	}
}

func (f *clientFactory) client() (*api.Client, error) {
	cfg, err := config.ResolveClientConfig(f.profile, f.businessUnit)
	if err != nil {
		return nil, err
	}

	transport := transportOverride
	if transport == nil {
		transport = bridge.NewTransport()
		if f.timeout > 0 {
			transport.HTTP.Timeout = f.timeout
		}
	}

	shared, err := sharedTokenCache()
	if err != nil {
		return nil, err
	}

	// Metadata caching is best effort; no cache dir just means every
	// name resolution hits the provider.
	cacheDir, _ := cache.DefaultDir()

	return api.New(api.Options{
		CacheDir:       cacheDir,
		Subdomain:      cfg.Account.Subdomain,
		Domain:         cfg.Account.ProviderDomain(),
		BusinessUnitID: cfg.BusinessUnitID,
		UserID:         cfg.Account.UserID,
		Secrets:        config.AccountSecrets{Account: cfg.Account},
		SharedCache:    shared,
		Transport:      transport,
	})
}

// sharedTokenCache builds the optional cross-process token cache. Tokens are
// minted per client ID, so long-running automation pointing several
// invocations at one Redis instance avoids burning token grants.
func sharedTokenCache() (auth.TokenCache, error) {
	addr := strings.TrimSpace(os.Getenv("QUERYFORGE_TOKEN_CACHE_REDIS"))
	if addr == "" {
		return nil, nil
	}
	rc, err := auth.NewRedisCache(addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to token cache %q: %w", addr, err)
	}
	return rc, nil
}
