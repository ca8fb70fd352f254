package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/queryforge/queryforge-cli/internal/auth"
)

// ClientConfig contains resolved provider client settings.
type ClientConfig struct {
	Account        Account
	BusinessUnitID string
}

// ResolveClientConfig resolves provider client settings with overrides.
// Precedence: flag override, environment, stored account.
func ResolveClientConfig(profileOverride, businessUnitOverride string) (ClientConfig, error) {
	var (
		account Account
		err     error
	)
	if profileOverride != "" {
		account, err = LoadProfile(profileOverride)
	} else {
		account, err = LoadAccount()
	}
	if err != nil {
		return ClientConfig{}, err
	}

	cfg := ClientConfig{
		Account:        account,
		BusinessUnitID: account.BusinessUnitID,
	}

	if envMID := strings.TrimSpace(os.Getenv("QUERYFORGE_BUSINESS_UNIT")); envMID != "" {
		cfg.BusinessUnitID = envMID
	}
	if businessUnitOverride != "" {
		cfg.BusinessUnitID = businessUnitOverride
	}

	if cfg.Account.Subdomain == "" {
		return ClientConfig{}, fmt.Errorf("tenant subdomain not configured (run 'queryforge auth login' or set QUERYFORGE_SUBDOMAIN)")
	}
	if cfg.Account.ClientID == "" || cfg.Account.ClientSecret == "" {
		return ClientConfig{}, fmt.Errorf("client credentials not configured (run 'queryforge auth login' or set QUERYFORGE_CLIENT_ID and QUERYFORGE_CLIENT_SECRET)")
	}

	return cfg, nil
}

// AccountSecrets adapts a resolved account to the token service's secret
// source. The tenant id passed by the token service is ignored; the CLI
// operates on a single account per invocation.
type AccountSecrets struct {
	Account Account
}

func (s AccountSecrets) ClientCredentials(string) (auth.ClientCredentials, error) {
	if s.Account.ClientID == "" || s.Account.ClientSecret == "" {
		return auth.ClientCredentials{}, ErrNotConfigured
	}
	return auth.ClientCredentials{
		ClientID:     s.Account.ClientID,
		ClientSecret: s.Account.ClientSecret,
	}, nil
}

var _ auth.SecretSource = AccountSecrets{}
