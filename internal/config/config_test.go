package config

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

// withMockKeyring sets up a mock keyring for the duration of a test
func withMockKeyring(t *testing.T, ring keyring.Keyring) {
	t.Helper()
	original := openKeyring
	openKeyring = func(cfg keyring.Config) (keyring.Keyring, error) {
		return ring, nil
	}
	t.Cleanup(func() { openKeyring = original })
}

// withFailingKeyring sets up a keyring that always fails to open
func withFailingKeyring(t *testing.T, err error) {
	t.Helper()
	original := openKeyring
	openKeyring = func(cfg keyring.Config) (keyring.Keyring, error) {
		return nil, err
	}
	t.Cleanup(func() { openKeyring = original })
}

// clearAccountEnv blanks every account-related variable so tests see only
// what they set. Loaders trim and treat empty values as unset.
func clearAccountEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"QUERYFORGE_SUBDOMAIN",
		"QUERYFORGE_CLIENT_ID",
		"QUERYFORGE_CLIENT_SECRET",
		"QUERYFORGE_BUSINESS_UNIT",
		"QUERYFORGE_USER_ID",
		"QUERYFORGE_PROVIDER_DOMAIN",
		"QUERYFORGE_PROFILE",
	} {
		t.Setenv(key, "")
	}
}

func TestProfileKey(t *testing.T) {
	tests := []struct {
		name     string
		profile  string
		expected string
	}{
		{
			name:     "empty profile defaults to accountKey",
			profile:  "",
			expected: accountKey,
		},
		{
			name:     "default profile uses accountKey",
			profile:  "default",
			expected: accountKey,
		},
		{
			name:     "named profile uses prefix",
			profile:  "work",
			expected: profilePrefix + "work",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := profileKey(tt.profile)
			if result != tt.expected {
				t.Errorf("profileKey(%q) = %q, want %q", tt.profile, result, tt.expected)
			}
		})
	}
}

func TestSaveAndLoadAccount(t *testing.T) {
	clearAccountEnv(t)
	withMockKeyring(t, keyring.NewArrayKeyring(nil))

	account := Account{
		Subdomain:      "mc1234567",
		ClientID:       "client-abc",
		ClientSecret:   "secret-xyz",
		BusinessUnitID: "510001234",
		UserID:         "user-1",
	}
	if err := SaveAccount(account); err != nil {
		t.Fatalf("SaveAccount: %v", err)
	}

	loaded, err := LoadAccount()
	if err != nil {
		t.Fatalf("LoadAccount: %v", err)
	}
	if loaded != account {
		t.Errorf("loaded account = %+v, want %+v", loaded, account)
	}
}

func TestLoadAccountNotConfigured(t *testing.T) {
	clearAccountEnv(t)
	withMockKeyring(t, keyring.NewArrayKeyring(nil))

	_, err := LoadAccount()
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("LoadAccount error = %v, want ErrNotConfigured", err)
	}
	if HasAccount() {
		t.Error("HasAccount() = true with empty keyring")
	}
}

func TestLoadAccountEnvOverride(t *testing.T) {
	clearAccountEnv(t)
	// Keyring must not be consulted when env credentials are complete.
	withFailingKeyring(t, errors.New("keyring should not be opened"))

	t.Setenv("QUERYFORGE_SUBDOMAIN", "mc7654321")
	t.Setenv("QUERYFORGE_CLIENT_ID", "env-client")
	t.Setenv("QUERYFORGE_CLIENT_SECRET", "env-secret")
	t.Setenv("QUERYFORGE_BUSINESS_UNIT", "510009999")
	t.Setenv("QUERYFORGE_PROVIDER_DOMAIN", "example.test")

	account, err := LoadAccount()
	if err != nil {
		t.Fatalf("LoadAccount: %v", err)
	}
	if account.Subdomain != "mc7654321" {
		t.Errorf("Subdomain = %q", account.Subdomain)
	}
	if account.ClientID != "env-client" || account.ClientSecret != "env-secret" {
		t.Errorf("client credentials = %q/%q", account.ClientID, account.ClientSecret)
	}
	if account.BusinessUnitID != "510009999" {
		t.Errorf("BusinessUnitID = %q", account.BusinessUnitID)
	}
	if account.ProviderDomain() != "example.test" {
		t.Errorf("ProviderDomain() = %q", account.ProviderDomain())
	}
}

func TestLoadAccountEnvIncomplete(t *testing.T) {
	clearAccountEnv(t)
	withMockKeyring(t, keyring.NewArrayKeyring(nil))

	t.Setenv("QUERYFORGE_SUBDOMAIN", "mc7654321")
	t.Setenv("QUERYFORGE_CLIENT_ID", "env-client")
	// Secret intentionally missing.

	if _, err := LoadAccount(); err == nil {
		t.Error("expected error for incomplete environment credentials")
	}
}

func TestProviderDomainDefault(t *testing.T) {
	a := Account{Subdomain: "mc1"}
	if got := a.ProviderDomain(); got != DefaultProviderDomain {
		t.Errorf("ProviderDomain() = %q, want %q", got, DefaultProviderDomain)
	}
}

func TestProfileLifecycle(t *testing.T) {
	clearAccountEnv(t)
	withMockKeyring(t, keyring.NewArrayKeyring(nil))

	work := Account{Subdomain: "mc-work", ClientID: "id-w", ClientSecret: "sec-w"}
	staging := Account{Subdomain: "mc-stg", ClientID: "id-s", ClientSecret: "sec-s"}

	if err := SaveProfile("work", work); err != nil {
		t.Fatalf("SaveProfile(work): %v", err)
	}
	if err := SaveProfile("staging", staging); err != nil {
		t.Fatalf("SaveProfile(staging): %v", err)
	}

	profiles, err := ListProfiles()
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(profiles) != 2 || profiles[0] != "work" || profiles[1] != "staging" {
		t.Errorf("profiles = %v", profiles)
	}

	// Saving switches the current profile.
	current, err := CurrentProfile()
	if err != nil {
		t.Fatalf("CurrentProfile: %v", err)
	}
	if current != "staging" {
		t.Errorf("current profile = %q, want staging", current)
	}

	// LoadAccount follows the current profile.
	loaded, err := LoadAccount()
	if err != nil {
		t.Fatalf("LoadAccount: %v", err)
	}
	if loaded != staging {
		t.Errorf("loaded = %+v, want staging account", loaded)
	}

	// QUERYFORGE_PROFILE takes precedence over the current profile.
	t.Setenv("QUERYFORGE_PROFILE", "work")
	loaded, err = LoadAccount()
	if err != nil {
		t.Fatalf("LoadAccount with profile env: %v", err)
	}
	if loaded != work {
		t.Errorf("loaded = %+v, want work account", loaded)
	}
}

func TestDeleteProfileUpdatesIndexAndCurrent(t *testing.T) {
	clearAccountEnv(t)
	withMockKeyring(t, keyring.NewArrayKeyring(nil))

	if err := SaveProfile("work", Account{Subdomain: "a", ClientID: "b", ClientSecret: "c"}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	if err := SaveProfile("staging", Account{Subdomain: "d", ClientID: "e", ClientSecret: "f"}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	if err := DeleteProfile("staging"); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}

	if _, err := LoadProfile("staging"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("LoadProfile(staging) error = %v, want ErrNotConfigured", err)
	}

	profiles, err := ListProfiles()
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0] != "work" {
		t.Errorf("profiles = %v, want [work]", profiles)
	}

	current, err := CurrentProfile()
	if err != nil {
		t.Fatalf("CurrentProfile: %v", err)
	}
	if current != "work" {
		t.Errorf("current profile = %q, want work", current)
	}
}

func TestDeleteMissingProfileIsIdempotent(t *testing.T) {
	clearAccountEnv(t)
	withMockKeyring(t, keyring.NewArrayKeyring(nil))

	if err := DeleteProfile("ghost"); err != nil {
		t.Errorf("DeleteProfile(ghost) = %v, want nil", err)
	}
}

func TestKeyringOpenFailure(t *testing.T) {
	clearAccountEnv(t)
	withFailingKeyring(t, errors.New("no backend available"))

	if err := SaveAccount(Account{Subdomain: "x"}); err == nil {
		t.Error("SaveAccount: expected error")
	}
	if _, err := LoadAccount(); err == nil {
		t.Error("LoadAccount: expected error")
	}
}

func TestNormalizeProfiles(t *testing.T) {
	got := normalizeProfiles([]string{" work ", "work", "", "staging"})
	if len(got) != 2 || got[0] != "work" || got[1] != "staging" {
		t.Errorf("normalizeProfiles = %v", got)
	}
}

func TestShouldForceFileBackend(t *testing.T) {
	tests := []struct {
		name     string
		goos     string
		backend  string
		dbusAddr string
		want     bool
	}{
		{"explicit file backend", "darwin", keyringBackendFile, "", true},
		{"linux headless auto", "linux", keyringBackendAuto, "", true},
		{"linux with dbus", "linux", keyringBackendAuto, "unix:path=/run/user/1000/bus", false},
		{"darwin auto", "darwin", keyringBackendAuto, "", false},
		{"system backend never forces", "linux", keyringBackendSystem, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldForceFileBackend(tt.goos, tt.backend, tt.dbusAddr); got != tt.want {
				t.Errorf("shouldForceFileBackend(%q, %q, %q) = %v, want %v",
					tt.goos, tt.backend, tt.dbusAddr, got, tt.want)
			}
		})
	}
}

func TestResolveClientConfigOverrides(t *testing.T) {
	clearAccountEnv(t)
	withMockKeyring(t, keyring.NewArrayKeyring(nil))

	account := Account{
		Subdomain:      "mc1234567",
		ClientID:       "client-abc",
		ClientSecret:   "secret-xyz",
		BusinessUnitID: "510001234",
	}
	if err := SaveAccount(account); err != nil {
		t.Fatalf("SaveAccount: %v", err)
	}

	cfg, err := ResolveClientConfig("", "")
	if err != nil {
		t.Fatalf("ResolveClientConfig: %v", err)
	}
	if cfg.BusinessUnitID != "510001234" {
		t.Errorf("BusinessUnitID = %q, want stored default", cfg.BusinessUnitID)
	}

	t.Setenv("QUERYFORGE_BUSINESS_UNIT", "510005555")
	cfg, err = ResolveClientConfig("", "")
	if err != nil {
		t.Fatalf("ResolveClientConfig: %v", err)
	}
	if cfg.BusinessUnitID != "510005555" {
		t.Errorf("BusinessUnitID = %q, want env override", cfg.BusinessUnitID)
	}

	cfg, err = ResolveClientConfig("", "510007777")
	if err != nil {
		t.Fatalf("ResolveClientConfig: %v", err)
	}
	if cfg.BusinessUnitID != "510007777" {
		t.Errorf("BusinessUnitID = %q, want flag override", cfg.BusinessUnitID)
	}
}

func TestResolveClientConfigMissingCredentials(t *testing.T) {
	clearAccountEnv(t)
	withMockKeyring(t, keyring.NewArrayKeyring(nil))

	if err := SaveAccount(Account{Subdomain: "mc1234567", ClientID: "client-abc"}); err != nil {
		t.Fatalf("SaveAccount: %v", err)
	}
	if _, err := ResolveClientConfig("", ""); err == nil {
		t.Error("expected error for account without client secret")
	}
}

func TestAccountSecrets(t *testing.T) {
	s := AccountSecrets{Account: Account{ClientID: "id", ClientSecret: "sec"}}
	creds, err := s.ClientCredentials("mc1234567")
	if err != nil {
		t.Fatalf("ClientCredentials: %v", err)
	}
	if creds.ClientID != "id" || creds.ClientSecret != "sec" {
		t.Errorf("creds = %+v", creds)
	}

	empty := AccountSecrets{}
	if _, err := empty.ClientCredentials("mc1234567"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}
