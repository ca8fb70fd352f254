package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/queryforge/queryforge-cli/internal/config"
	"github.com/queryforge/queryforge-cli/internal/validation"
)

// newAuthCmd returns the auth command with subcommands
func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "auth",
		Aliases: []string{"au"},
		Short:   "Manage authentication credentials",
		Long:    "Configure and manage the API integration credentials stored securely in your OS keychain.",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

// newAuthLoginCmd creates the auth login command
func newAuthLoginCmd() *cobra.Command {
	var (
		subdomain    string
		clientID     string
		clientSecret string
		businessUnit string
		userID       string
		domain       string
		profile      string
		envFile      string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save API credentials to the keychain",
		Long: strings.TrimSpace(`
Save API integration credentials securely to your OS keychain.

You'll need:
- Subdomain: the tenant-specific host prefix from your integration's
  endpoint URLs (e.g. mc1234567890 in mc1234567890.rest.marketingcloudapis.com)
- Client ID / Client Secret: from the installed package's API integration

Optional:
- Business Unit: MID to scope requests to a child business unit
- Profile: save multiple tenants and switch between them
`),
		Example: strings.TrimSpace(`
  # Log in with flags
  queryforge auth login --subdomain mc1234567890 --client-id ID --client-secret SECRET

  # Save to a named profile, scoped to a business unit
  queryforge auth login --subdomain mc1234567890 --client-id ID --client-secret SECRET --business-unit 510001234 --profile staging

  # Load credentials from a .env file
  queryforge auth login --env-file .env
`),
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if envFile != "" {
				envVars, err := loadAuthEnvFile(envFile)
				if err != nil {
					return err
				}
				applyAuthEnvFileRuntimeVars(envVars)

				if subdomain == "" {
					subdomain = strings.TrimSpace(envVars["QUERYFORGE_SUBDOMAIN"])
				}
				if clientID == "" {
					clientID = strings.TrimSpace(envVars["QUERYFORGE_CLIENT_ID"])
				}
				if clientSecret == "" {
					clientSecret = strings.TrimSpace(envVars["QUERYFORGE_CLIENT_SECRET"])
				}
				if businessUnit == "" {
					businessUnit = strings.TrimSpace(envVars["QUERYFORGE_BUSINESS_UNIT"])
				}
				if userID == "" {
					userID = strings.TrimSpace(envVars["QUERYFORGE_USER_ID"])
				}
				if domain == "" {
					domain = strings.TrimSpace(envVars["QUERYFORGE_PROVIDER_DOMAIN"])
				}
				if !cmd.Flags().Changed("profile") {
					if envProfile := strings.TrimSpace(envVars["QUERYFORGE_PROFILE"]); envProfile != "" {
						profile = envProfile
					}
				}
			}

			if subdomain == "" {
				return fmt.Errorf("--subdomain is required")
			}
			if clientID == "" {
				return fmt.Errorf("--client-id is required")
			}
			if clientSecret == "" {
				return fmt.Errorf("--client-secret is required")
			}

			if err := validation.ValidateSubdomain(subdomain); err != nil {
				return err
			}
			if domain != "" {
				if err := validation.ValidateProviderDomain(domain); err != nil {
					return fmt.Errorf("invalid domain: %w", err)
				}
			}
			if err := validation.ValidateBusinessUnit(businessUnit); err != nil {
				return err
			}

			account := config.Account{
				Subdomain:      subdomain,
				ClientID:       clientID,
				ClientSecret:   clientSecret,
				BusinessUnitID: businessUnit,
				UserID:         userID,
				Domain:         domain,
			}

			if err := config.SaveProfile(profile, account); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Authentication credentials saved successfully!")
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Subdomain: %s\n", subdomain)
			if businessUnit != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Business Unit: %s\n", businessUnit)
			}
			if profile != "" && profile != "default" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Profile: %s\n", profile)
			}

			return nil
		}),
	}

	cmd.Flags().StringVar(&subdomain, "subdomain", "", "Tenant-specific subdomain from the integration's endpoint URLs")
	cmd.Flags().StringVar(&clientID, "client-id", "", "API integration client ID")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "API integration client secret")
	cmd.Flags().StringVar(&businessUnit, "business-unit", "", "Business unit MID (optional)")
	cmd.Flags().StringVar(&userID, "user-id", "", "API user identifier (optional)")
	cmd.Flags().StringVar(&domain, "domain", "", "Provider API domain (defaults to "+config.DefaultProviderDomain+")")
	cmd.Flags().StringVar(&profile, "profile", "default", "Profile name to save credentials under")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Load QUERYFORGE_* values from a .env file")
	flagAlias(cmd.Flags(), "subdomain", "sd")
	flagAlias(cmd.Flags(), "client-id", "cid")
	flagAlias(cmd.Flags(), "client-secret", "cs")
	flagAlias(cmd.Flags(), "business-unit", "bu")
	flagAlias(cmd.Flags(), "profile", "pf")
	flagAlias(cmd.Flags(), "env-file", "env")

	return cmd
}

func loadAuthEnvFile(path string) (map[string]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("--env-file requires a file path")
	}

	envVars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read --env-file %q: %w", path, err)
	}

	return envVars, nil
}

// applyAuthEnvFileRuntimeVars copies keyring settings from --env-file into
// the process environment when they are not already exported.
func applyAuthEnvFileRuntimeVars(envVars map[string]string) {
	keys := []string{
		"QUERYFORGE_KEYRING_BACKEND",
		"QUERYFORGE_KEYRING_PASSWORD",
		"QUERYFORGE_CREDENTIALS_DIR",
	}

	for _, key := range keys {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		value := strings.TrimSpace(envVars[key])
		if value == "" {
			continue
		}
		_ = os.Setenv(key, value)
	}
}

// newAuthStatusCmd creates the auth status command
func newAuthStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show current authentication configuration",
		Long:  "Display the currently saved authentication configuration (the client secret is masked).",
		Example: strings.TrimSpace(`
  # Check authentication status
  queryforge auth status

  # JSON output for scripting
  queryforge auth status --json
`),
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			usingEnv := strings.TrimSpace(os.Getenv("QUERYFORGE_SUBDOMAIN")) != ""

			account, err := config.LoadAccount()
			if err != nil {
				if err == config.ErrNotConfigured {
					if isJSON(cmd) {
						return printJSON(cmd, map[string]any{
							"authenticated": false,
							"message":       "Not authenticated. Run 'queryforge auth login' to configure credentials.",
						})
					}
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Not authenticated.")
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Run 'queryforge auth login' to configure credentials.")
					return nil
				}
				return fmt.Errorf("failed to load credentials: %w", err)
			}

			var profile string
			if !usingEnv {
				if current, err := config.CurrentProfile(); err == nil {
					profile = current
				}
			}

			if isJSON(cmd) {
				payload := map[string]any{
					"authenticated": true,
					"subdomain":     account.Subdomain,
					"client_id":     account.ClientID,
					"client_secret": maskSecret(account.ClientSecret),
					"domain":        account.ProviderDomain(),
					"source":        map[bool]string{true: "env", false: "keychain"}[usingEnv],
				}
				if account.BusinessUnitID != "" {
					payload["business_unit"] = account.BusinessUnitID
				}
				if profile != "" {
					payload["profile"] = profile
				}
				return printJSON(cmd, payload)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Authenticated")
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Subdomain: %s\n", account.Subdomain)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Client ID: %s\n", account.ClientID)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Client Secret: %s\n", maskSecret(account.ClientSecret))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Domain: %s\n", account.ProviderDomain())
			if account.BusinessUnitID != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Business Unit: %s\n", account.BusinessUnitID)
			}
			if profile != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Profile: %s\n", profile)
			}
			if usingEnv {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "  Source: env")
			}

			return nil
		}),
	}

	return cmd
}

// newAuthLogoutCmd creates the auth logout command
func newAuthLogoutCmd() *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove credentials from keychain",
		Long:  "Delete the stored authentication credentials from your OS keychain.",
		Example: strings.TrimSpace(`
  # Remove stored credentials
  queryforge auth logout
`),
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if profile == "" {
				current, err := config.CurrentProfile()
				if err == nil {
					profile = current
				}
			}

			if profile == "" && !config.HasAccount() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No credentials found.")
				return nil
			}

			if err := config.DeleteProfile(profile); err != nil {
				return fmt.Errorf("failed to remove credentials: %w", err)
			}

			if profile == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Credentials removed successfully.")
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Profile %s removed successfully.\n", profile)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&profile, "profile", "", "Profile name to remove (defaults to current)")
	flagAlias(cmd.Flags(), "profile", "pf")

	return cmd
}

// maskSecret masks a client secret for display, showing only first and last 4 characters
func maskSecret(secret string) string {
	if len(secret) < 8 {
		return strings.Repeat("*", len(secret)) // Match actual length
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
