package cmd

import (
	"github.com/spf13/cobra"

	"github.com/spec-kit/order-tagger/internal/auth"
	"github.com/spec-kit/order-tagger/internal/config"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "ordertagctl",
	Short: "Operator tooling for the order-tagger service",
	Long: `ordertagctl mints and inspects auto-login links and provisions dashboard accounts.

It reads the same environment (and .env file) as the API server, in particular
AUTOLOGIN_SECRET, AUTOLOGIN_ISSUER, AUTOLOGIN_AUDIENCE and POSTGRES_DSN.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func codecFromConfig(cfg *config.Config) *auth.Codec {
	return auth.NewCodec(auth.CodecConfig{
		Secret:   cfg.Auth.AutoLoginSecret,
		Issuer:   cfg.Auth.AutoLoginIssuer,
		Audience: cfg.Auth.AutoLoginAudience,
	})
}
