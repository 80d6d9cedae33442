package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/diarizer/server/middleware"
)

var tokenFlags struct {
	subject string
	ttl     time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a secured service",
	Long: `Sign an HS256 token with server.auth.secret from the service config.
Use it with submit --token or an Authorization: Bearer header.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(globalFlags.configFile, globalFlags.envFile)
		if err != nil {
			return err
		}
		cfg.ApplyDefaults()
		token, err := middleware.IssueToken(cfg.Server.Auth, tokenFlags.subject, tokenFlags.ttl)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenFlags.subject, "subject", "cli", "token subject, used as the rate limit key")
	tokenCmd.Flags().DurationVar(&tokenFlags.ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
}
