// Package commands implements the diarizer CLI.
package commands

import (
	"context"

	"github.com/spf13/cobra"
)

var globalFlags struct {
	configFile string
	envFile    string
}

var rootCmd = &cobra.Command{
	Use:   "diarizer",
	Short: "Speaker diarization labelling service",
	Long: `Assigns a speaker label to each transcript segment of an audio recording.

The serve command runs the HTTP service. diarize labels one file locally,
merge relabels saved diarization output and submit talks to a running
service.

Configuration is read from cmd/diarizer/config.yml (or --config), .env
files and the environment. HF_TOKEN holds the model credential.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&globalFlags.envFile, "env-file", "", ".env file path")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(diarizeCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}
