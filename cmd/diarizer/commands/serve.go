package commands

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Run the diarization HTTP service.

Routes:
  POST /diarize   multipart "audio" plus optional "segments" JSON
  GET  /health    liveness and pipeline state
  GET  /test      connectivity check

The pipeline is built on the first /diarize request, or at startup with
pipeline.preload. Until it is ready /diarize answers 202.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(globalFlags.configFile, globalFlags.envFile)
		if err != nil {
			return err
		}
		app, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return app.Run(cmd.Context())
	},
}
