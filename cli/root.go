package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/flowgent/flowgent/pkg/logger"
)

// RootCmd builds the flowgent command tree.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "flowgent",
		Short:         "Declarative orchestrator for LLM agent flows",
		Long:          "flowgent runs JSON-described agent workflows with structured outputs and propose/review refinement loops.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, err := cmd.Flags().GetString("env-file")
			if err != nil {
				return err
			}
			// A missing .env file is fine; explicit paths are not.
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return err
				}
			} else {
				_ = godotenv.Load()
			}
			logLevel, logJSON, err := logger.GetLoggerConfig(cmd)
			if err != nil {
				return err
			}
			logger.SetupLogger(logLevel, logJSON)
			return nil
		},
	}
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("log-json", false, "emit logs as JSON")
	cmd.PersistentFlags().String("env-file", "", "path to a .env file to load")
	cmd.AddCommand(runCmd())
	cmd.AddCommand(validateCmd())
	return cmd
}
