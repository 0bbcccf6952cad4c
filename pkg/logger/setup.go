package logger

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SetupLogger configures the process default logger from CLI flag values.
func SetupLogger(logLevel string, logJSON bool) {
	var level LogLevel
	switch logLevel {
	case "debug":
		level = DebugLevel
	case "warn":
		level = WarnLevel
	case "error":
		level = ErrorLevel
	default:
		level = InfoLevel
	}
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.JSON = logJSON
	Init(cfg)
}

// GetLoggerConfig reads the logging flags registered on the root command.
func GetLoggerConfig(cmd *cobra.Command) (string, bool, error) {
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return "", false, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return "", false, fmt.Errorf("failed to get log-json flag: %w", err)
	}
	return logLevel, logJSON, nil
}
