package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/league-vision/internal/config"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "leaguevision",
		Short:         "Screen-state recognition and alert engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadDotEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional env file")

	root.AddCommand(newRunCmd(), newMatchCmd(), newOCRCmd(), newHealthCmd())
	return root
}

// setupLogger installs the process logger at the configured level.
func setupLogger(s *config.Settings) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: s.SlogLevel()}))
	slog.SetDefault(logger)
	return logger
}

// loadStore creates the vision store and loads the file when present.
func loadStore(path string, logger *slog.Logger) *config.Store {
	store := config.NewStore(path, logger)
	if _, err := os.Stat(path); err != nil {
		logger.Warn("Vision config not found, using defaults", "path", path)
		return store
	}
	if _, err := store.Reload(); err != nil {
		logger.Warn("Vision config invalid, using defaults", "path", path, "error", err)
	}
	return store
}
