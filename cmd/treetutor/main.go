package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leengari/tree-tutor/internal/config"
	"github.com/leengari/tree-tutor/internal/logging"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "treetutor",
		Short:        "Watch a tree grow from CSV records, one record at a time",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(newReplCmd(&configPath))
	rootCmd.AddCommand(newBuildCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and installs the default logger. The
// returned function flushes the logger.
func setup(configPath string) (config.Config, func(), error) {
	cfg := config.Defaults()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, nil, err
		}
	}

	cfg, err := config.ApplyEnv(cfg, os.Getenv)
	if err != nil {
		return cfg, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	logger, closeFn := logging.SetupLogger(cfg.LoggingOptions())
	slog.SetDefault(logger)
	return cfg, closeFn, nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
