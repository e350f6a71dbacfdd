package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"shop-auth/internal/config"
	"shop-auth/pkg/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "shopauth",
		Short:        "Token issuing and request authorization for the shop",
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newGenKeyCommand(),
	)
	return root
}

// loadConfig reads .env and the environment, then sets up the process logger.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("configuration loaded")
	return cfg, log, nil
}
