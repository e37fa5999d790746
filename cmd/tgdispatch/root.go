package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Enriquefft/tgdispatch/internal/config"
	"github.com/Enriquefft/tgdispatch/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tgdispatch",
		Short: "Telegram update dispatcher",
		Long: `tgdispatch receives Telegram updates by long polling, webhook or a websocket
feed, splits them by kind and hands each kind to its own handler.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				return os.Setenv("TGDISPATCH_CONFIG", path)
			}
			return nil
		},
	}

	root.PersistentFlags().String("config", "", "config file (default ~/.config/tgdispatch/config.toml)")
	root.PersistentFlags().String("log-level", "", "debug, info, warn or error (overrides the config)")

	root.AddCommand(
		newRunCmd(),
		newSendCmd(),
		newStatusCmd(),
		newCommandsCmd(),
	)
	return root
}

// loadConfig loads the config and, when validate is set, checks it.
func loadConfig(validate bool) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	level := cfg.Log.Level
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		level = v
	}
	logger := logging.New(logging.ParseLevel(level))
	slog.SetDefault(logger)
	return logger
}
