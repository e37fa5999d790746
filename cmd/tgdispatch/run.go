package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Enriquefft/tgdispatch/internal/bot"
	"github.com/Enriquefft/tgdispatch/internal/command"
	"github.com/Enriquefft/tgdispatch/internal/config"
	"github.com/Enriquefft/tgdispatch/internal/delivery"
	"github.com/Enriquefft/tgdispatch/internal/demux"
	"github.com/Enriquefft/tgdispatch/internal/dispatch"
	"github.com/Enriquefft/tgdispatch/internal/metrics"
	"github.com/Enriquefft/tgdispatch/internal/policy"
	"github.com/Enriquefft/tgdispatch/internal/telegram"
	"github.com/Enriquefft/tgdispatch/internal/update"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Receive updates and dispatch them to the dice bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(true)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, logger)
		},
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	client, err := telegram.NewClient(cfg.Telegram.Token,
		telegram.WithAPIServer(cfg.Telegram.APIServer),
		telegram.WithDebug(cfg.Telegram.Debug),
	)
	if err != nil {
		return err
	}

	name := cfg.Telegram.BotName
	if name == "" {
		if name, err = client.Username(ctx); err != nil {
			return fmt.Errorf("resolve bot name: %w", err)
		}
	}

	grammar, err := newGrammar(cfg)
	if err != nil {
		return err
	}
	// Telegram's command menu only knows slash commands.
	if cfg.Commands.Prefix == command.DefaultPrefix {
		if err := client.SetCommands(ctx, menuCommands(grammar)); err != nil {
			logger.Warn("could not register the command menu", "error", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	pol, err := policy.FromName(cfg.Pipeline.ErrorPolicy, logger)
	if err != nil {
		return err
	}

	dm := demux.New(
		demux.WithCapacity(cfg.Pipeline.Capacity),
		demux.WithPolicy(pol),
		demux.WithMetrics(m),
		demux.WithLogger(logger),
	)
	disp := dispatch.New(dm, dispatch.WithMetrics(m), dispatch.WithLogger(logger))

	if err := bot.New(grammar, name, logger).Register(dm, disp); err != nil {
		return err
	}
	logger.Debug("kinds without a handler go to the error policy",
		"kinds", fmt.Sprint(dm.Undeclared()), "policy", cfg.Pipeline.ErrorPolicy)

	store, closeStore, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	sources, err := newSources(cfg, sourceDeps{
		client:   client,
		store:    store,
		gatherer: reg,
		metrics:  m,
		logger:   logger,
	})
	if err != nil {
		return err
	}

	logger.Info("starting",
		"bot", name,
		"modes", cfg.Delivery.Mode,
		"error_policy", cfg.Pipeline.ErrorPolicy,
		"commands", strings.Join(grammar.Names(), ","),
	)
	return pipeline(ctx, sources, disp, time.Duration(cfg.Delivery.DedupWindow)*time.Second, logger)
}

// pipeline merges sources into the dispatcher and runs until ctx is
// cancelled or the dispatcher stops.
func pipeline(ctx context.Context, sources []delivery.Source, disp *dispatch.Dispatcher, dedupWindow time.Duration, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	merge := &delivery.Merge{Sources: sources, Logger: logger}
	events := make(chan update.Event)

	var g errgroup.Group
	g.Go(func() error { return merge.Run(ctx, events) })
	g.Go(func() error {
		merge.StartCleanup(ctx, dedupWindow)
		return nil
	})

	err := disp.Run(ctx, events)
	// Stop the sources whether the dispatcher failed or ran dry.
	cancel()
	_ = g.Wait()

	if errors.Is(err, context.Canceled) {
		logger.Info("shut down")
		return nil
	}
	return err
}
