package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Enriquefft/tgdispatch/internal/bot"
	"github.com/Enriquefft/tgdispatch/internal/command"
	"github.com/Enriquefft/tgdispatch/internal/config"
	"github.com/Enriquefft/tgdispatch/internal/delivery"
	"github.com/Enriquefft/tgdispatch/internal/delivery/poller"
	"github.com/Enriquefft/tgdispatch/internal/delivery/stream"
	"github.com/Enriquefft/tgdispatch/internal/delivery/webhook"
	"github.com/Enriquefft/tgdispatch/internal/metrics"
	"github.com/Enriquefft/tgdispatch/internal/state"
	"github.com/Enriquefft/tgdispatch/internal/telegram"
)

const offsetFile = "offset"

// newGrammar builds the command grammar from the configured table, or the
// bot's built-in one.
func newGrammar(cfg *config.Config) (*command.Grammar, error) {
	mention, err := command.ParseMention(cfg.Commands.Mention)
	if err != nil {
		return nil, err
	}

	var caps []command.Capability
	if cfg.Commands.Table != "" {
		caps, err = command.LoadTableFile(cfg.Commands.Table)
	} else {
		caps, err = bot.DefaultCommands()
	}
	if err != nil {
		return nil, err
	}

	return command.NewGrammar(command.Options{
		Prefix:          cfg.Commands.Prefix,
		CaseInsensitive: cfg.Commands.CaseInsensitive,
		Mention:         mention,
	}, caps...)
}

// newStore returns the offset store for the configured backend. The
// returned close func releases it.
func newStore(cfg *config.Config) (state.Store, func() error, error) {
	switch cfg.State.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.State.RedisAddr})
		return state.NewRedisStore(client, cfg.State.RedisKey), client.Close, nil
	case config.BackendFile, "":
		return state.NewFileStore(cfg.State.Dir, offsetFile), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}

type sourceDeps struct {
	client   *telegram.Client
	store    state.Store
	gatherer prometheus.Gatherer
	metrics  *metrics.Collectors
	logger   *slog.Logger
}

// newSources builds one source per configured delivery mode.
func newSources(cfg *config.Config, deps sourceDeps) ([]delivery.Source, error) {
	var sources []delivery.Source
	for _, mode := range cfg.Modes() {
		switch mode {
		case config.ModePolling:
			sources = append(sources, &poller.Poller{
				Fetcher:    deps.client,
				Bot:        deps.client,
				State:      deps.store,
				Limit:      cfg.Delivery.PollLimit,
				Timeout:    cfg.Delivery.PollTimeout,
				ErrorDelay: time.Duration(cfg.Delivery.ErrorDelay) * time.Second,
				Metrics:    deps.metrics,
				Logger:     deps.logger.With("source", "poller"),
			})
		case config.ModeWebhook:
			sources = append(sources, &webhook.Server{
				Addr:     cfg.Webhook.Addr,
				Path:     cfg.Webhook.Path,
				Secret:   cfg.Webhook.Secret,
				Bot:      deps.client,
				Gatherer: deps.gatherer,
				Metrics:  deps.metrics,
				Logger:   deps.logger.With("source", "webhook"),
			})
		case config.ModeStream:
			c := &stream.Client{
				URL:            cfg.Stream.URL,
				Token:          cfg.Stream.Token,
				Bot:            deps.client,
				ReconnectDelay: time.Duration(cfg.Stream.ReconnectDelay) * time.Second,
				Metrics:        deps.metrics,
				Logger:         deps.logger.With("source", "stream"),
			}
			if err := c.Validate(); err != nil {
				return nil, err
			}
			sources = append(sources, c)
		default:
			return nil, fmt.Errorf("unknown delivery mode %q", mode)
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no delivery mode configured")
	}
	return sources, nil
}

// menuCommands turns the grammar's table into the bot's command menu.
// Capabilities without a description are listed under their name.
func menuCommands(g *command.Grammar) []telegram.Command {
	caps := g.Commands()
	menu := make([]telegram.Command, 0, len(caps))
	for _, c := range caps {
		desc := c.Name()
		if d, ok := c.(command.Definition); ok && d.Description != "" {
			desc = d.Description
		}
		menu = append(menu, telegram.Command{Name: c.Name(), Description: desc})
	}
	return menu
}
