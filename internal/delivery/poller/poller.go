// Package poller delivers updates by long-polling getUpdates.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mymmrac/telego"

	"github.com/Enriquefft/tgdispatch/internal/delivery"
	"github.com/Enriquefft/tgdispatch/internal/metrics"
	"github.com/Enriquefft/tgdispatch/internal/state"
	"github.com/Enriquefft/tgdispatch/internal/update"
)

const (
	DefaultLimit      = 100
	DefaultTimeout    = 30
	DefaultErrorDelay = 3 * time.Second
)

// Fetcher is the getUpdates call.
type Fetcher interface {
	Updates(ctx context.Context, offset, limit, timeout int) ([]telego.Update, error)
}

// Poller implements delivery.Source over getUpdates.
type Poller struct {
	Fetcher Fetcher
	// Bot is attached to every emitted event's session.
	Bot   update.Sender
	State state.Store

	Limit      int
	Timeout    int // seconds the server may hold the request; 0 polls without waiting
	ErrorDelay time.Duration

	Metrics *metrics.Collectors
	Logger  *slog.Logger
}

var _ delivery.Source = (*Poller)(nil)

// Run polls until ctx is cancelled. The offset is loaded from State before
// the first poll and saved after every batch.
func (p *Poller) Run(ctx context.Context, out chan<- update.Event) error {
	p.defaults()

	offset, err := p.State.Load(ctx)
	if err != nil {
		return fmt.Errorf("load offset: %w", err)
	}
	if offset == 0 {
		p.Logger.Info("first run, starting from the oldest pending update")
	} else {
		p.Logger.Info("resuming", "offset", offset)
	}

	for {
		next, err := p.poll(ctx, offset, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			p.Logger.Warn("poll failed", "error", err, "retry_in", p.ErrorDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.ErrorDelay):
			}
			continue
		}
		offset = next
	}
}

func (p *Poller) defaults() {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.ErrorDelay <= 0 {
		p.ErrorDelay = DefaultErrorDelay
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
}

// poll fetches one batch, emits it and returns the offset after it.
func (p *Poller) poll(ctx context.Context, offset int, out chan<- update.Event) (int, error) {
	updates, err := p.Fetcher.Updates(ctx, offset, p.Limit, p.Timeout)
	if err != nil {
		return offset, err
	}
	if len(updates) == 0 {
		return offset, nil
	}

	next := offset
	for _, u := range updates {
		select {
		case out <- update.NewEvent(u, p.Bot):
			p.Metrics.IncReceived("poller")
		case <-ctx.Done():
			return next, ctx.Err()
		}
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
	}

	p.Logger.Debug("forwarded updates", "count", len(updates), "offset", next)

	if err := p.State.Save(ctx, next); err != nil {
		p.Logger.Error("save offset", "error", err)
	}
	return next, nil
}
