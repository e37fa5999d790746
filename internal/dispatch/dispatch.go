// Package dispatch runs one handler per demultiplexed stream and drives the
// pipeline to completion.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Enriquefft/tgdispatch/internal/demux"
	"github.com/Enriquefft/tgdispatch/internal/metrics"
	"github.com/Enriquefft/tgdispatch/internal/update"
)

// ErrStarted is returned when registering or running after Run was called.
var ErrStarted = errors.New("dispatch: already started")

// Dispatcher owns the handlers attached to a demultiplexer's streams.
type Dispatcher struct {
	demux   *demux.Demux
	metrics *metrics.Collectors
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	runs    []func(ctx context.Context)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics counts handled items per handler.
func WithMetrics(c *metrics.Collectors) Option {
	return func(d *Dispatcher) { d.metrics = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a Dispatcher driving dm.
func New(dm *demux.Demux, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		demux:  dm,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) register(run func(ctx context.Context)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return ErrStarted
	}
	d.runs = append(d.runs, run)
	return nil
}

// Handle attaches fn to in. fn is called once per item, in order, on a
// goroutine dedicated to in. A panicking fn is not recovered.
func Handle[T any](d *Dispatcher, name string, in <-chan T, fn func(context.Context, T)) error {
	return d.register(func(ctx context.Context) {
		for item := range in {
			fn(ctx, item)
			d.metrics.IncHandled(name)
		}
	})
}

// HandleStream attaches fn to in. fn owns the stream and should consume it
// until it is closed; Run waits for fn to return. A handler that stops
// early must close its demux arm, or the driver stalls once the arm fills.
func HandleStream[T any](d *Dispatcher, in <-chan T, fn func(context.Context, <-chan T)) error {
	return d.register(func(ctx context.Context) {
		fn(ctx, in)
	})
}

// Run starts every handler, drives the demultiplexer over src on the
// calling goroutine and returns once src is exhausted (or the policy
// stopped the driver) and every handler has returned. The returned error is
// the demultiplexer's.
func (d *Dispatcher) Run(ctx context.Context, src <-chan update.Event) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return ErrStarted
	}
	d.started = true
	runs := d.runs
	d.mu.Unlock()

	var g errgroup.Group
	for _, run := range runs {
		g.Go(func() error {
			run(ctx)
			return nil
		})
	}
	d.logger.Debug("dispatcher started", "handlers", len(runs))

	err := d.demux.Run(ctx, src)
	if err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Error("pipeline stopped", "error", err)
	}

	// Handlers never return errors; Wait only joins them.
	_ = g.Wait()

	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	return nil
}
