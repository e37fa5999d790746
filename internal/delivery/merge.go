package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Enriquefft/tgdispatch/internal/update"
)

// Merge fans in multiple Sources with update-ID deduplication.
type Merge struct {
	Sources []Source
	Logger  *slog.Logger

	seen sync.Map
}

// Run starts all sources concurrently, drops updates whose ID was already
// forwarded and sends the rest to out. It closes out and returns once every
// source has returned.
func (m *Merge) Run(ctx context.Context, out chan<- update.Event) error {
	defer close(out)

	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := make(chan update.Event, 64)

	var wg sync.WaitGroup
	for _, src := range m.Sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()
			if err := s.Run(ctx, ch); err != nil && ctx.Err() == nil {
				logger.Error("source stopped", "error", err)
			}
		}(src)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	for ev := range ch {
		if _, loaded := m.seen.LoadOrStore(ev.ID(), struct{}{}); loaded {
			logger.Debug("merge: skipping duplicate update", "update_id", ev.ID())
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			// Drain so blocked sources can observe ctx and return.
			for range ch {
			}
			return ctx.Err()
		}
	}

	return nil
}

// StartCleanup periodically clears the dedup set to bound memory usage.
func (m *Merge) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.seen.Range(func(key, _ any) bool {
				m.seen.Delete(key)
				return true
			})
		}
	}
}
