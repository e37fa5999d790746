package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Enriquefft/tgdispatch/internal/logging"
	"github.com/Enriquefft/tgdispatch/internal/metrics"
	"github.com/Enriquefft/tgdispatch/internal/update"
)

type memStore struct {
	mu     sync.Mutex
	offset int
}

func (s *memStore) Load(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset, nil
}

func (s *memStore) Save(_ context.Context, offset int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = offset
	return nil
}

// scriptedFetcher returns one scripted response per call, then blocks until
// ctx is cancelled.
type scriptedFetcher struct {
	mu      sync.Mutex
	offsets []int
	batches [][]telego.Update
	errs    []error
}

func (f *scriptedFetcher) Updates(ctx context.Context, offset, _, _ int) ([]telego.Update, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	if len(f.batches) == 0 {
		f.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	batch, err := f.batches[0], f.errs[0]
	f.batches, f.errs = f.batches[1:], f.errs[1:]
	f.mu.Unlock()
	return batch, err
}

func (f *scriptedFetcher) seenOffsets() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.offsets...)
}

func msg(id int) telego.Update {
	return telego.Update{UpdateID: id, Message: &telego.Message{Chat: telego.Chat{ID: 1, Type: "private"}, Text: "hi"}}
}

func TestPollerAdvancesOffset(t *testing.T) {
	fetcher := &scriptedFetcher{
		batches: [][]telego.Update{{msg(10), msg(11)}, nil, {msg(12)}},
		errs:    []error{nil, errors.New("bad gateway"), nil},
	}
	store := &memStore{offset: 10}
	m := metrics.New(prometheus.NewRegistry())

	p := &Poller{
		Fetcher:    fetcher,
		State:      store,
		ErrorDelay: time.Millisecond,
		Metrics:    m,
		Logger:     logging.NewNop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan update.Event, 8)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, out) }()

	var got []int
	for len(got) < 3 {
		select {
		case ev := <-out:
			got = append(got, ev.ID())
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Eventually(t, func() bool { return len(fetcher.seenOffsets()) == 4 }, time.Second, time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, []int{10, 11, 12}, got)
	assert.Equal(t, []int{10, 12, 12, 13}, fetcher.seenOffsets())

	offset, _ := store.Load(context.Background())
	assert.Equal(t, 13, offset)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Received.WithLabelValues("poller")))
}

func TestPollerSessionCarriesBot(t *testing.T) {
	fetcher := &scriptedFetcher{batches: [][]telego.Update{{msg(1)}}, errs: []error{nil}}
	bot := nopSender{}
	p := &Poller{Fetcher: fetcher, Bot: bot, State: &memStore{}, Logger: logging.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan update.Event, 1)
	go func() { _ = p.Run(ctx, out) }()

	ev := <-out
	require.NotNil(t, ev.Session)
	assert.Equal(t, update.Sender(bot), ev.Session.Bot)
	assert.Equal(t, int64(1), ev.Session.ChatID)
}

type nopSender struct{}

func (nopSender) SendText(context.Context, int64, string) error { return nil }
