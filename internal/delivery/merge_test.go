package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Enriquefft/tgdispatch/internal/logging"
	"github.com/Enriquefft/tgdispatch/internal/update"
)

func fixed(ids ...int) Source {
	return SourceFunc(func(ctx context.Context, out chan<- update.Event) error {
		for _, id := range ids {
			out <- update.NewEvent(telego.Update{UpdateID: id, Message: &telego.Message{}}, nil)
		}
		return nil
	})
}

func TestMergeDeduplicates(t *testing.T) {
	m := &Merge{Sources: []Source{fixed(1, 2, 3), fixed(2, 3, 4)}, Logger: logging.NewNop()}
	out := make(chan update.Event)

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background(), out) }()

	seen := map[int]int{}
	for ev := range out {
		seen[ev.ID()]++
	}
	require.NoError(t, <-done)
	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1, 4: 1}, seen)
}

func TestMergeKeepsSourceOrder(t *testing.T) {
	m := &Merge{Sources: []Source{fixed(5, 1, 9, 3)}, Logger: logging.NewNop()}
	out := make(chan update.Event, 8)

	require.NoError(t, m.Run(context.Background(), out))

	var got []int
	for ev := range out {
		got = append(got, ev.ID())
	}
	assert.Equal(t, []int{5, 1, 9, 3}, got)
}

func TestMergeStopsOnCancel(t *testing.T) {
	blocking := SourceFunc(func(ctx context.Context, out chan<- update.Event) error {
		<-ctx.Done()
		return ctx.Err()
	})
	m := &Merge{Sources: []Source{blocking}, Logger: logging.NewNop()}
	out := make(chan update.Event)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, out) }()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("merge did not return after cancel")
	}
	_, open := <-out
	assert.False(t, open)
}

func TestStartCleanupForgetsSeenIDs(t *testing.T) {
	m := &Merge{Logger: logging.NewNop()}
	m.seen.Store(1, struct{}{})

	ctx, cancel := context.WithCancel(context.Background())
	go m.StartCleanup(ctx, 10*time.Millisecond)
	defer cancel()

	assert.Eventually(t, func() bool {
		_, ok := m.seen.Load(1)
		return !ok
	}, time.Second, 5*time.Millisecond)
}
