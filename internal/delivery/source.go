// Package delivery defines where updates come from and fans several sources
// into one ordered stream.
package delivery

import (
	"context"

	"github.com/Enriquefft/tgdispatch/internal/update"
)

// Source produces updates from one delivery channel (long polling, webhook,
// websocket feed). Run sends on out until ctx is cancelled or the channel is
// exhausted. It must not close out.
type Source interface {
	Run(ctx context.Context, out chan<- update.Event) error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, out chan<- update.Event) error

func (f SourceFunc) Run(ctx context.Context, out chan<- update.Event) error {
	return f(ctx, out)
}
