// Package stream reads updates from a websocket feed, one JSON-encoded
// update per text frame. Feeds of this shape are what update relays and
// local Bot API proxies expose.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mymmrac/telego"

	"github.com/Enriquefft/tgdispatch/internal/delivery"
	"github.com/Enriquefft/tgdispatch/internal/metrics"
	"github.com/Enriquefft/tgdispatch/internal/update"
)

// DefaultReconnectDelay is the pause before redialling a dropped feed.
const DefaultReconnectDelay = 5 * time.Second

// Client implements delivery.Source over a websocket feed.
type Client struct {
	URL   string
	Token string // sent as a bearer token when set
	Bot   update.Sender

	ReconnectDelay time.Duration

	Metrics *metrics.Collectors
	Logger  *slog.Logger
}

var _ delivery.Source = (*Client)(nil)

// Run reads the feed until ctx is cancelled or the server closes the
// connection normally. Other read failures are retried after
// ReconnectDelay.
func (c *Client) Run(ctx context.Context, out chan<- update.Event) error {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}

	for {
		err := c.session(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			c.Logger.Info("stream closed by server", "url", c.URL)
			return nil
		}

		c.Logger.Warn("stream dropped", "error", err, "retry_in", c.ReconnectDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.ReconnectDelay):
		}
	}
}

// session dials once and reads until the connection ends. A normal close
// returns nil.
func (c *Client) session(ctx context.Context, out chan<- update.Event) error {
	header := http.Header{}
	if c.Token != "" {
		header.Set("Authorization", "Bearer "+c.Token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.URL, header)
	if err != nil {
		return fmt.Errorf("connect to stream: %w", err)
	}
	defer conn.Close()
	c.Logger.Info("connected to stream", "url", c.URL)

	// Unblock ReadMessage on cancel.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if typ != websocket.TextMessage {
			continue
		}

		var u telego.Update
		if err := json.Unmarshal(data, &u); err != nil {
			c.Logger.Warn("stream: skipping bad frame", "error", err)
			continue
		}

		select {
		case out <- update.NewEvent(u, c.Bot):
			c.Metrics.IncReceived("stream")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ErrNoURL is returned by Validate when the feed URL is missing.
var ErrNoURL = errors.New("stream: url is required")

// Validate reports configuration errors before Run is called.
func (c *Client) Validate() error {
	if c.URL == "" {
		return ErrNoURL
	}
	return nil
}
