// Package webhook receives updates pushed by Telegram to an HTTPS endpoint.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mymmrac/telego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Enriquefft/tgdispatch/internal/delivery"
	"github.com/Enriquefft/tgdispatch/internal/metrics"
	"github.com/Enriquefft/tgdispatch/internal/update"
)

// SecretHeader carries the secret_token given to setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// DefaultPath is the route updates are posted to.
const DefaultPath = "/webhook"

const maxBodyBytes = 1 << 20

// Server is an HTTP webhook receiver that implements delivery.Source.
type Server struct {
	Addr string
	Path string
	// Secret, when set, must match the SecretHeader of every request.
	Secret string
	Bot    update.Sender

	// Gatherer backs GET /metrics. Nil serves the default registry.
	Gatherer prometheus.Gatherer
	Metrics  *metrics.Collectors
	Logger   *slog.Logger
}

var _ delivery.Source = (*Server)(nil)

// Run starts the HTTP server and emits updates on out. It blocks until ctx is
// cancelled, at which point the server is shut down gracefully.
func (s *Server) Run(ctx context.Context, out chan<- update.Event) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(ctx, out),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("webhook listen: %w", err)
	}
	s.logger().Info("webhook server listening", "addr", ln.Addr().String(), "path", s.path())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook serve: %w", err)
	}
	return ctx.Err()
}

// Handler returns the router. Updates posted to it are sent on out until ctx
// is cancelled.
func (s *Server) Handler(ctx context.Context, out chan<- update.Event) http.Handler {
	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Post(s.path(), s.handleUpdate(ctx, out))
	r.Get("/health", handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func (s *Server) handleUpdate(ctx context.Context, out chan<- update.Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Secret != "" {
			got := r.Header.Get(SecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.Secret)) != 1 {
				s.logger().Warn("webhook: secret token mismatch", "remote", r.RemoteAddr)
				http.Error(w, "invalid secret token", http.StatusUnauthorized)
				return
			}
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "read error", http.StatusBadRequest)
			return
		}

		var u telego.Update
		if err := json.Unmarshal(body, &u); err != nil {
			s.logger().Warn("webhook: invalid JSON", "error", err)
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		ev := update.NewEvent(u, s.Bot)
		select {
		case out <- ev:
		case <-ctx.Done():
			// Telegram redelivers on a non-2xx answer.
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		case <-r.Context().Done():
			return
		}

		s.Metrics.IncReceived("webhook")
		s.logger().Debug("webhook: received update", "update_id", u.UpdateID, "kind", ev.Kind())
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) path() string {
	if s.Path == "" {
		return DefaultPath
	}
	return s.Path
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// handleHealth returns 200 OK; used by the CLI status command.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}
