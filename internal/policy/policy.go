// Package policy decides what happens to updates the demultiplexer cannot
// deliver: either no arm is declared for their kind, or the arm's consumer
// has gone away.
package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Enriquefft/tgdispatch/internal/update"
)

var (
	// ErrUnmatched is the cause when no arm is declared for the event's kind.
	ErrUnmatched = errors.New("no arm for update kind")
	// ErrArmClosed is the cause when the arm's consumer has closed it.
	ErrArmClosed = errors.New("arm closed by consumer")
	// ErrFatal marks errors that must stop the pipeline.
	ErrFatal = errors.New("undeliverable update")
)

// UndeliverableError carries the event that could not be delivered.
type UndeliverableError struct {
	Event update.Event
	Cause error
}

func (e *UndeliverableError) Error() string {
	return fmt.Sprintf("update %d (%s): %v", e.Event.ID(), e.Event.Kind(), e.Cause)
}

func (e *UndeliverableError) Unwrap() error { return e.Cause }

// Policy handles an undeliverable event. A non-nil return stops the
// pipeline and is returned from the demultiplexer's Run.
type Policy interface {
	Handle(ctx context.Context, ev update.Event, cause error) error
}

// Func adapts a function to Policy.
type Func func(ctx context.Context, ev update.Event, cause error) error

func (f Func) Handle(ctx context.Context, ev update.Event, cause error) error {
	return f(ctx, ev, cause)
}

// Panicking stops the pipeline on the first undeliverable event.
func Panicking() Policy {
	return Func(func(_ context.Context, ev update.Event, cause error) error {
		return fmt.Errorf("%w: %w", ErrFatal, &UndeliverableError{Event: ev, Cause: cause})
	})
}

// Ignoring drops undeliverable events silently.
func Ignoring() Policy {
	return Func(func(context.Context, update.Event, error) error { return nil })
}

// Logging records undeliverable events at warn level and continues.
func Logging(logger *slog.Logger) Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return Func(func(ctx context.Context, ev update.Event, cause error) error {
		logger.WarnContext(ctx, "dropping undeliverable update",
			"update_id", ev.ID(),
			"kind", ev.Kind().String(),
			"session", sessionID(ev),
			"error", cause,
		)
		return nil
	})
}

// FromName selects a policy by its configuration name.
func FromName(name string, logger *slog.Logger) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "panicking", "panic":
		return Panicking(), nil
	case "ignoring", "ignore":
		return Ignoring(), nil
	case "logging", "log", "":
		return Logging(logger), nil
	default:
		return nil, fmt.Errorf("unknown error policy %q", name)
	}
}

func sessionID(ev update.Event) string {
	if ev.Session == nil {
		return ""
	}
	return ev.Session.ID.String()
}
