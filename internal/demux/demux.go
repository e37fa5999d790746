// Package demux partitions one ordered stream of updates into per-kind
// streams.
//
// A single driver pulls from the source and hands each update to the arm
// declared for its kind. Delivery into an arm blocks while the arm's channel
// is full, and because the driver is sequential a stalled arm stalls every
// other arm as well. Updates with no arm, or whose arm has been closed by its
// consumer, go to the configured policy.
package demux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Enriquefft/tgdispatch/internal/metrics"
	"github.com/Enriquefft/tgdispatch/internal/policy"
	"github.com/Enriquefft/tgdispatch/internal/update"
)

// DefaultCapacity is the buffer size of each arm channel.
const DefaultCapacity = 16

var (
	ErrDuplicateArm = errors.New("demux: arm already declared for kind")
	ErrInvalidKind  = errors.New("demux: invalid kind")
	ErrStarted      = errors.New("demux: already started")
)

// Arm is the output side of one declared kind.
type Arm struct {
	kind update.Kind
	ch   chan update.Event
	done chan struct{}
	once sync.Once
}

// Kind returns the discriminant this arm receives.
func (a *Arm) Kind() update.Kind { return a.kind }

// C returns the channel the arm's events arrive on. It is closed when the
// driver stops.
func (a *Arm) C() <-chan update.Event { return a.ch }

// Close tells the driver the consumer is gone. Later events for this kind go
// to the policy. Close is safe to call more than once and from any goroutine.
func (a *Arm) Close() {
	a.once.Do(func() { close(a.done) })
}

func (a *Arm) closed() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// Demux routes updates to arms by kind.
type Demux struct {
	mu      sync.Mutex
	arms    map[update.Kind]*Arm
	started bool

	capacity int
	policy   policy.Policy
	metrics  *metrics.Collectors
	logger   *slog.Logger
}

// Option configures a Demux.
type Option func(*Demux)

// WithCapacity sets the buffer size of every arm channel. Zero makes arms
// unbuffered.
func WithCapacity(n int) Option {
	return func(d *Demux) {
		if n >= 0 {
			d.capacity = n
		}
	}
}

// WithPolicy sets the policy for undeliverable updates.
func WithPolicy(p policy.Policy) Option {
	return func(d *Demux) { d.policy = p }
}

// WithMetrics reports routing outcomes to c.
func WithMetrics(c *metrics.Collectors) Option {
	return func(d *Demux) { d.metrics = c }
}

// WithLogger sets the logger, which also backs the default logging policy.
func WithLogger(l *slog.Logger) Option {
	return func(d *Demux) { d.logger = l }
}

// New creates a Demux with no arms.
func New(opts ...Option) *Demux {
	d := &Demux{
		arms:     make(map[update.Kind]*Arm),
		capacity: DefaultCapacity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.policy == nil {
		d.policy = policy.Logging(d.logger)
	}
	return d
}

// Declare adds an arm for kind. Kinds must be distinct across arms.
func (d *Demux) Declare(kind update.Kind) (*Arm, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKind, kind)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return nil, ErrStarted
	}
	if _, ok := d.arms[kind]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateArm, kind)
	}

	arm := &Arm{
		kind: kind,
		ch:   make(chan update.Event, d.capacity),
		done: make(chan struct{}),
	}
	d.arms[kind] = arm
	return arm, nil
}

// MustDeclare is Declare for wiring code; it panics on error.
func (d *Demux) MustDeclare(kind update.Kind) *Arm {
	arm, err := d.Declare(kind)
	if err != nil {
		panic(err)
	}
	return arm
}

// Undeclared lists the routable kinds that have no arm.
func (d *Demux) Undeclared() []update.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []update.Kind
	for _, k := range update.Kinds() {
		if _, ok := d.arms[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// Run drives src until it is closed, ctx is done or the policy returns an
// error. It runs on the caller's goroutine and closes every arm channel
// before returning. Run may be called once.
func (d *Demux) Run(ctx context.Context, src <-chan update.Event) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return ErrStarted
	}
	d.started = true
	d.mu.Unlock()

	defer d.closeArms()

	for {
		var (
			ev update.Event
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok = <-src:
		}
		if !ok {
			d.logger.Debug("demux: source exhausted")
			return nil
		}

		if err := d.route(ctx, ev); err != nil {
			return err
		}
	}
}

func (d *Demux) route(ctx context.Context, ev update.Event) error {
	arm, ok := d.arms[ev.Kind()]
	if !ok {
		return d.undeliverable(ctx, ev, policy.ErrUnmatched)
	}
	if arm.closed() {
		return d.undeliverable(ctx, ev, policy.ErrArmClosed)
	}

	select {
	case arm.ch <- ev:
		d.metrics.IncRouted(ev.Kind().String())
		return nil
	case <-arm.done:
		return d.undeliverable(ctx, ev, policy.ErrArmClosed)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Demux) undeliverable(ctx context.Context, ev update.Event, cause error) error {
	reason := "unmatched"
	if errors.Is(cause, policy.ErrArmClosed) {
		reason = "arm_closed"
	}
	d.metrics.IncUndeliverable(ev.Kind().String(), reason)

	return d.policy.Handle(ctx, ev, cause)
}

func (d *Demux) closeArms() {
	for _, arm := range d.arms {
		close(arm.ch)
	}
}
