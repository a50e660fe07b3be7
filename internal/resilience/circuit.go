// Package resilience guards outbound dependencies of the worker, such as the
// mail relay, with a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks failures.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen lets a single trial call through to test recovery.
	HalfOpen
)

var stateNames = map[State]string{
	Closed:   "closed",
	Open:     "open",
	HalfOpen: "half_open",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func stateGaugeValue(s State) float64 {
	switch s {
	case Closed, Open, HalfOpen:
		return float64(s)
	}
	return -1
}

// window counts outcomes observed while closed. It halves itself once it holds
// more than twice the minimum sample so old outcomes fade.
type window struct {
	ok, failed int
}

func (w *window) add(success bool) {
	if success {
		w.ok++
	} else {
		w.failed++
	}
}

func (w *window) total() int { return w.ok + w.failed }

func (w *window) ratio() float64 {
	if w.total() == 0 {
		return 0
	}
	return float64(w.failed) / float64(w.total())
}

func (w *window) decay() {
	w.ok = (w.ok + 1) / 2
	w.failed = (w.failed + 1) / 2
}

// Breaker implements a failure-ratio circuit breaker. It opens once at least
// minRequests outcomes are observed and the failure ratio reaches the
// threshold, rejects calls for openFor, then admits one trial call whose outcome
// closes or reopens it.
type Breaker struct {
	mu           sync.Mutex
	state        State
	counts       window
	trialing      bool
	minRequests  int
	failureRatio float64
	openFor      time.Duration
	openedAt     time.Time
	now          func() time.Time

	target  string
	logger  zerolog.Logger
	metrics *BreakerMetrics
}

// NewBreaker constructs a closed breaker. Non-positive arguments fall back to
// one request, a 0.5 ratio and a 30 second cool-off.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	switch {
	case failureRatio <= 0:
		failureRatio = 0.5
	case failureRatio > 1:
		failureRatio = 1
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		now:          time.Now,
		target:       "default",
		logger:       zerolog.Nop(),
	}
}

// WithTarget names the guarded dependency in logs and metric labels.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t := strings.TrimSpace(target); t != "" {
		b.target = t
	}
	b.metrics.state(b.target, b.state)
	return b
}

// WithLogger configures the logger used for transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
	return b
}

// WithMetrics attaches the collectors updated on every state change.
func (b *Breaker) WithMetrics(m *BreakerMetrics) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = m
	b.metrics.state(b.target, b.state)
	return b
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. An open breaker whose cool-off has
// elapsed moves to half-open and admits exactly one trial call.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.openedAt) < b.openFor {
			return false
		}
		b.transitionLocked(ctx, HalfOpen)
		b.trialing = true
		return true
	default:
		if b.trialing {
			return false
		}
		b.trialing = true
		return true
	}
}

// Report records the outcome of an admitted call.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.trialing = false
		if success {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	}

	b.counts.add(success)
	if b.counts.total() < b.minRequests {
		return
	}
	if b.counts.ratio() >= b.failureRatio {
		b.transitionLocked(ctx, Open)
		return
	}
	if b.counts.total() > 2*b.minRequests {
		b.counts.decay()
	}
}

// Do runs fn when the breaker allows it and reports the outcome. Errors for
// which ignore returns true count as successes, so caller mistakes do not trip
// the breaker.
func (b *Breaker) Do(ctx context.Context, ignore func(error) bool, fn func(context.Context) error) error {
	if !b.Allow(ctx) {
		return ErrOpenCircuit
	}
	err := fn(ctx)
	b.Report(ctx, err == nil || (ignore != nil && ignore(err)))
	return err
}

func (b *Breaker) transitionLocked(ctx context.Context, next State) {
	prev := b.state
	b.state = next
	b.counts = window{}
	switch next {
	case Open:
		b.openedAt = b.now()
	case Closed:
		b.openedAt = time.Time{}
	}
	b.metrics.state(b.target, next)
	if prev == next {
		return
	}
	b.metrics.transition(b.target, prev, next)

	logger := b.logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		logger = *l
	}
	evt := logger.Info().Str("target", b.target).Str("from_state", prev.String()).Str("to_state", next.String())
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Msg("breaker_transition")
}
