// Package ratelimit implements a per-client sliding-window request limiter.
//
// State is process-local; each Limiter owns an independent table keyed by
// client identifier, so per-route instances with distinct parameters never
// share state. Porting to multiple instances would require an external
// shared store, which is out of scope.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	// Limit is the configured maximum for the window.
	Limit int
	// Remaining is how many requests the client has left in the window.
	// Zero when the request was rejected.
	Remaining int
	// RetryAfter is the whole seconds the client should wait before
	// retrying. Only set on rejection, always at least 1.
	RetryAfter int
	// ResetAt is when a full window's worth of requests becomes available
	// again. Only set on admission.
	ResetAt time.Time
}

// MetricsRecorder receives admission outcomes for observability.
type MetricsRecorder interface {
	RequestAdmitted()
	RequestRejected()
}

// Limiter admits or rejects requests based on how many timestamps a client
// has accumulated inside the trailing window.
type Limiter struct {
	window        time.Duration
	maxRequests   int
	sweepInterval time.Duration
	now           func() time.Time

	mu      sync.Mutex
	clients map[string][]time.Time

	metricsRecorder MetricsRecorder
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithSweepInterval overrides how often the janitor prunes idle clients.
func WithSweepInterval(interval time.Duration) Option {
	return func(l *Limiter) { l.sweepInterval = interval }
}

// WithNow swaps the time source. Useful for testing.
func WithNow(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithMetrics makes the limiter report admissions and rejections.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(l *Limiter) { l.metricsRecorder = recorder }
}

// New creates a limiter admitting at most maxRequests per client within the
// trailing window.
func New(window time.Duration, maxRequests int, opts ...Option) *Limiter {
	if window <= 0 || maxRequests < 1 {
		panic("ratelimit: window and maxRequests must be positive")
	}

	l := &Limiter{
		window:        window,
		maxRequests:   maxRequests,
		sweepInterval: time.Hour,
		now:           time.Now,
		clients:       make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit decides whether the client identified by clientKey may proceed.
// Stale timestamps are pruned before every decision, so a client that went
// quiet for longer than the window starts from an empty sequence.
func (l *Limiter) Admit(clientKey string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.clients[clientKey]
	fresh := history[:0]
	for _, ts := range history {
		if now.Sub(ts) < l.window {
			fresh = append(fresh, ts)
		}
	}

	if len(fresh) >= l.maxRequests {
		l.clients[clientKey] = fresh
		retryAfter := int((fresh[0].Add(l.window).Sub(now) + time.Second - 1) / time.Second)
		if retryAfter < 1 {
			retryAfter = 1
		}
		if l.metricsRecorder != nil {
			l.metricsRecorder.RequestRejected()
		}
		return Decision{
			Allowed:    false,
			Limit:      l.maxRequests,
			RetryAfter: retryAfter,
		}
	}

	fresh = append(fresh, now)
	l.clients[clientKey] = fresh

	if l.metricsRecorder != nil {
		l.metricsRecorder.RequestAdmitted()
	}
	return Decision{
		Allowed:   true,
		Limit:     l.maxRequests,
		Remaining: l.maxRequests - len(fresh),
		ResetAt:   now.Add(l.window),
	}
}

// Size returns the number of clients currently tracked.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// sweep drops clients whose most recent request is older than one full
// window, bounding memory for clients that stopped sending traffic.
func (l *Limiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, history := range l.clients {
		if len(history) == 0 || now.Sub(history[len(history)-1]) > l.window {
			delete(l.clients, key)
		}
	}
}

// StartJanitor launches the background sweep. It runs independently of
// request handling, never blocks admission decisions beyond the shared
// table lock, and stops when ctx is cancelled.
func (l *Limiter) StartJanitor(ctx context.Context) {
	ticker := time.NewTicker(l.sweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()
}
