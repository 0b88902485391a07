// Package ratelimit implements the fixed-window admission control used for
// invitation creation and login attempts. Counters reset at fixed boundaries
// rather than rolling; an entry past its reset time self-heals on the next
// Allow call, so Cleanup is purely a memory bound.
package ratelimit

import (
	"sync"
	"time"
)

type entry struct {
	count   int
	resetAt time.Time
}

// Result is the outcome of an admission check. Allowed is authoritative;
// Remaining and ResetAt are advisory metadata for user-facing messaging.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller has to wait until the window resets.
// Zero when the request was allowed or the window already elapsed.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed || !r.ResetAt.After(now) {
		return 0
	}
	return r.ResetAt.Sub(now)
}

// Limiter bounds a named operation to maxRequests per window, in process
// memory. It is safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	entries     map[string]*entry
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New builds a limiter allowing maxRequests per window.
func New(maxRequests int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		entries:     make(map[string]*entry),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow decides admission for key. The first call for a key, or any call after
// the key's window elapsed, starts a new window with count 1.
func (l *Limiter) Allow(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		e = &entry{count: 1, resetAt: now.Add(l.window)}
		l.entries[key] = e
		return Result{Allowed: true, Remaining: l.maxRequests - 1, ResetAt: e.resetAt}
	}

	if e.count >= l.maxRequests {
		return Result{Allowed: false, Remaining: 0, ResetAt: e.resetAt}
	}

	e.count++
	return Result{Allowed: true, Remaining: l.maxRequests - e.count, ResetAt: e.resetAt}
}

// Cleanup deletes entries whose window has elapsed. Allow self-heals expired
// entries anyway, so this only bounds memory growth between sweeps.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, key)
		}
	}
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
