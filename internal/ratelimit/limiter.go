// Package ratelimit implements per-client dual-window token buckets.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// WindowBurst names the short window.
	WindowBurst = "burst"
	// WindowSustained names the long window.
	WindowSustained = "sustained"

	defaultMaxClients = 10000
)

// Window is a bucket capacity refilled evenly over Period.
type Window struct {
	Max    int
	Period time.Duration
}

func (w Window) interval() time.Duration {
	if w.Max <= 0 {
		return 0
	}
	return w.Period / time.Duration(w.Max)
}

// Options configures a Limiter.
type Options struct {
	Burst     Window
	Sustained Window
	// MaxClients caps the tracked client table; the least recently seen client is evicted.
	MaxClients int
	// Now replaces the wall clock in tests.
	Now func() time.Time
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	// Window names the exhausted bucket when rejected.
	Window string
}

type bucket struct {
	tokens int
	last   time.Time
}

// refill adds whole tokens earned since last, capped at the window maximum.
func (b *bucket) refill(w Window, now time.Time) {
	interval := w.interval()
	if interval <= 0 {
		b.tokens, b.last = w.Max, now
		return
	}
	add := int(now.Sub(b.last) / interval)
	if add <= 0 {
		return
	}
	b.tokens = min(w.Max, b.tokens+add)
	if b.tokens == w.Max {
		b.last = now
		return
	}
	b.last = b.last.Add(time.Duration(add) * interval)
}

func (b *bucket) retryAfter(w Window, now time.Time) time.Duration {
	wait := w.interval() - now.Sub(b.last)
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

type clientState struct {
	burst     bucket
	sustained bucket
}

// Limiter admits requests per client id. It is safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	clients   *lru.Cache[string, *clientState]
	burst     Window
	sustained Window
	now       func() time.Time
}

// New builds a Limiter.
func New(opts Options) (*Limiter, error) {
	if opts.Burst.Max <= 0 || opts.Burst.Period <= 0 {
		return nil, fmt.Errorf("burst window must be positive, got %d per %s", opts.Burst.Max, opts.Burst.Period)
	}
	if opts.Sustained.Max <= 0 || opts.Sustained.Period <= 0 {
		return nil, fmt.Errorf("sustained window must be positive, got %d per %s", opts.Sustained.Max, opts.Sustained.Period)
	}
	size := opts.MaxClients
	if size <= 0 {
		size = defaultMaxClients
	}
	clients, err := lru.New[string, *clientState](size)
	if err != nil {
		return nil, fmt.Errorf("client table: %w", err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Limiter{clients: clients, burst: opts.Burst, sustained: opts.Sustained, now: now}, nil
}

// Admit consumes one token from both buckets of id, or rejects without
// consuming anything when either bucket is empty.
func (l *Limiter) Admit(id string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	state := l.state(id, now)

	var d Decision
	if state.burst.tokens < 1 {
		d = Decision{RetryAfter: state.burst.retryAfter(l.burst, now), Window: WindowBurst}
	}
	if state.sustained.tokens < 1 {
		wait := state.sustained.retryAfter(l.sustained, now)
		if d.Window == "" || wait > d.RetryAfter {
			d = Decision{RetryAfter: wait, Window: WindowSustained}
		}
	}
	if d.Window != "" {
		return d
	}

	state.burst.tokens--
	state.sustained.tokens--
	return Decision{Allowed: true}
}

// Available reports the tokens id could spend right now.
func (l *Limiter) Available(id string) (burst, sustained int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.state(id, l.now())
	return state.burst.tokens, state.sustained.tokens
}

// Clients returns the number of tracked clients.
func (l *Limiter) Clients() int {
	return l.clients.Len()
}

func (l *Limiter) state(id string, now time.Time) *clientState {
	state, ok := l.clients.Get(id)
	if !ok {
		state = &clientState{
			burst:     bucket{tokens: l.burst.Max, last: now},
			sustained: bucket{tokens: l.sustained.Max, last: now},
		}
		l.clients.Add(id, state)
		return state
	}
	state.burst.refill(l.burst, now)
	state.sustained.refill(l.sustained, now)
	return state
}
