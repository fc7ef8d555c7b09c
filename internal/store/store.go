// Package store persists quotes append-only and answers reads restricted to
// the freshness window.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Armin-kho/currencyhub/internal/quotes"
)

// Error wraps every persistence failure with the operation that failed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

type Option func(*clock)

// WithClock replaces time.Now as the store clock.
func WithClock(now func() time.Time) Option {
	return func(c *clock) { c.now = now }
}

// clock hands out millisecond-precision UTC stamps that never go backwards.
type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newClock(opts []Option) *clock {
	c := &clock{now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *clock) stamp() time.Time {
	t := c.now().UTC().Truncate(time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}

// cutoff is the oldest observed_at still inside window.
func (c *clock) cutoff(window time.Duration) time.Time {
	return c.now().UTC().Truncate(time.Millisecond).Add(-window)
}

// stampBatch copies qs with a shared observation time and batch id.
func stampBatch(qs []quotes.Quote, at time.Time) []quotes.Quote {
	batch := uuid.NewString()
	out := make([]quotes.Quote, len(qs))
	for i, q := range qs {
		q.ObservedAt = at
		q.BatchID = batch
		out[i] = q
	}
	return out
}
