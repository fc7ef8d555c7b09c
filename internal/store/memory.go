package store

import (
	"context"
	"sync"
	"time"

	"github.com/Armin-kho/currencyhub/internal/quotes"
)

var _ quotes.Store = (*Memory)(nil)

// Memory keeps rows in process memory.
type Memory struct {
	window time.Duration
	clk    *clock

	mu   sync.RWMutex
	rows []quotes.Quote
}

func NewMemory(window time.Duration, opts ...Option) *Memory {
	return &Memory{window: window, clk: newClock(opts)}
}

func (m *Memory) Append(_ context.Context, qs []quotes.Quote) ([]quotes.Quote, error) {
	if len(qs) == 0 {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stamped := stampBatch(qs, m.clk.stamp())
	m.rows = append(m.rows, stamped...)
	return append([]quotes.Quote(nil), stamped...), nil
}

func (m *Memory) ReadCurrent(_ context.Context, cur quotes.Currency) ([]quotes.Quote, error) {
	rows, err := m.inWindow(cur)
	if err != nil {
		return nil, err
	}
	return quotes.Latest(rows), nil
}

// ReadCurrentRaw returns every row in the window, newest first.
func (m *Memory) ReadCurrentRaw(_ context.Context, cur quotes.Currency) ([]quotes.Quote, error) {
	rows, err := m.inWindow(cur)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (m *Memory) inWindow(cur quotes.Currency) ([]quotes.Quote, error) {
	cutoff := m.clk.cutoff(m.window)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []quotes.Quote
	for _, q := range m.rows {
		if q.Currency == cur && !q.ObservedAt.Before(cutoff) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *Memory) Prune(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	var n int64
	for _, q := range m.rows {
		if q.ObservedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, q)
	}
	m.rows = kept
	return n, nil
}

func (m *Memory) Close() error { return nil }
