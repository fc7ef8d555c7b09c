package quotes

import (
	"errors"
	"sort"
	"time"
)

// Currency is the quoted currency of a source set.
type Currency string

const (
	CurrencyARS Currency = "ARS"
	CurrencyBRL Currency = "BRL"
)

// Quote is one normalized buy/sell observation from a single source.
// ObservedAt and BatchID stay zero until a store persists the quote.
type Quote struct {
	Source     string    `json:"source"`
	BuyPrice   float64   `json:"buy_price"`
	SellPrice  float64   `json:"sell_price"`
	Currency   Currency  `json:"currency"`
	ObservedAt time.Time `json:"observed_at"`
	BatchID    string    `json:"batch_id,omitempty"`
}

var (
	// ErrNoQuotesAvailable means a whole fetch cycle produced nothing.
	ErrNoQuotesAvailable = errors.New("no quotes available")
	ErrEmptyQuotes       = errors.New("empty quote set")
	ErrZeroBaseline      = errors.New("slippage baseline is zero")
)

// Latest collapses rows to the newest quote per source. For equal
// timestamps the later row in input order wins. Output is sorted by source.
func Latest(rows []Quote) []Quote {
	latest := make(map[string]Quote, len(rows))
	for _, q := range rows {
		cur, ok := latest[q.Source]
		if !ok || !q.ObservedAt.Before(cur.ObservedAt) {
			latest[q.Source] = q
		}
	}
	out := make([]Quote, 0, len(latest))
	for _, q := range latest {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}
