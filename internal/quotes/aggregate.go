package quotes

import (
	"math"

	"github.com/shopspring/decimal"
)

type Average struct {
	AverageBuyPrice  float64 `json:"average_buy_price"`
	AverageSellPrice float64 `json:"average_sell_price"`
	QuoteCount       int     `json:"quote_count"`
}

type SlippageEntry struct {
	Source               string  `json:"source"`
	BuyPrice             float64 `json:"buy_price"`
	SellPrice            float64 `json:"sell_price"`
	BuyPriceSlippagePct  float64 `json:"buy_price_slippage"`
	SellPriceSlippagePct float64 `json:"sell_price_slippage"`
	AverageBuyPrice      float64 `json:"average_buy_price"`
	AverageSellPrice     float64 `json:"average_sell_price"`
}

// Round2 rounds half away from zero to 2 decimal places. NaN and ±Inf are
// returned unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func means(qs []Quote) (buy, sell float64) {
	for _, q := range qs {
		buy += q.BuyPrice
		sell += q.SellPrice
	}
	n := float64(len(qs))
	return buy / n, sell / n
}

// ComputeAverage returns the arithmetic mean of buy and sell prices. Rounding is
// applied to the output only.
func ComputeAverage(qs []Quote) (Average, error) {
	if len(qs) == 0 {
		return Average{}, ErrEmptyQuotes
	}
	buy, sell := means(qs)
	return Average{
		AverageBuyPrice:  Round2(buy),
		AverageSellPrice: Round2(sell),
		QuoteCount:       len(qs),
	}, nil
}

// ComputeSlippage returns the percentage deviation of every quote from the
// unrounded cross-source mean.
func ComputeSlippage(qs []Quote) ([]SlippageEntry, error) {
	if len(qs) == 0 {
		return nil, ErrEmptyQuotes
	}
	buy, sell := means(qs)
	if !usableBaseline(buy) || !usableBaseline(sell) {
		return nil, ErrZeroBaseline
	}
	out := make([]SlippageEntry, 0, len(qs))
	for _, q := range qs {
		out = append(out, SlippageEntry{
			Source:               q.Source,
			BuyPrice:             q.BuyPrice,
			SellPrice:            q.SellPrice,
			BuyPriceSlippagePct:  pctDiff(q.BuyPrice, buy),
			SellPriceSlippagePct: pctDiff(q.SellPrice, sell),
			AverageBuyPrice:      Round2(buy),
			AverageSellPrice:     Round2(sell),
		})
	}
	return out, nil
}

func usableBaseline(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func pctDiff(value, avg float64) float64 {
	return Round2((value - avg) / avg * 100)
}
