
package sources

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// spread derives a buy/sell pair from a single mid rate.
func spread(rate, pct float64) Prices {
	return Prices{Buy: rate * (1 - pct), Sell: rate * (1 + pct)}
}

// Wise only publishes a mid-market rate.
var wiseStrategy = htmlStrategy(func(doc *goquery.Document, _ []byte) (Prices, error) {
	rate, ok := ParseUS(firstText(doc, `.rate, .conversion-rate, [class*="rate"]`))
	if !ok {
		return Prices{}, fmt.Errorf("wise: %w", errNoPrices)
	}
	return spread(rate, 0.0005), nil
})

var nubankStrategy = htmlStrategy(func(doc *goquery.Document, _ []byte) (Prices, error) {
	rates := allNumbers(doc, `.rate, .taxa, [class*="rate"], [class*="taxa"]`, ParseUS)
	if len(rates) == 0 {
		return Prices{}, fmt.Errorf("nubank: %w", errNoPrices)
	}
	return spread(rates[0], 0.001), nil
})

var nomadStrategy = htmlStrategy(func(doc *goquery.Document, _ []byte) (Prices, error) {
	prices := allNumbers(doc, `.price, .exchange-rate, [class*="rate"]`, ParseUS)
	switch {
	case len(prices) >= 2:
		return Prices{Buy: prices[0], Sell: prices[1]}, nil
	case len(prices) == 1:
		return spread(prices[0], 0.001), nil
	}
	return Prices{}, fmt.Errorf("nomad: %w", errNoPrices)
})
