
package sources

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// Ambito marks prices with compra/venta classes; older layouts only expose
// bare price tokens, which are read in page order.
var ambitoStrategy = htmlStrategy(func(doc *goquery.Document, body []byte) (Prices, error) {
	buy, okBuy := ParseUS(firstText(doc, `.compra, [class*="buy"], [class*="compra"]`))
	sell, okSell := ParseUS(firstText(doc, `.venta, [class*="sell"], [class*="venta"]`))
	if okBuy && okSell {
		return Prices{Buy: buy, Sell: sell}, nil
	}
	if vals := centsPatterns(body); len(vals) >= 2 {
		return Prices{Buy: vals[0], Sell: vals[1]}, nil
	}
	return Prices{}, fmt.Errorf("ambito: %w", errNoPrices)
})

var dolarHoyStrategy = htmlStrategy(func(doc *goquery.Document, _ []byte) (Prices, error) {
	buy, okBuy := ParseUS(firstText(doc, `.compra .val, .buy .val, [class*="compra"] .val`))
	sell, okSell := ParseUS(firstText(doc, `.venta .val, .sell .val, [class*="venta"] .val`))
	if !okBuy || !okSell {
		return Prices{}, fmt.Errorf("dolarhoy: %w", errNoPrices)
	}
	return Prices{Buy: buy, Sell: sell}, nil
})

// Cronista prints "Valor de compra$1.430,00" style labels.
var cronistaStrategy = htmlStrategy(func(doc *goquery.Document, _ []byte) (Prices, error) {
	buy, okBuy := ParseLatin(firstText(doc, `.buy`))
	sell, okSell := ParseLatin(firstText(doc, `.sell`))
	if !okBuy || !okSell {
		return Prices{}, fmt.Errorf("cronista: %w", errNoPrices)
	}
	return Prices{Buy: buy, Sell: sell}, nil
})
