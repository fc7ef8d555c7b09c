
package sources

import (
	"bytes"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Prices is the raw pair a strategy extracts from a page. Validation and
// rounding happen in the fetcher.
type Prices struct {
	Buy  float64
	Sell float64
}

// Strategy turns a fetched page into a buy/sell pair.
type Strategy interface {
	Extract(body []byte) (Prices, error)
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(body []byte) (Prices, error)

func (f StrategyFunc) Extract(body []byte) (Prices, error) { return f(body) }

// Descriptor is one configured source. Name is unique within a currency.
type Descriptor struct {
	Name     string
	URL      string
	Strategy Strategy
}

// htmlStrategy parses the body once and hands the document to fn.
func htmlStrategy(fn func(doc *goquery.Document, body []byte) (Prices, error)) Strategy {
	return StrategyFunc(func(body []byte) (Prices, error) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return Prices{}, err
		}
		return fn(doc, body)
	})
}

// firstText returns the trimmed text of the first element matching selector.
func firstText(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

// allNumbers parses a number out of every element matching selector.
func allNumbers(doc *goquery.Document, selector string, parse func(string) (float64, bool)) []float64 {
	var out []float64
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, ok := parse(strings.TrimSpace(s.Text())); ok {
			out = append(out, v)
		}
	})
	return out
}

var errNoPrices = errors.New("could not parse prices")
