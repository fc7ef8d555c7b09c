
package sources

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	usNumberRegex     = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	latinNumberRegex  = regexp.MustCompile(`\d+(?:\.\d{3})+(?:,\d+)?|\d+(?:,\d+)?`)
	pricePatternRegex = regexp.MustCompile(`\$?\s*(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{2})?)`)
)

// ParseUS reads the first number written with ',' as thousands separator
// and '.' as decimal point, e.g. "USD 1,430.50".
func ParseUS(text string) (float64, bool) {
	m := usNumberRegex.FindString(text)
	if m == "" {
		return 0, false
	}
	return toFloat(strings.ReplaceAll(m, ",", ""))
}

// ParseLatin reads the first number written with '.' as thousands separator
// and ',' as decimal point, e.g. "$1.430,00".
func ParseLatin(text string) (float64, bool) {
	m := latinNumberRegex.FindString(text)
	if m == "" {
		return 0, false
	}
	m = strings.ReplaceAll(m, ".", "")
	m = strings.Replace(m, ",", ".", 1)
	return toFloat(m)
}

// centsPatterns finds price-looking tokens anywhere in raw markup and reads
// them as integer cents once separators are stripped.
func centsPatterns(body []byte) []float64 {
	var out []float64
	for _, m := range pricePatternRegex.FindAllSubmatch(body, -1) {
		digits := strings.NewReplacer(".", "", ",", "").Replace(string(m[1]))
		v, ok := toFloat(digits)
		if !ok {
			continue
		}
		out = append(out, v/100)
	}
	return out
}

func toFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}
