
package sources

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Armin-kho/currencyhub/internal/quotes"
)

var catalog = map[quotes.Currency][]Descriptor{
	quotes.CurrencyARS: {
		{Name: "Ambito", URL: "https://www.ambito.com/contenidos/dolar.html", Strategy: ambitoStrategy},
		{Name: "DolarHoy", URL: "https://www.dolarhoy.com", Strategy: dolarHoyStrategy},
		{Name: "Cronista", URL: "https://www.cronista.com/MercadosOnline/moneda.html?id=ARSB", Strategy: cronistaStrategy},
	},
	quotes.CurrencyBRL: {
		{Name: "Wise", URL: "https://wise.com/es/currency-converter/brl-to-usd-rate", Strategy: wiseStrategy},
		{Name: "Nubank", URL: "https://nubank.com.br/taxas-conversao/", Strategy: nubankStrategy},
		{Name: "Nomad", URL: "https://www.nomadglobal.com", Strategy: nomadStrategy},
	},
}

// Currencies lists every currency with a source set, sorted.
func Currencies() []quotes.Currency {
	out := make([]quotes.Currency, 0, len(catalog))
	for c := range catalog {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func Supported(cur quotes.Currency) bool {
	_, ok := catalog[cur]
	return ok
}

// ForCurrency returns a copy of the source set for cur. overrides replaces
// the URL of a source by name (case-insensitive); unknown names are an error.
func ForCurrency(cur quotes.Currency, overrides map[string]string) ([]Descriptor, error) {
	base, ok := catalog[cur]
	if !ok {
		return nil, fmt.Errorf("unsupported currency %q", cur)
	}
	out := make([]Descriptor, len(base))
	copy(out, base)

	for name, u := range overrides {
		found := false
		for i := range out {
			if strings.EqualFold(out[i].Name, name) {
				out[i].URL = u
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("source_urls: no %s source named %q", cur, name)
		}
	}
	return out, nil
}
