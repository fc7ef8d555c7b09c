package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgentinaStrategies(t *testing.T) {
	cases := []struct {
		name     string
		strategy Strategy
		html     string
		want     Prices
	}{
		{
			name:     "ambito classes",
			strategy: ambitoStrategy,
			html:     `<div class="data-compra">1,420.00</div><div class="data-venta">1,440.00</div>`,
			want:     Prices{Buy: 1420, Sell: 1440},
		},
		{
			name:     "ambito ignores generic value class",
			strategy: ambitoStrategy,
			html:     `<span class="value">999.00</span><div class="compra">1,420.00</div><div class="venta">1,440.00</div>`,
			want:     Prices{Buy: 1420, Sell: 1440},
		},
		{
			name:     "ambito bare tokens",
			strategy: ambitoStrategy,
			html:     `<p>Blue $1.400,00 / $1.420,00</p>`,
			want:     Prices{Buy: 1400, Sell: 1420},
		},
		{
			name:     "dolarhoy",
			strategy: dolarHoyStrategy,
			html:     `<div class="compra"><span class="val">$1415</span></div><div class="venta"><span class="val">$1435</span></div>`,
			want:     Prices{Buy: 1415, Sell: 1435},
		},
		{
			name:     "cronista",
			strategy: cronistaStrategy,
			html:     `<table><tr><td class="buy">Valor de compra$1.430,00</td><td class="sell">Valor de venta$1.450,50</td></tr></table>`,
			want:     Prices{Buy: 1430, Sell: 1450.5},
		},
		{
			name:     "cronista div layout",
			strategy: cronistaStrategy,
			html:     `<html><body><div class="buy">Compra $1.012,75</div><div class="sell">Venta $1.052,25</div></body></html>`,
			want:     Prices{Buy: 1012.75, Sell: 1052.25},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.strategy.Extract([]byte(c.html))
			require.NoError(t, err)
			assert.InDelta(t, c.want.Buy, got.Buy, 1e-9)
			assert.InDelta(t, c.want.Sell, got.Sell, 1e-9)
		})
	}
}

func TestBrazilStrategies(t *testing.T) {
	got, err := wiseStrategy.Extract([]byte(`<span class="conversion-rate">5.4000</span>`))
	require.NoError(t, err)
	assert.InDelta(t, 5.4*0.9995, got.Buy, 1e-9)
	assert.InDelta(t, 5.4*1.0005, got.Sell, 1e-9)

	got, err = nubankStrategy.Extract([]byte(`<p class="taxa">R$ 5.50</p><p class="taxa">R$ 6.00</p>`))
	require.NoError(t, err)
	assert.InDelta(t, 5.5*0.999, got.Buy, 1e-9)

	got, err = nomadStrategy.Extract([]byte(`<b class="price">5.41</b><b class="price">5.47</b>`))
	require.NoError(t, err)
	assert.Equal(t, Prices{Buy: 5.41, Sell: 5.47}, got)

	got, err = nomadStrategy.Extract([]byte(`<b class="exchange-rate">5.00</b>`))
	require.NoError(t, err)
	assert.InDelta(t, 4.995, got.Buy, 1e-9)
	assert.InDelta(t, 5.005, got.Sell, 1e-9)
}

func TestStrategies_MissingMarkup(t *testing.T) {
	for name, s := range map[string]Strategy{
		"dolarhoy": dolarHoyStrategy,
		"cronista": cronistaStrategy,
		"wise":     wiseStrategy,
		"nubank":   nubankStrategy,
		"nomad":    nomadStrategy,
	} {
		_, err := s.Extract([]byte(`<html><body>maintenance</body></html>`))
		assert.ErrorIs(t, err, errNoPrices, name)
	}
}
