package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Armin-kho/currencyhub/internal/quotes"
)

type fakeService struct {
	current  []quotes.Quote
	history  []quotes.Quote
	average  quotes.Average
	slippage []quotes.SlippageEntry
	err      error
}

func (f *fakeService) Currency() quotes.Currency { return quotes.CurrencyARS }

func (f *fakeService) Current(context.Context) ([]quotes.Quote, error) { return f.current, f.err }

func (f *fakeService) History(context.Context) ([]quotes.Quote, error) { return f.history, f.err }

func (f *fakeService) Average(context.Context) (quotes.Average, error) { return f.average, f.err }

func (f *fakeService) Slippage(context.Context) ([]quotes.SlippageEntry, error) {
	return f.slippage, f.err
}

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestRouter(svc QuoteService, metrics http.Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	h := NewHandler(svc, logger)
	h.now = func() time.Time { return fixedNow }
	return NewRouter(h, metrics, logger)
}

func do(t *testing.T, r http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestQuotes_OK(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 59, 30, 123e6, time.UTC)
	svc := &fakeService{current: []quotes.Quote{
		{Source: "https://a.example", BuyPrice: 905, SellPrice: 925, Currency: quotes.CurrencyARS, ObservedAt: at},
	}}
	w := do(t, newTestRouter(svc, nil), http.MethodGet, "/quotes")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"buy_price":905,"sell_price":925,"source":"https://a.example","timestamp":"2024-05-01T09:59:30.123Z"}]`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestQuotes_NoneAvailable(t *testing.T) {
	svc := &fakeService{err: quotes.ErrNoQuotesAvailable}
	for _, path := range []string{"/quotes", "/average", "/slippage"} {
		w := do(t, newTestRouter(svc, nil), http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.JSONEq(t, `{"error":"No quotes available"}`, w.Body.String(), path)
	}
}

func TestInternalError(t *testing.T) {
	svc := &fakeService{err: errors.New("read current quotes: disk I/O error")}
	cases := map[string]string{
		"/quotes":         "Failed to fetch quotes",
		"/quotes/history": "Failed to read quote history",
		"/average":        "Failed to calculate average",
		"/slippage":       "Failed to calculate slippage",
	}
	for path, summary := range cases {
		w := do(t, newTestRouter(svc, nil), http.MethodGet, path)
		require.Equal(t, http.StatusInternalServerError, w.Code, path)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, summary, body["error"], path)
		assert.Equal(t, "read current quotes: disk I/O error", body["message"], path)
	}
}

func TestAverage_OK(t *testing.T) {
	svc := &fakeService{average: quotes.Average{AverageBuyPrice: 905, AverageSellPrice: 910, QuoteCount: 2}}
	w := do(t, newTestRouter(svc, nil), http.MethodGet, "/average")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"average_buy_price":905,"average_sell_price":910,"quote_count":2,"timestamp":"2024-05-01T10:00:00.000Z"}`, w.Body.String())
}

func TestSlippage_OK(t *testing.T) {
	svc := &fakeService{slippage: []quotes.SlippageEntry{{
		Source: "s1", BuyPrice: 900, SellPrice: 905,
		BuyPriceSlippagePct: -0.55, SellPriceSlippagePct: -0.55,
		AverageBuyPrice: 905, AverageSellPrice: 910,
	}}}
	w := do(t, newTestRouter(svc, nil), http.MethodGet, "/slippage")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"buy_price_slippage":-0.55,"sell_price_slippage":-0.55,"source":"s1","buy_price":900,"sell_price":905,"average_buy_price":905,"average_sell_price":910}]`, w.Body.String())
}

func TestHistory_EmptyIsArray(t *testing.T) {
	w := do(t, newTestRouter(&fakeService{}, nil), http.MethodGet, "/quotes/history")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestHealthAndIndex(t *testing.T) {
	r := newTestRouter(&fakeService{}, nil)

	w := do(t, r, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","timestamp":"2024-05-01T10:00:00.000Z"}`, w.Body.String())

	w = do(t, r, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ARS", body["currency"])
	assert.Contains(t, body["endpoints"], "slippage")
}

func TestCORSPreflight(t *testing.T) {
	w := do(t, newTestRouter(&fakeService{}, nil), http.MethodOptions, "/quotes")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsRoute(t *testing.T) {
	m := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	w := do(t, newTestRouter(&fakeService{}, m), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# metrics\n", w.Body.String())

	w = do(t, newTestRouter(&fakeService{}, nil), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
