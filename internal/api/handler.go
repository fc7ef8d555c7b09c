package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Armin-kho/currencyhub/internal/quotes"
)

// timeLayout matches ISO-8601 with millisecond precision in UTC.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

const version = "1.0.0"

// QuoteService is what the HTTP layer needs from quotes.Service.
type QuoteService interface {
	Currency() quotes.Currency
	Current(ctx context.Context) ([]quotes.Quote, error)
	History(ctx context.Context) ([]quotes.Quote, error)
	Average(ctx context.Context) (quotes.Average, error)
	Slippage(ctx context.Context) ([]quotes.SlippageEntry, error)
}

type Handler struct {
	svc QuoteService
	log logrus.FieldLogger
	now func() time.Time
}

type quoteResponse struct {
	BuyPrice  float64 `json:"buy_price"`
	SellPrice float64 `json:"sell_price"`
	Source    string  `json:"source"`
	Timestamp string  `json:"timestamp"`
}

type averageResponse struct {
	quotes.Average
	Timestamp string `json:"timestamp"`
}

func NewHandler(svc QuoteService, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{svc: svc, log: log, now: time.Now}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.Index)
	r.GET("/health", h.Health)
	r.GET("/quotes", h.Quotes)
	r.GET("/quotes/history", h.History)
	r.GET("/average", h.Average)
	r.GET("/slippage", h.Slippage)
}

func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":  "Welcome to CurrencyHub API",
		"currency": h.svc.Currency(),
		"endpoints": gin.H{
			"quotes":   "/quotes",
			"history":  "/quotes/history",
			"average":  "/average",
			"slippage": "/slippage",
			"health":   "/health",
			"metrics":  "/metrics",
		},
		"version": version,
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": h.stamp(h.now())})
}

func (h *Handler) Quotes(c *gin.Context) {
	qs, err := h.svc.Current(c.Request.Context())
	if err != nil {
		h.fail(c, "/quotes", "Failed to fetch quotes", err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(qs))
}

func (h *Handler) History(c *gin.Context) {
	qs, err := h.svc.History(c.Request.Context())
	if err != nil {
		h.fail(c, "/quotes/history", "Failed to read quote history", err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(qs))
}

func (h *Handler) Average(c *gin.Context) {
	avg, err := h.svc.Average(c.Request.Context())
	if err != nil {
		h.fail(c, "/average", "Failed to calculate average", err)
		return
	}
	c.JSON(http.StatusOK, averageResponse{Average: avg, Timestamp: h.stamp(h.now())})
}

func (h *Handler) Slippage(c *gin.Context) {
	entries, err := h.svc.Slippage(c.Request.Context())
	if err != nil {
		h.fail(c, "/slippage", "Failed to calculate slippage", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) fail(c *gin.Context, route, summary string, err error) {
	if errors.Is(err, quotes.ErrNoQuotesAvailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No quotes available"})
		return
	}
	h.log.WithError(err).WithField("route", route).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": summary, "message": err.Error()})
}

func (h *Handler) toResponse(qs []quotes.Quote) []quoteResponse {
	out := make([]quoteResponse, 0, len(qs))
	for _, q := range qs {
		ts := q.ObservedAt
		if ts.IsZero() {
			ts = h.now()
		}
		out = append(out, quoteResponse{
			BuyPrice:  q.BuyPrice,
			SellPrice: q.SellPrice,
			Source:    q.Source,
			Timestamp: h.stamp(ts),
		})
	}
	return out
}

func (h *Handler) stamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
