package fetcher

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Armin-kho/currencyhub/internal/quotes"
	"github.com/Armin-kho/currencyhub/internal/sources"
)

// QuoteFetcher fetches a single source.
type QuoteFetcher interface {
	Fetch(ctx context.Context, d sources.Descriptor) (quotes.Quote, error)
}

// CycleObserver receives the outcome of a whole fan-out cycle.
type CycleObserver interface {
	ObserveCycle(succeeded, total int, elapsed time.Duration)
}

// Collector runs a QuoteFetcher over every source concurrently.
type Collector struct {
	fetcher QuoteFetcher
	sources []sources.Descriptor
	log     logrus.FieldLogger
	obs     CycleObserver
}

type CollectorOption func(*Collector)

func WithCollectorLogger(l logrus.FieldLogger) CollectorOption {
	return func(c *Collector) { c.log = l }
}

func WithCycleObserver(o CycleObserver) CollectorOption {
	return func(c *Collector) { c.obs = o }
}

func NewCollector(f QuoteFetcher, srcs []sources.Descriptor, opts ...CollectorOption) *Collector {
	c := &Collector{
		fetcher: f,
		sources: append([]sources.Descriptor(nil), srcs...),
		log:     logrus.StandardLogger(),
		obs:     nopCycleObserver{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Collector) Sources() []sources.Descriptor {
	return append([]sources.Descriptor(nil), c.sources...)
}

// FetchAll waits for every source to settle and returns the successful
// quotes in registry order. Failed sources are left out; the result may be
// empty. A failing source never cancels its siblings.
func (c *Collector) FetchAll(ctx context.Context) []quotes.Quote {
	start := time.Now()
	results := make([]*quotes.Quote, len(c.sources))

	var g errgroup.Group
	for i, d := range c.sources {
		g.Go(func() error {
			q, err := c.fetcher.Fetch(ctx, d)
			if err == nil {
				results[i] = &q
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]quotes.Quote, 0, len(results))
	for _, q := range results {
		if q != nil {
			out = append(out, *q)
		}
	}

	elapsed := time.Since(start)
	c.obs.ObserveCycle(len(out), len(c.sources), elapsed)
	c.log.WithFields(logrus.Fields{
		"ok":      len(out),
		"total":   len(c.sources),
		"elapsed": elapsed.Round(time.Millisecond).String(),
	}).Info("Fetch cycle finished")
	return out
}

type nopCycleObserver struct{}

func (nopCycleObserver) ObserveCycle(int, int, time.Duration) {}
