package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Armin-kho/currencyhub/internal/quotes"
	"github.com/Armin-kho/currencyhub/internal/sources"
)

const (
	DefaultTimeout      = 15 * time.Second
	DefaultMaxRedirects = 5
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	maxBodyBytes = 4 << 20
)

// Kind classifies why a source produced no quote.
type Kind string

const (
	KindTransport    Kind = "transport"
	KindExtraction   Kind = "extraction"
	KindInvalidPrice Kind = "invalid_price"
)

var (
	ErrEmptyBody    = errors.New("empty response")
	ErrInvalidPrice = errors.New("invalid price values")
)

// FetchError is the single failure shape of Fetch. Err carries the reason.
type FetchError struct {
	Source string
	URL    string
	Kind   Kind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %s: %v", e.Source, e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Observer receives per-source fetch outcomes.
type Observer interface {
	ObserveFetch(source, outcome string, elapsed time.Duration)
}

type Options struct {
	Currency     quotes.Currency
	Timeout      time.Duration
	MaxRedirects int
	UserAgent    string
	InsecureTLS  bool
}

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Fetcher struct {
	opts   Options
	client HTTPClient
	log    logrus.FieldLogger
	obs    Observer
}

type Option func(*Fetcher)

// WithHTTPClient replaces the default client. Timeout and redirect limits
// are then the caller's responsibility, except the per-call context deadline.
func WithHTTPClient(c HTTPClient) Option {
	return func(f *Fetcher) { f.client = c }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(f *Fetcher) { f.log = l }
}

func WithObserver(o Observer) Option {
	return func(f *Fetcher) { f.obs = o }
}

func New(opts Options, options ...Option) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRedirects < 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	f := &Fetcher{
		opts:   opts,
		client: newHTTPClient(opts),
		log:    logrus.StandardLogger(),
		obs:    nopObserver{},
	}
	for _, o := range options {
		o(f)
	}
	return f
}

func newHTTPClient(opts Options) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: opts.InsecureTLS}, //nolint:gosec // opt-in via config
	}
	maxRedirects := opts.MaxRedirects
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// Fetch retrieves one source and returns its validated quote. ObservedAt is
// left zero for the store to fill.
func (f *Fetcher) Fetch(ctx context.Context, d sources.Descriptor) (quotes.Quote, error) {
	start := time.Now()
	q, err := f.fetch(ctx, d)
	elapsed := time.Since(start)

	if err != nil {
		var fe *FetchError
		outcome := "error"
		if errors.As(err, &fe) {
			outcome = string(fe.Kind)
		}
		f.obs.ObserveFetch(d.Name, outcome, elapsed)
		f.log.WithFields(logrus.Fields{
			"source": d.Name,
			"url":    d.URL,
			"kind":   outcome,
		}).WithError(err).Warn("Error fetching quote")
		return quotes.Quote{}, err
	}
	f.obs.ObserveFetch(d.Name, "ok", elapsed)
	f.log.WithFields(logrus.Fields{
		"source": d.Name,
		"buy":    q.BuyPrice,
		"sell":   q.SellPrice,
	}).Debug("Fetched quote")
	return q, nil
}

func (f *Fetcher) fetch(ctx context.Context, d sources.Descriptor) (quotes.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	body, err := f.get(ctx, d.URL)
	if err != nil {
		return quotes.Quote{}, &FetchError{Source: d.Name, URL: d.URL, Kind: KindTransport, Err: err}
	}

	p, err := extract(d, body)
	if err != nil {
		return quotes.Quote{}, &FetchError{Source: d.Name, URL: d.URL, Kind: KindExtraction, Err: err}
	}

	if !validPrice(p.Buy) || !validPrice(p.Sell) {
		return quotes.Quote{}, invalidPrice(d, p)
	}
	buy, sell := quotes.Round2(p.Buy), quotes.Round2(p.Sell)
	if buy <= 0 || sell <= 0 {
		return quotes.Quote{}, invalidPrice(d, p)
	}

	return quotes.Quote{
		Source:    d.URL,
		BuyPrice:  buy,
		SellPrice: sell,
		Currency:  f.opts.Currency,
	}, nil
}

func (f *Fetcher) get(ctx context.Context, urlStr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, ErrEmptyBody
	}
	return b, nil
}

// extract runs the source strategy; a panicking strategy counts as a miss.
func extract(d sources.Descriptor, body []byte) (p sources.Prices, err error) {
	if d.Strategy == nil {
		return sources.Prices{}, errors.New("source has no extraction strategy")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panic: %v", r)
		}
	}()
	return d.Strategy.Extract(body)
}

func invalidPrice(d sources.Descriptor, p sources.Prices) *FetchError {
	return &FetchError{
		Source: d.Name,
		URL:    d.URL,
		Kind:   KindInvalidPrice,
		Err:    fmt.Errorf("%w: buy=%v sell=%v", ErrInvalidPrice, p.Buy, p.Sell),
	}
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

type nopObserver struct{}

func (nopObserver) ObserveFetch(string, string, time.Duration) {}
