package quotes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Store persists quotes and answers freshness-windowed reads.
//
//go:generate mockgen -package=quotes -destination=mock_store_test.go -source=service.go Store
type Store interface {
	Append(ctx context.Context, qs []Quote) ([]Quote, error)
	ReadCurrent(ctx context.Context, cur Currency) ([]Quote, error)
	ReadCurrentRaw(ctx context.Context, cur Currency) ([]Quote, error)
}

// Collector fetches every configured source once and returns the successes.
type Collector interface {
	FetchAll(ctx context.Context) []Quote
}

// Notifier receives operator alerts. Implementations throttle by key.
type Notifier interface {
	Notify(ctx context.Context, key, text string)
}

// Recorder receives service-level counters.
type Recorder interface {
	ObserveRefresh(result string)
	ObserveStoreError(op string)
}

type Settings struct {
	Currency Currency
}

type Service struct {
	settings  Settings
	store     Store
	collector Collector

	log    logrus.FieldLogger
	notify Notifier
	rec    Recorder
	now    func() time.Time

	alertTimeout time.Duration
	alerts       sync.WaitGroup

	group singleflight.Group
}

// DefaultAlertTimeout bounds a single Notify call.
const DefaultAlertTimeout = 10 * time.Second

type Option func(*Service)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.rec = r }
}

func WithAlertTimeout(d time.Duration) Option {
	return func(s *Service) { s.alertTimeout = d }
}

func NewService(settings Settings, store Store, collector Collector, opts ...Option) *Service {
	s := &Service{
		settings:  settings,
		store:     store,
		collector: collector,
		log:       logrus.StandardLogger(),
		notify:    nopNotifier{},
		rec:       nopRecorder{},
		now:       time.Now,

		alertTimeout: DefaultAlertTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	if s.alertTimeout <= 0 {
		s.alertTimeout = DefaultAlertTimeout
	}
	if s.notify == nil {
		s.notify = nopNotifier{}
	}
	if s.rec == nil {
		s.rec = nopRecorder{}
	}
	s.log = s.log.WithField("currency", settings.Currency)
	return s
}

func (s *Service) Currency() Currency { return s.settings.Currency }

// Current returns the fresh quotes from the store, fetching a new batch when
// the store has none inside the freshness window.
func (s *Service) Current(ctx context.Context) ([]Quote, error) {
	qs, err := s.store.ReadCurrent(ctx, s.settings.Currency)
	if err != nil {
		s.storeFailed("read", err)
		return nil, fmt.Errorf("read current quotes: %w", err)
	}
	if len(qs) > 0 {
		return qs, nil
	}
	s.log.Info("No recent quotes found, fetching fresh data")
	return s.Refresh(ctx)
}

// Refresh runs one fetch cycle and persists its result. Concurrent callers
// share a single cycle.
func (s *Service) Refresh(ctx context.Context) ([]Quote, error) {
	v, err, _ := s.group.Do(string(s.settings.Currency), func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return append([]Quote(nil), v.([]Quote)...), nil
}

func (s *Service) refresh(ctx context.Context) ([]Quote, error) {
	fetched := s.collector.FetchAll(ctx)
	if len(fetched) == 0 {
		s.rec.ObserveRefresh("empty")
		s.log.Warn("No quotes were successfully fetched")
		s.alert("no-quotes", fmt.Sprintf("Every %s source failed in the last fetch cycle.", s.settings.Currency))
		return nil, ErrNoQuotesAvailable
	}

	stored, err := s.store.Append(ctx, fetched)
	if err != nil {
		s.storeFailed("append", err)
		s.rec.ObserveRefresh("unsaved")
		return s.stampUnsaved(fetched), nil
	}
	s.log.WithField("batch", batchOf(stored)).Infof("Saved %d quotes", len(stored))

	current, err := s.store.ReadCurrent(ctx, s.settings.Currency)
	if err != nil {
		s.storeFailed("read", err)
		s.rec.ObserveRefresh("ok")
		return stored, nil
	}
	s.rec.ObserveRefresh("ok")
	if len(current) == 0 {
		return stored, nil
	}
	return current, nil
}

// Average computes the cross-source average over the current quotes.
func (s *Service) Average(ctx context.Context) (Average, error) {
	qs, err := s.Current(ctx)
	if err != nil {
		return Average{}, err
	}
	if len(qs) == 0 {
		return Average{}, ErrNoQuotesAvailable
	}
	return ComputeAverage(qs)
}

func (s *Service) Slippage(ctx context.Context) ([]SlippageEntry, error) {
	qs, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, ErrNoQuotesAvailable
	}
	return ComputeSlippage(qs)
}

// History returns every stored row inside the freshness window without
// triggering a fetch.
func (s *Service) History(ctx context.Context) ([]Quote, error) {
	qs, err := s.store.ReadCurrentRaw(ctx, s.settings.Currency)
	if err != nil {
		s.storeFailed("read_raw", err)
		return nil, fmt.Errorf("read quote history: %w", err)
	}
	return qs, nil
}

func (s *Service) storeFailed(op string, err error) {
	s.rec.ObserveStoreError(op)
	s.log.WithError(err).WithField("op", op).Error("Quote store failure")
	s.alert("store-"+op, fmt.Sprintf("Quote store %s failed: %v", op, err))
}

// alert hands the message to the notifier without holding up the caller.
func (s *Service) alert(key, text string) {
	s.alerts.Add(1)
	go func() {
		defer s.alerts.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.alertTimeout)
		defer cancel()
		s.notify.Notify(ctx, key, text)
	}()
}

// Close waits for alerts still in flight.
func (s *Service) Close() {
	s.alerts.Wait()
}

// stampUnsaved marks a batch the store rejected so callers still get
// observation times.
func (s *Service) stampUnsaved(qs []Quote) []Quote {
	now := s.now().UTC()
	out := make([]Quote, len(qs))
	for i, q := range qs {
		q.ObservedAt = now
		out[i] = q
	}
	return out
}

func batchOf(qs []Quote) string {
	if len(qs) == 0 {
		return ""
	}
	return qs[0].BatchID
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string) {}

type nopRecorder struct{}

func (nopRecorder) ObserveRefresh(string)    {}
func (nopRecorder) ObserveStoreError(string) {}
