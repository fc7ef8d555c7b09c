package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Armin-kho/currencyhub/internal/quotes"
)

type Refresher interface {
	Refresh(ctx context.Context) ([]quotes.Quote, error)
}

type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type Config struct {
	Interval  time.Duration
	Retention time.Duration
	Quiet     QuietHours
	// Timeout bounds a single tick.
	Timeout time.Duration
}

// Scheduler keeps the store warm so reads rarely hit the fetch path.
type Scheduler struct {
	cfg     Config
	refresh Refresher
	prune   Pruner
	log     logrus.FieldLogger
	now     func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type Option func(*Scheduler)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scheduler) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New builds a scheduler. prune may be nil.
func New(cfg Config, r Refresher, p Pruner, opts ...Option) *Scheduler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 55 * time.Second
	}
	s := &Scheduler{
		cfg:     cfg,
		refresh: r,
		prune:   p,
		log:     logrus.StandardLogger(),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start runs one refresh immediately, then one per interval. An interval
// of zero keeps only the initial refresh.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	s.runTick(true)
	if s.cfg.Interval <= 0 {
		return
	}
	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.runTick(false)
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) runTick(initial bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	now := s.now()
	if !initial && s.cfg.Quiet.Contains(now) {
		s.log.Debug("Quiet hours, skipping refresh")
	} else {
		qs, err := s.refresh.Refresh(ctx)
		switch {
		case errors.Is(err, quotes.ErrNoQuotesAvailable):
			s.log.Warn("Scheduled refresh got no quotes")
		case err != nil:
			s.log.WithError(err).Error("Scheduled refresh failed")
		default:
			s.log.WithField("quotes", len(qs)).Debug("Scheduled refresh done")
		}
	}

	if s.prune == nil || s.cfg.Retention <= 0 {
		return
	}
	n, err := s.prune.Prune(ctx, now.Add(-s.cfg.Retention))
	if err != nil {
		s.log.WithError(err).Error("Prune failed")
		return
	}
	if n > 0 {
		s.log.WithField("rows", n).Info("Pruned old quotes")
	}
}
