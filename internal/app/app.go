package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Armin-kho/currencyhub/internal/alerts"
	"github.com/Armin-kho/currencyhub/internal/api"
	"github.com/Armin-kho/currencyhub/internal/config"
	"github.com/Armin-kho/currencyhub/internal/fetcher"
	"github.com/Armin-kho/currencyhub/internal/metrics"
	"github.com/Armin-kho/currencyhub/internal/quotes"
	"github.com/Armin-kho/currencyhub/internal/scheduler"
	"github.com/Armin-kho/currencyhub/internal/sources"
	"github.com/Armin-kho/currencyhub/internal/store"
)

type quoteStore interface {
	quotes.Store
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

type App struct {
	cfg config.Config
	log *logrus.Logger

	store   quoteStore
	metrics *metrics.Metrics
	service *quotes.Service
	sched   *scheduler.Scheduler
	server  *http.Server
}

// NewLogger builds the root logger from the log settings.
func NewLogger(cfg config.Config) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	l.SetLevel(lvl)
	if cfg.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}

func New(cfg config.Config, log *logrus.Logger) (*App, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	descs, err := sources.ForCurrency(cfg.Currency, cfg.SourceURLs)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	m := metrics.New()
	f := fetcher.New(fetcher.Options{
		Currency:     cfg.Currency,
		Timeout:      cfg.FetchTimeout(),
		MaxRedirects: cfg.Redirects(),
		UserAgent:    cfg.UserAgent,
		InsecureTLS:  cfg.InsecureTLS,
	}, fetcher.WithLogger(log.WithField("component", "fetcher")), fetcher.WithObserver(m))
	collector := fetcher.NewCollector(f, descs,
		fetcher.WithCollectorLogger(log.WithField("component", "collector")),
		fetcher.WithCycleObserver(m))

	svc := quotes.NewService(quotes.Settings{Currency: cfg.Currency}, st, collector,
		quotes.WithLogger(log.WithField("component", "service")),
		quotes.WithNotifier(notifier),
		quotes.WithRecorder(m))

	quiet, err := scheduler.ParseQuietHours(cfg.QuietStart, cfg.QuietEnd, cfg.Timezone)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	sched := scheduler.New(scheduler.Config{
		Interval:  cfg.RefreshInterval(),
		Retention: cfg.Retention(),
		Quiet:     quiet,
	}, svc, st, scheduler.WithLogger(log.WithField("component", "scheduler")))

	apiLog := log.WithField("component", "api")
	router := api.NewRouter(api.NewHandler(svc, apiLog), m.Handler(), apiLog)

	log.WithFields(logrus.Fields{
		"currency": cfg.Currency,
		"sources":  len(descs),
		"store":    cfg.Store.Driver,
	}).Info("CurrencyHub initialised")

	return &App{
		cfg:     cfg,
		log:     log,
		store:   st,
		metrics: m,
		service: svc,
		sched:   sched,
		server: &http.Server{
			Addr:              cfg.Listen,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func openStore(cfg config.Config) (quoteStore, error) {
	window := cfg.FreshnessWindow()
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return store.NewMemory(window), nil
	case config.DriverRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := store.DialRedis(ctx, cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB)
		if err != nil {
			return nil, err
		}
		return store.NewRedis(client, cfg.Store.RedisPrefix, window), nil
	default:
		return store.OpenSQLite(cfg.Store.Path, window)
	}
}

func newNotifier(cfg config.Config, log *logrus.Logger) (quotes.Notifier, error) {
	if cfg.Telegram.BotToken == "" || len(cfg.Telegram.AlertChatIDs) == 0 {
		return alerts.Nop{}, nil
	}
	bot, err := alerts.Dial(cfg.Telegram.BotToken, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return alerts.NewTelegram(bot, cfg.Telegram.AlertChatIDs,
		alerts.WithLogger(log.WithField("component", "alerts"))), nil
}

// Handler exposes the HTTP router.
func (a *App) Handler() http.Handler { return a.server.Handler }

// Run starts the scheduler and serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.sched.Start()

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("listen", a.cfg.Listen).Info("CurrencyHub server running")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

func (a *App) Close() {
	if a.sched != nil {
		a.sched.Stop()
	}
	a.service.Close()
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("Error closing store")
	}
}

// Backup snapshots the SQLite store configured in cfg to dst.
func Backup(ctx context.Context, cfg config.Config, dst string) error {
	if cfg.Store.Driver != config.DriverSQLite {
		return fmt.Errorf("backup needs the sqlite driver, have %q", cfg.Store.Driver)
	}
	s, err := store.OpenSQLite(cfg.Store.Path, cfg.FreshnessWindow())
	if err != nil {
		return err
	}
	defer s.Close()
	return s.BackupTo(ctx, dst)
}
