package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Armin-kho/currencyhub/internal/quotes"
)

var _ quotes.Store = (*SQLite)(nil)

// SQLite stores quotes in a single append-only table. observed_at is unix
// milliseconds.
type SQLite struct {
	sql    *sql.DB
	window time.Duration
	clk    *clock
}

func OpenSQLite(dbPath string, window time.Duration, opts ...Option) (*SQLite, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, wrap("open", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrap("open", err)
	}
	// One writer keeps the WAL file consistent and makes :memory: usable.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetConnMaxLifetime(0)

	s := &SQLite{sql: sqldb, window: window, clk: newClock(opts)}
	if err := s.migrate(context.Background()); err != nil {
		_ = sqldb.Close()
		return nil, wrap("migrate", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.sql.Close()
}

func (s *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS quotes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id TEXT NOT NULL,
			source TEXT NOT NULL,
			buy_price REAL NOT NULL,
			sell_price REAL NOT NULL,
			currency TEXT NOT NULL,
			observed_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_quotes_currency_observed ON quotes(currency, observed_at);`,
		`CREATE INDEX IF NOT EXISTS idx_quotes_source_observed ON quotes(source, observed_at);`,
	}
	for _, st := range stmts {
		if _, err := s.sql.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// Append writes the whole batch in one transaction.
func (s *SQLite) Append(ctx context.Context, qs []quotes.Quote) ([]quotes.Quote, error) {
	if len(qs) == 0 {
		return nil, nil
	}
	stamped := stampBatch(qs, s.clk.stamp())

	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("append", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO quotes(batch_id,source,buy_price,sell_price,currency,observed_at) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return nil, wrap("append", err)
	}
	defer stmt.Close()

	for _, q := range stamped {
		if _, err := stmt.ExecContext(ctx, q.BatchID, q.Source, q.BuyPrice, q.SellPrice, string(q.Currency), q.ObservedAt.UnixMilli()); err != nil {
			return nil, wrap("append", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap("append", err)
	}
	return stamped, nil
}

func (s *SQLite) ReadCurrent(ctx context.Context, cur quotes.Currency) ([]quotes.Quote, error) {
	q := `SELECT source,buy_price,sell_price,currency,observed_at,batch_id FROM (
		SELECT source,buy_price,sell_price,currency,observed_at,batch_id,
			ROW_NUMBER() OVER (PARTITION BY source ORDER BY observed_at DESC, id DESC) AS rn
		FROM quotes WHERE currency=? AND observed_at>=?
	) WHERE rn=1 ORDER BY source`
	out, err := s.query(ctx, q, string(cur), s.clk.cutoff(s.window).UnixMilli())
	return out, wrap("read", err)
}

// ReadCurrentRaw returns every row in the window, newest first.
func (s *SQLite) ReadCurrentRaw(ctx context.Context, cur quotes.Currency) ([]quotes.Quote, error) {
	q := `SELECT source,buy_price,sell_price,currency,observed_at,batch_id FROM quotes
		WHERE currency=? AND observed_at>=? ORDER BY observed_at DESC, id DESC`
	out, err := s.query(ctx, q, string(cur), s.clk.cutoff(s.window).UnixMilli())
	return out, wrap("read_raw", err)
}

func (s *SQLite) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sql.ExecContext(ctx, `DELETE FROM quotes WHERE observed_at<?`, before.UnixMilli())
	if err != nil {
		return 0, wrap("prune", err)
	}
	n, err := res.RowsAffected()
	return n, wrap("prune", err)
}

func (s *SQLite) query(ctx context.Context, q string, args ...any) ([]quotes.Quote, error) {
	rows, err := s.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []quotes.Quote
	for rows.Next() {
		var (
			qt  quotes.Quote
			cur string
			ms  int64
		)
		if err := rows.Scan(&qt.Source, &qt.BuyPrice, &qt.SellPrice, &cur, &ms, &qt.BatchID); err != nil {
			return nil, err
		}
		qt.Currency = quotes.Currency(cur)
		qt.ObservedAt = time.UnixMilli(ms).UTC()
		out = append(out, qt)
	}
	return out, rows.Err()
}
