package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Armin-kho/currencyhub/internal/quotes"
)

var _ quotes.Store = (*Redis)(nil)

// Redis keeps one sorted set per currency scored by observed_at in unix
// milliseconds.
type Redis struct {
	client *redis.Client
	prefix string
	window time.Duration
	clk    *clock
}

type redisRecord struct {
	ID         string  `json:"id"`
	BatchID    string  `json:"batch_id"`
	Source     string  `json:"source"`
	BuyPrice   float64 `json:"buy_price"`
	SellPrice  float64 `json:"sell_price"`
	Currency   string  `json:"currency"`
	ObservedAt int64   `json:"observed_at"`
}

// DialRedis connects and pings within 5 seconds.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, wrap("open", err)
	}
	return client, nil
}

func NewRedis(client *redis.Client, prefix string, window time.Duration, opts ...Option) *Redis {
	return &Redis{client: client, prefix: prefix, window: window, clk: newClock(opts)}
}

func (r *Redis) key(cur quotes.Currency) string {
	return r.prefix + "quotes:" + string(cur)
}

// Append adds the batch inside MULTI/EXEC so readers see all of it or none.
func (r *Redis) Append(ctx context.Context, qs []quotes.Quote) ([]quotes.Quote, error) {
	if len(qs) == 0 {
		return nil, nil
	}
	stamped := stampBatch(qs, r.clk.stamp())

	members := make(map[string][]redis.Z)
	for _, q := range stamped {
		rec := redisRecord{
			ID:         uuid.NewString(),
			BatchID:    q.BatchID,
			Source:     q.Source,
			BuyPrice:   q.BuyPrice,
			SellPrice:  q.SellPrice,
			Currency:   string(q.Currency),
			ObservedAt: q.ObservedAt.UnixMilli(),
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, wrap("append", err)
		}
		k := r.key(q.Currency)
		members[k] = append(members[k], redis.Z{Score: float64(rec.ObservedAt), Member: string(data)})
	}

	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for k, zs := range members {
			p.ZAdd(ctx, k, zs...)
		}
		return nil
	})
	if err != nil {
		return nil, wrap("append", err)
	}
	return stamped, nil
}

func (r *Redis) ReadCurrent(ctx context.Context, cur quotes.Currency) ([]quotes.Quote, error) {
	rows, err := r.rangeWindow(ctx, cur, false)
	if err != nil {
		return nil, wrap("read", err)
	}
	return quotes.Latest(rows), nil
}

// ReadCurrentRaw returns every row in the window, newest first.
func (r *Redis) ReadCurrentRaw(ctx context.Context, cur quotes.Currency) ([]quotes.Quote, error) {
	rows, err := r.rangeWindow(ctx, cur, true)
	return rows, wrap("read_raw", err)
}

func (r *Redis) rangeWindow(ctx context.Context, cur quotes.Currency, newestFirst bool) ([]quotes.Quote, error) {
	by := &redis.ZRangeBy{
		Min: strconv.FormatInt(r.clk.cutoff(r.window).UnixMilli(), 10),
		Max: "+inf",
	}
	var (
		res []string
		err error
	)
	if newestFirst {
		res, err = r.client.ZRevRangeByScore(ctx, r.key(cur), by).Result()
	} else {
		res, err = r.client.ZRangeByScore(ctx, r.key(cur), by).Result()
	}
	if err != nil {
		return nil, err
	}

	out := make([]quotes.Quote, 0, len(res))
	for _, raw := range res {
		var rec redisRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", r.key(cur), err)
		}
		out = append(out, quotes.Quote{
			Source:     rec.Source,
			BuyPrice:   rec.BuyPrice,
			SellPrice:  rec.SellPrice,
			Currency:   quotes.Currency(rec.Currency),
			ObservedAt: time.UnixMilli(rec.ObservedAt).UTC(),
			BatchID:    rec.BatchID,
		})
	}
	return out, nil
}

// Prune trims every quote set under the prefix.
func (r *Redis) Prune(ctx context.Context, before time.Time) (int64, error) {
	upper := "(" + strconv.FormatInt(before.UnixMilli(), 10)
	var total int64
	iter := r.client.Scan(ctx, 0, r.prefix+"quotes:*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := r.client.ZRemRangeByScore(ctx, iter.Val(), "-inf", upper).Result()
		if err != nil {
			return total, wrap("prune", err)
		}
		total += n
	}
	return total, wrap("prune", iter.Err())
}

func (r *Redis) Close() error {
	return r.client.Close()
}
