package store

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Armin-kho/currencyhub/internal/quotes"
)

func openTestRedis(t *testing.T, clk *fakeClock) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedis(client, "currencyhub:", testWindow, WithClock(clk.Now))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T, clk *fakeClock) backend {
		return openTestRedis(t, clk)
	})
}

func TestRedisStore_KeyLayout(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clk := newFakeClock()
	s := NewRedis(client, "ch:", testWindow, WithClock(clk.Now))
	defer s.Close()

	_, err := s.Append(t.Context(), []quotes.Quote{quote("https://a", 1, 1)})
	require.NoError(t, err)

	members, err := mr.ZMembers("ch:quotes:ARS")
	require.NoError(t, err)
	assert.Len(t, members, 1)
	score, err := mr.ZScore("ch:quotes:ARS", members[0])
	require.NoError(t, err)
	assert.Equal(t, float64(clk.Now().UnixMilli()), score)
}

func TestDialRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	client, err := DialRedis(t.Context(), addr, "", 0)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	mr.Close()
	_, err = DialRedis(t.Context(), addr, "", 0)
	var se *Error
	assert.ErrorAs(t, err, &se)
}
