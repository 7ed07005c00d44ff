package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	redisad "reputation_hub/internal/adapters/redis"
	"reputation_hub/internal/domain"
)

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "rh:")
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache_RoundTripAndPrefix(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	in := []domain.Review{{ID: "g-1", PropertyID: "p1", Rating: 4, Status: domain.StatusPending}}
	require.NoError(t, c.Set(ctx, "reviews:1:all:0:0", in, 60))
	require.True(t, mr.Exists("rh:reviews:1:all:0:0"))

	var out []domain.Review
	ok, err := c.Get(ctx, "reviews:1:all:0:0", &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "g-1", out[0].ID)
	require.Equal(t, 4, out[0].Rating)
}

func TestCache_MissExpiryAndDel(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	var gen int64
	ok, err := c.Get(ctx, "reviews:gen", &gen)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "reviews:gen", int64(42), 0))
	mr.FastForward(24 * time.Hour)
	ok, err = c.Get(ctx, "reviews:gen", &gen)
	require.NoError(t, err)
	require.True(t, ok, "ttl 0 must not expire")
	require.Equal(t, int64(42), gen)

	require.NoError(t, c.Set(ctx, "short", "x", 1))
	mr.FastForward(2 * time.Second)
	var s string
	ok, _ = c.Get(ctx, "short", &s)
	require.False(t, ok)

	require.NoError(t, c.Del(ctx, "reviews:gen"))
	ok, _ = c.Get(ctx, "reviews:gen", &gen)
	require.False(t, ok)
}

func TestCache_CorruptEntryIsReportedAsMiss(t *testing.T) {
	c, mr := newCache(t)
	require.NoError(t, mr.Set("rh:bad", "{not json"))

	var out []domain.Review
	ok, err := c.Get(context.Background(), "bad", &out)
	require.Error(t, err)
	require.False(t, ok)
}
