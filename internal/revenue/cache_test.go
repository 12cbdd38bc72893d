package revenue_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/clubledger/clubledger/internal/revenue"
)

func newTestCache(t *testing.T) (*revenue.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return revenue.NewCache(client, time.Minute), mr
}

type report struct {
	Month string `json:"month"`
	Total string `json:"total"`
}

func TestCacheFetchJSON(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return report{Month: "2026-08", Total: "311.40"}, nil
	}

	var first report
	require.NoError(t, cache.FetchJSON(ctx, 1, 10, "monthly:2026-08", &first, loader))
	require.Equal(t, "311.40", first.Total)
	require.Equal(t, 1, loads)

	var second report
	require.NoError(t, cache.FetchJSON(ctx, 1, 10, "monthly:2026-08", &second, loader))
	require.Equal(t, first, second)
	require.Equal(t, 1, loads, "second read is served from cache")
}

func TestCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return report{Month: "2026-08", Total: "100.00"}, nil
	}

	var out report
	require.NoError(t, cache.FetchJSON(ctx, 1, 10, "monthly:2026-08", &out, loader))
	require.Equal(t, 1, loads)

	require.NoError(t, cache.Invalidate(ctx, 1, 10))

	require.NoError(t, cache.FetchJSON(ctx, 1, 10, "monthly:2026-08", &out, loader))
	require.Equal(t, 2, loads, "version bump makes the next read miss")
}

func TestCacheScopesKeysByBranch(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return report{Month: "2026-08"}, nil
	}

	var out report
	require.NoError(t, cache.FetchJSON(ctx, 1, 10, "monthly:2026-08", &out, loader))
	require.NoError(t, cache.FetchJSON(ctx, 1, 11, "monthly:2026-08", &out, loader))
	require.Equal(t, 2, loads, "branches never share entries")

	require.NoError(t, cache.Invalidate(ctx, 1, 10))
	require.NoError(t, cache.FetchJSON(ctx, 1, 11, "monthly:2026-08", &out, loader))
	require.Equal(t, 2, loads, "invalidating one branch leaves the other warm")
}

func TestCacheDegradesWithoutRedis(t *testing.T) {
	var cache *revenue.Cache

	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return report{Month: "2026-08"}, nil
	}

	var out report
	require.NoError(t, cache.FetchJSON(context.Background(), 1, 10, "monthly:2026-08", &out, loader))
	require.Equal(t, "2026-08", out.Month)
	require.Equal(t, 1, loads)
}

func TestCacheSurvivesRedisOutage(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()

	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return report{Month: "2026-08", Total: "5.00"}, nil
	}

	var out report
	require.NoError(t, cache.FetchJSON(context.Background(), 1, 10, "monthly:2026-08", &out, loader))
	require.Equal(t, "5.00", out.Total)
	require.Equal(t, 1, loads, "cache trouble falls back to a direct load")
}
