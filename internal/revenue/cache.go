package revenue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache wraps Redis-based report caching with per-branch versioning. Writes
// to the ledger or the month locks bump the branch version, which orphans
// every cached report for that branch; orphaned entries age out via TTL.
// A nil Cache (or one without a client) degrades to direct loads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func versionKey(tenantID, branchID int64) string {
	return fmt.Sprintf("revenue:ver:%d:%d", tenantID, branchID)
}

// version returns the branch's current cache version, initialising to 1.
func (c *Cache) version(ctx context.Context, tenantID, branchID int64) (int64, error) {
	ver, err := c.client.Get(ctx, versionKey(tenantID, branchID)).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, versionKey(tenantID, branchID), 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Invalidate bumps the branch version so subsequent reads miss.
func (c *Cache) Invalidate(ctx context.Context, tenantID, branchID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, versionKey(tenantID, branchID)).Err()
}

// FetchJSON loads a cached report or populates it via loader. Concurrent
// loads of the same key are collapsed into one.
func (c *Cache) FetchJSON(ctx context.Context, tenantID, branchID int64, suffix string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("revenue: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return roundTrip(value, dest)
	}

	ver, err := c.version(ctx, tenantID, branchID)
	if err != nil {
		// Cache trouble must not take reports down.
		value, lerr := loader(ctx)
		if lerr != nil {
			return lerr
		}
		return roundTrip(value, dest)
	}
	key := fmt.Sprintf("revenue:%d:%d:%s:%d", tenantID, branchID, suffix, ver)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		value, lerr := loader(ctx)
		if lerr != nil {
			return lerr
		}
		return roundTrip(value, dest)
	}

	raw, err, _ := c.group.Do(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			return nil, err
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}

func roundTrip(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
