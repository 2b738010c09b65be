// README: Redis-backed cache for activity details and destination tips.
package details

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	detailPrefix = "nest:details:"
	tipPrefix    = "nest:tip:"
)

// TipTTL keeps a destination tip long enough to avoid a call per page view.
const TipTTL = time.Hour

// Cache is safe to use with a nil client; every lookup then misses.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func detailKey(title, location string) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return detailPrefix + norm(title) + "|" + norm(location)
}

func (c *Cache) Detail(ctx context.Context, title, location string) (*ActivityDetail, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, nil
	}
	raw, err := c.rdb.Get(ctx, detailKey(title, location)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var d ActivityDetail
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, false, err
	}
	return &d, true, nil
}

func (c *Cache) StoreDetail(ctx context.Context, title, location string, d *ActivityDetail) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, detailKey(title, location), raw, c.ttl).Err()
}

func (c *Cache) Tip(ctx context.Context, destination string) (string, bool, error) {
	if c == nil || c.rdb == nil {
		return "", false, nil
	}
	tip, err := c.rdb.Get(ctx, tipPrefix+strings.ToLower(strings.TrimSpace(destination))).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return tip, true, nil
}

func (c *Cache) StoreTip(ctx context.Context, destination, tip string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Set(ctx, tipPrefix+strings.ToLower(strings.TrimSpace(destination)), tip, TipTTL).Err()
}
