// Package cache keeps short-lived display labels for building owners so the
// notification sync does not reload the same users on every run.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

const DefaultLabelTTL = 5 * time.Minute

// LabelCache maps user ids to display labels. Missing ids are simply absent
// from GetMany's result.
type LabelCache interface {
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	SetMany(ctx context.Context, labels map[uuid.UUID]string) error
}

/* ---------- in-process ---------- */

type memoryEntry struct {
	label   string
	expires time.Time
}

type MemoryLabelCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   utils.Clock
	entries map[uuid.UUID]memoryEntry
}

func NewMemoryLabelCache(ttl time.Duration, clock utils.Clock) *MemoryLabelCache {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &MemoryLabelCache{ttl: ttl, clock: clock, entries: map[uuid.UUID]memoryEntry{}}
}

func (c *MemoryLabelCache) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	now := c.clock.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		e, ok := c.entries[id]
		if ok && now.Before(e.expires) {
			out[id] = e.label
		}
	}
	return out, nil
}

func (c *MemoryLabelCache) SetMany(_ context.Context, labels map[uuid.UUID]string) error {
	expires := c.clock.Now().Add(c.ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, label := range labels {
		c.entries[id] = memoryEntry{label: label, expires: expires}
	}
	return nil
}

/* ---------- redis ---------- */

const redisKeyPrefix = "owner-label:"

type RedisLabelCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisLabelCache connects to url (redis://...) and pings it once.
func NewRedisLabelCache(ctx context.Context, url string, ttl time.Duration) (*RedisLabelCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisLabelCache{rdb: rdb, ttl: ttl}, nil
}

func (c *RedisLabelCache) Close() error { return c.rdb.Close() }

func (c *RedisLabelCache) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKeyPrefix + id.String()
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[ids[i]] = s
		}
	}
	return out, nil
}

func (c *RedisLabelCache) SetMany(ctx context.Context, labels map[uuid.UUID]string) error {
	if len(labels) == 0 {
		return nil
	}
	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for id, label := range labels {
			p.Set(ctx, redisKeyPrefix+id.String(), label, c.ttl)
		}
		return nil
	})
	return err
}

/* ---------- lookup ---------- */

type UserLookup interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error)
}

// OwnerLabels resolves display labels for ids, consulting the cache first and
// loading the rest from users. Cache failures are logged and bypassed.
func OwnerLabels(ctx context.Context, c LabelCache, users UserLookup, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := map[uuid.UUID]string{}
	if len(ids) == 0 {
		return out, nil
	}
	if c != nil {
		hit, err := c.GetMany(ctx, ids)
		if err != nil {
			utils.Logger.WithError(err).Warn("owner label cache read failed")
		} else {
			out = hit
		}
	}

	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := users.GetByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("load owners: %w", err)
	}
	fresh := make(map[uuid.UUID]string, len(loaded))
	for _, u := range loaded {
		fresh[u.ID] = u.DisplayName()
		out[u.ID] = u.DisplayName()
	}
	if c != nil && len(fresh) > 0 {
		if err := c.SetMany(ctx, fresh); err != nil {
			utils.Logger.WithError(err).WithFields(logrus.Fields{
				"count": len(fresh),
			}).Warn("owner label cache write failed")
		}
	}
	return out, nil
}
