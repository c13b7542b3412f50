package characters

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL bounds how long a stale entry can survive a lost invalidation.
const DefaultCacheTTL = 5 * time.Minute

// cacheLoadTimeout caps a coalesced load once it no longer follows a caller.
const cacheLoadTimeout = 10 * time.Second

var errStaleLoad = errors.New("characters: cache load raced an invalidation")

// CachedRepository is a read-through Redis layer over a Repository. Keys
// always embed the owner id. A nil client makes it a plain pass-through and
// Redis faults are logged then bypassed.
type CachedRepository struct {
	inner    Repository
	client   *redis.Client
	ttl      time.Duration
	logger   *slog.Logger
	group    singleflight.Group
	requests *prometheus.CounterVec
}

var _ Repository = (*CachedRepository)(nil)

// NewCachedRepository wraps inner. reg may be nil.
func NewCachedRepository(inner Repository, client *redis.Client, ttl time.Duration, logger *slog.Logger, reg prometheus.Registerer) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moi_character_cache_requests_total",
		Help: "Character cache lookups by operation and result.",
	}, []string{"op", "result"})
	if reg != nil {
		if err := reg.Register(requests); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					requests = existing
				}
			}
		}
	}
	return &CachedRepository{inner: inner, client: client, ttl: ttl, logger: logger, requests: requests}
}

func listKey(ownerID int64) string {
	return strings.Join([]string{"characters", strconv.FormatInt(ownerID, 10), "list"}, ":")
}

func generationKey(ownerID int64) string {
	return strings.Join([]string{"characters", strconv.FormatInt(ownerID, 10), "gen"}, ":")
}

func itemKey(ownerID, id int64) string {
	return strings.Join([]string{"characters", strconv.FormatInt(ownerID, 10), strconv.FormatInt(id, 10)}, ":")
}

// Create inserts and drops the owner's cached list.
func (c *CachedRepository) Create(ctx context.Context, ownerID int64, nc NewCharacter) (*Character, error) {
	created, err := c.inner.Create(ctx, ownerID, nc)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, ownerID, listKey(ownerID))
	return created, nil
}

// List serves the owner's list from cache when present.
func (c *CachedRepository) List(ctx context.Context, ownerID int64) ([]Character, error) {
	if c.client == nil {
		return c.inner.List(ctx, ownerID)
	}
	var out []Character
	err := c.fetch(ctx, "list", ownerID, listKey(ownerID), &out, func(ctx context.Context) (any, error) {
		return c.inner.List(ctx, ownerID)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Character{}
	}
	return out, nil
}

// Get serves one character from cache when present.
func (c *CachedRepository) Get(ctx context.Context, ownerID, id int64) (*Character, error) {
	if c.client == nil {
		return c.inner.Get(ctx, ownerID, id)
	}
	var out Character
	err := c.fetch(ctx, "get", ownerID, itemKey(ownerID, id), &out, func(ctx context.Context) (any, error) {
		return c.inner.Get(ctx, ownerID, id)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update writes through and drops both the item and the list.
func (c *CachedRepository) Update(ctx context.Context, ownerID, id int64, changes Changes) (*Character, error) {
	updated, err := c.inner.Update(ctx, ownerID, id, changes)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, ownerID, itemKey(ownerID, id), listKey(ownerID))
	return updated, nil
}

// Delete removes and drops both the item and the list.
func (c *CachedRepository) Delete(ctx context.Context, ownerID, id int64) error {
	if err := c.inner.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	c.invalidate(ctx, ownerID, itemKey(ownerID, id), listKey(ownerID))
	return nil
}

func (c *CachedRepository) fetch(ctx context.Context, op string, ownerID int64, key string, dest any, loader func(context.Context) (any, error)) error {
	// One round trip reads the entry and the owner's generation together.
	gen, cacheable := int64(0), true
	values, err := c.client.MGet(ctx, key, generationKey(ownerID)).Result()
	if err != nil {
		cacheable = false
		c.requests.WithLabelValues(op, "error").Inc()
		c.logger.Warn("character cache: get failed", slog.String("key", key), slog.Any("error", err))
	} else {
		if payload, ok := values[0].(string); ok {
			if jsonErr := json.Unmarshal([]byte(payload), dest); jsonErr == nil {
				c.requests.WithLabelValues(op, "hit").Inc()
				return nil
			}
			c.logger.Warn("character cache: corrupt entry", slog.String("key", key))
		}
		if raw, ok := values[1].(string); ok {
			if gen, err = strconv.ParseInt(raw, 10, 64); err != nil {
				cacheable = false
			}
		}
	}
	c.requests.WithLabelValues(op, "miss").Inc()

	raw, err := c.load(ctx, ownerID, key, gen, cacheable, loader)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// load coalesces concurrent misses for the same key. The shared load runs
// detached from any one caller's cancellation so a departing caller cannot
// fail the others waiting on it.
func (c *CachedRepository) load(ctx context.Context, ownerID int64, key string, gen int64, cacheable bool, loader func(context.Context) (any, error)) ([]byte, error) {
	resultChan := c.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheLoadTimeout)
		defer cancel()

		value, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if cacheable {
			c.store(loadCtx, ownerID, key, gen, raw)
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// store writes raw only if no invalidation for ownerID happened since gen
// was read; otherwise the loaded row may predate a write.
func (c *CachedRepository) store(ctx context.Context, ownerID int64, key string, gen int64, raw []byte) {
	genKey := generationKey(ownerID)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleLoad
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleLoad), errors.Is(err, redis.TxFailedErr):
		c.requests.WithLabelValues("store", "stale").Inc()
		c.logger.Debug("character cache: skipped stale entry", slog.String("key", key))
	default:
		c.logger.Warn("character cache: set failed", slog.String("key", key), slog.Any("error", err))
	}
}

// invalidate bumps the owner's generation and drops keys in one transaction.
func (c *CachedRepository) invalidate(ctx context.Context, ownerID int64, keys ...string) {
	if c.client == nil {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(ownerID))
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		c.logger.Warn("character cache: invalidate failed", slog.Any("keys", keys), slog.Any("error", err))
	}
}
