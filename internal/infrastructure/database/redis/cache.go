package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
)

var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

// ScoreCache caches computed molecule scores.  Entries are keyed by model
// identity plus a SMILES digest, so a retrained or differently parameterized
// model never serves stale scores.
type ScoreCache interface {
	Get(ctx context.Context, key string) (float64, error)
	Set(ctx context.Context, key string, score float64) error
	GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (float64, error)) (float64, error)
	InvalidateModel(ctx context.Context, modelID string) (int64, error)
	Ping(ctx context.Context) error
}

// ScoreKey builds the cache key for one molecule under one model version.
// modelID must change whenever the model's statistics or parameters change;
// callers use the model document digest.
func ScoreKey(modelID, smiles string) string {
	sum := sha256.Sum256([]byte(smiles))
	return fmt.Sprintf("score:%s:%s", modelID, hex.EncodeToString(sum[:16]))
}

type scoreCache struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

// CacheOption configures a ScoreCache.
type CacheOption func(*scoreCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *scoreCache) { c.prefix = prefix }
}

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *scoreCache) { c.ttl = ttl }
}

// NewScoreCache builds a ScoreCache on top of a connected Client.
func NewScoreCache(client *Client, log logging.Logger, opts ...CacheOption) ScoreCache {
	c := &scoreCache{
		client: client,
		logger: log,
		prefix: "molscore:",
		ttl:    time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *scoreCache) fullKey(key string) string {
	return c.prefix + key
}

// jitterTTL spreads expirations by +/-10% so a burst of inserts does not
// expire as a burst of misses.  A zero TTL means no expiry and gets no
// jitter.
func (c *scoreCache) jitterTTL() time.Duration {
	if c.ttl == 0 {
		return 0
	}
	jitter := float64(c.ttl) * 0.1 * (rand.Float64()*2 - 1)
	return c.ttl + time.Duration(jitter)
}

func (c *scoreCache) Get(ctx context.Context, key string) (float64, error) {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheError, "reading score from cache")
	}

	var score float64
	if err := json.Unmarshal(data, &score); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSerialization, "decoding cached score")
	}
	return score, nil
}

func (c *scoreCache) Set(ctx context.Context, key string, score float64) error {
	data, err := json.Marshal(score)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding score for cache")
	}
	if err := c.client.Set(ctx, c.fullKey(key), string(data), c.jitterTTL()).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "writing score to cache")
	}
	return nil
}

// GetOrCompute returns the cached score or computes and stores it.
// Concurrent callers for the same key share one computation through
// singleflight.  A cache write failure is logged but does not fail the call;
// the computed score is still returned.
func (c *scoreCache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (float64, error)) (float64, error) {
	score, err := c.Get(ctx, key)
	if err == nil {
		return score, nil
	}
	if !errors.IsCode(err, errors.ErrCodeNotFound) {
		c.logger.Warn("score cache read failed, computing directly",
			logging.String("key", key), logging.Err(err))
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		computed, computeErr := compute(ctx)
		if computeErr != nil {
			return 0.0, computeErr
		}
		if setErr := c.Set(ctx, key, computed); setErr != nil {
			c.logger.Warn("score cache write failed",
				logging.String("key", key), logging.Err(setErr))
		}
		return computed, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// InvalidateModel removes every cached score belonging to modelID, used
// after retraining.  Returns the number of removed entries.
func (c *scoreCache) InvalidateModel(ctx context.Context, modelID string) (int64, error) {
	var removed int64
	var cursor uint64
	match := c.fullKey("score:" + modelID + ":*")

	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, 200).Result()
		if err != nil {
			return removed, errors.Wrap(err, errors.ErrCodeCacheError, "scanning score cache")
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return removed, errors.Wrap(err, errors.ErrCodeCacheError, "deleting cached scores")
			}
			removed += int64(len(keys))
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func (c *scoreCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}
