//go:build integration

// Integration tests for the score cache against a real Redis.  Requires
// Docker; gated behind the "integration" build tag.
package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/infrastructure/database/redis"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := redis.NewClient(&config.RedisConfig{
		Addr:        fmt.Sprintf("%s:%s", host, port.Port()),
		DialTimeout: 5 * time.Second,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestScoreCache_Integration_RoundTrip(t *testing.T) {
	client := startRedis(t)
	cache := redis.NewScoreCache(client, logging.NewNopLogger())
	ctx := context.Background()

	key := redis.ScoreKey("digest-a", "CCO")
	_, err := cache.Get(ctx, key)
	require.Error(t, err)

	require.NoError(t, cache.Set(ctx, key, -8.25))
	score, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, -8.25, score)
}

func TestScoreCache_Integration_GetOrComputeStoresOnce(t *testing.T) {
	client := startRedis(t)
	cache := redis.NewScoreCache(client, logging.NewNopLogger())
	ctx := context.Background()

	key := redis.ScoreKey("digest-b", "c1ccccc1")
	calls := 0
	compute := func(context.Context) (float64, error) {
		calls++
		return -3.5, nil
	}

	first, err := cache.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	second, err := cache.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestScoreCache_Integration_InvalidateModel(t *testing.T) {
	client := startRedis(t)
	cache := redis.NewScoreCache(client, logging.NewNopLogger())
	ctx := context.Background()

	for _, smiles := range []string{"CCO", "CCN", "CCC"} {
		require.NoError(t, cache.Set(ctx, redis.ScoreKey("digest-old", smiles), -1))
	}
	require.NoError(t, cache.Set(ctx, redis.ScoreKey("digest-new", "CCO"), -2))

	removed, err := cache.InvalidateModel(ctx, "digest-old")
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	// Scores for the surviving model stay cached.
	score, err := cache.Get(ctx, redis.ScoreKey("digest-new", "CCO"))
	require.NoError(t, err)
	assert.Equal(t, -2.0, score)

	_, err = cache.Get(ctx, redis.ScoreKey("digest-old", "CCO"))
	assert.Error(t, err)
}
