package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialops/internal/config"
	"trialops/internal/dashboard"
	"trialops/internal/items"
)

func TestRedisCache_SetAndGet(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true)
	cache := dashboard.NewRedisCache(infra.RedisClient)
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "dashboard:test:missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "dashboard:test:key", `{"total_open":3}`, 30*time.Second))

	value, found, err := cache.Get(ctx, "dashboard:test:key")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"total_open":3}`, value)
}

func TestRedisCache_EntryExpires(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true)
	cache := dashboard.NewRedisCache(infra.RedisClient)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "dashboard:test:short", "value", 100*time.Millisecond))
	time.Sleep(200 * time.Millisecond)

	_, found, err := cache.Get(ctx, "dashboard:test:short")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDashboardService_EndToEndWithRedis(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()
	now := time.Now()

	repo := items.NewRepository(infra.PostgresDB)
	item := createTestActionItem("STUDY-001", "SITE-014", "data_entry", "minor", now)
	require.NoError(t, repo.Create(ctx, item))

	svc := dashboard.NewService(repo, dashboard.NewRedisCache(infra.RedisClient),
		config.DashboardConfig{CacheTTLSeconds: 30}, createTestLogger())

	first, err := svc.KPIs(ctx, "STUDY-001")
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalOpen)

	// A second item does not show up while the cached response is fresh.
	require.NoError(t, repo.Create(ctx, createTestActionItem("STUDY-001", "SITE-014", "queries", "major", now)))

	second, err := svc.KPIs(ctx, "STUDY-001")
	require.NoError(t, err)
	assert.Equal(t, 1, second.TotalOpen)
}
