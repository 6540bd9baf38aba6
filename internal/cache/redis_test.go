package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewFromClient(client, time.Minute, 10*time.Second), mr
}

func TestPoints_RoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	_, ok, err := c.GetPoints(ctx, "dev1")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := c.StorePoints(ctx, "dev1", 0, []int{1, 5, 9})
	require.NoError(t, err)
	assert.True(t, stored)
	points, ok, err := c.GetPoints(ctx, "dev1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 5, 9}, points)

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.GetPoints(ctx, "dev1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPoints_Invalidate(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	_, err := c.StorePoints(ctx, "dev1", 0, []int{3})
	require.NoError(t, err)
	require.NoError(t, c.InvalidatePoints(ctx, "dev1"))

	_, ok, err := c.GetPoints(ctx, "dev1")
	require.NoError(t, err)
	assert.False(t, ok)

	gen, err := c.PointsGeneration(ctx, "dev1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestPoints_StaleWriteAfterInvalidateRejected(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	// читатель взял поколение и старые интервалы из базы
	gen, err := c.PointsGeneration(ctx, "dev1")
	require.NoError(t, err)

	// тем временем модель перестроена
	require.NoError(t, c.InvalidatePoints(ctx, "dev1"))

	stored, err := c.StorePoints(ctx, "dev1", gen, []int{1, 2})
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists("rrc:points:dev1"))

	gen, err = c.PointsGeneration(ctx, "dev1")
	require.NoError(t, err)
	stored, err = c.StorePoints(ctx, "dev1", gen, []int{7})
	require.NoError(t, err)
	assert.True(t, stored)

	points, ok, err := c.GetPoints(ctx, "dev1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{7}, points)
}

func TestBuildLock(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	ok, err := c.AcquireBuildLock(ctx, "dev1", "job-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireBuildLock(ctx, "dev1", "job-b")
	require.NoError(t, err)
	assert.False(t, ok)

	// чужой владелец не снимает блокировку
	require.NoError(t, c.ReleaseBuildLock(ctx, "dev1", "job-b"))
	assert.True(t, mr.Exists("rrc:lock:dev1"))

	require.NoError(t, c.ReleaseBuildLock(ctx, "dev1", "job-a"))
	assert.False(t, mr.Exists("rrc:lock:dev1"))

	ok, err = c.AcquireBuildLock(ctx, "dev1", "job-b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBuildLock_Expires(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	ok, err := c.AcquireBuildLock(ctx, "dev1", "job-a")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)
	ok, err = c.AcquireBuildLock(ctx, "dev1", "job-b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRecentBuilds(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.StoreBuild(ctx, "dev1", base, map[string]string{"device_id": "dev1"}))
	require.NoError(t, c.StoreBuild(ctx, "dev2", base.Add(time.Minute), map[string]string{"device_id": "dev2"}))

	builds, err := c.RecentBuilds(ctx, 10)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.JSONEq(t, `{"device_id":"dev2"}`, string(builds[0]))
	assert.JSONEq(t, `{"device_id":"dev1"}`, string(builds[1]))

	builds, err = c.RecentBuilds(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, builds, 1)
}

func TestRecentBuilds_Empty(t *testing.T) {
	c, _ := newTestCache(t)
	builds, err := c.RecentBuilds(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, builds)
}

func TestPing(t *testing.T) {
	c, _ := newTestCache(t)
	assert.NoError(t, c.Ping(context.Background()))
	assert.Contains(t, c.GetStats(), "total_conns")
}
