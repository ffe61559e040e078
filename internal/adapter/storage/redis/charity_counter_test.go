package redis_test

import (
	"context"
	"testing"
	"time"

	"referral-rewards-backend/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharityCounter_AddAndTotal(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	counter := redis.NewCharityCounter(client)
	ctx := context.Background()

	total, err := counter.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total, "empty pool reads as zero")

	require.NoError(t, counter.Add(ctx, 120))
	require.NoError(t, counter.Add(ctx, 80))

	total, err = counter.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), total)
}

func TestRateLimitStore_Incr(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewRateLimitStore(client)
	ctx := context.Background()

	count, err := store.Incr(ctx, "member1:spend", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = store.Incr(ctx, "member1:spend", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Independent key counts separately.
	count, err = store.Incr(ctx, "member2:spend", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
