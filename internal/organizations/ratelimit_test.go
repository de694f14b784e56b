package organizations

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiter(t *testing.T) {
	l := NewMemoryRateLimiter(time.Minute)
	base := time.Now()
	l.now = func() time.Time { return base }

	org, user := uuid.New(), uuid.New()

	ok, err := l.Allow(context.Background(), org, user)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Allow(context.Background(), org, user)
	assert.False(t, ok, "second call inside the cooldown must be denied")

	// A different actor in the same org has its own window.
	ok, _ = l.Allow(context.Background(), org, uuid.New())
	assert.True(t, ok)

	// Same actor in a different org has its own window too.
	ok, _ = l.Allow(context.Background(), uuid.New(), user)
	assert.True(t, ok)

	l.now = func() time.Time { return base.Add(time.Minute) }
	ok, _ = l.Allow(context.Background(), org, user)
	assert.True(t, ok, "the window reopens once the cooldown elapses")
}

func TestMemoryRateLimiterPrunes(t *testing.T) {
	l := NewMemoryRateLimiter(time.Minute)
	base := time.Now()
	l.now = func() time.Time { return base }

	for i := 0; i < 50; i++ {
		_, err := l.Allow(context.Background(), uuid.New(), uuid.New())
		require.NoError(t, err)
	}

	l.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err := l.Allow(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, len(l.last), "expired entries are pruned on the next claim")
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisRateLimiter(client, time.Minute)
	org, user := uuid.New(), uuid.New()

	ok, err := l.Allow(context.Background(), org, user)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(context.Background(), org, user)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(time.Minute)
	ok, err = l.Allow(context.Background(), org, user)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisRateLimiterReportsErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	l := NewRedisRateLimiter(client, time.Minute)
	_, err := l.Allow(context.Background(), uuid.New(), uuid.New())
	assert.Error(t, err)
}
