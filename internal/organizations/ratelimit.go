package organizations

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// InviteRateLimiter throttles invite creation per (organization, actor) pair.
// This is a UX throttle, not a security boundary; implementations may lose
// state on restart.
type InviteRateLimiter interface {
	// Allow reports whether the actor may send an invite in the org now, and
	// if so starts the cooldown window.
	Allow(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

func rateLimitKey(orgID, userID uuid.UUID) string {
	return "invite:cooldown:" + orgID.String() + ":" + userID.String()
}

// RedisRateLimiter backs the cooldown with redis so the window is shared
// across server instances.
type RedisRateLimiter struct {
	client   *redis.Client
	cooldown time.Duration
}

// NewRedisRateLimiter creates a redis-backed invite rate limiter.
func NewRedisRateLimiter(client *redis.Client, cooldown time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, cooldown: cooldown}
}

// Allow sets the cooldown key if absent. SET NX makes check and claim atomic.
func (l *RedisRateLimiter) Allow(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	ok, err := l.client.SetNX(ctx, rateLimitKey(orgID, userID), time.Now().Unix(), l.cooldown).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// MemoryRateLimiter is the in-process fallback used when redis is not
// configured. Per-instance only.
type MemoryRateLimiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
}

// NewMemoryRateLimiter creates an in-memory invite rate limiter.
func NewMemoryRateLimiter(cooldown time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		last:     make(map[string]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Allow claims the cooldown window if it is not already held.
func (l *MemoryRateLimiter) Allow(_ context.Context, orgID, userID uuid.UUID) (bool, error) {
	key := rateLimitKey(orgID, userID)
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if at, ok := l.last[key]; ok && now.Sub(at) < l.cooldown {
		return false, nil
	}
	l.last[key] = now
	// Opportunistic pruning keeps the map from growing unbounded.
	for k, at := range l.last {
		if now.Sub(at) >= l.cooldown {
			delete(l.last, k)
		}
	}
	return true, nil
}
