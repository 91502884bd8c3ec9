package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RateLimit struct {
	Window      time.Duration // e.g., 5 minutes
	MaxAttempts int           // max attempts per window
}

type Config struct {
	Name      string
	RateLimit RateLimit
}

// Limiter is a sliding window counter backed by a redis sorted set. Every
// attempt, allowed or not, is recorded so hammering a key keeps it closed.
type Limiter struct {
	redis  *redis.Client
	config Config
	now    func() time.Time
}

func NewLimiter(redis *redis.Client, config Config) *Limiter {
	return &Limiter{
		redis:  redis,
		config: config,
		now:    time.Now,
	}
}

func (l *Limiter) key(identifier string) string {
	return fmt.Sprintf("rate_limit:%s:%s", l.config.Name, identifier)
}

// Allow records an attempt for identifier and reports whether it is within the limit.
// A nil limiter allows everything.
func (l *Limiter) Allow(ctx context.Context, identifier string) (bool, error) {
	if l == nil || l.redis == nil || l.config.RateLimit.MaxAttempts <= 0 {
		return true, nil
	}
	key := l.key(identifier)

	now := l.now()
	nowMs := now.UnixMilli()
	windowStart := nowMs - l.config.RateLimit.Window.Milliseconds()
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()

	pipe := l.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(windowStart, 10))
	card := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(nowMs), Member: member})
	pipe.PExpire(ctx, key, l.config.RateLimit.Window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis pipeline error: %w", err)
	}

	return card.Val() < int64(l.config.RateLimit.MaxAttempts), nil
}

// Reset forgets every attempt for identifier.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	return l.redis.Del(ctx, l.key(identifier)).Err()
}
