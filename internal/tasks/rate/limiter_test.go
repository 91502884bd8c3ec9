package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, max int, window time.Duration) (*Limiter, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	l := NewLimiter(client, Config{Name: "login", RateLimit: RateLimit{Window: window, MaxAttempts: max}})
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestAllowWithinSameInstant(t *testing.T) {
	l, _ := newLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, err := l.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok, "identifiers are counted separately")
}

func TestWindowSlides(t *testing.T) {
	l, clock := newLimiter(t, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := l.Allow(ctx, "alice")
		require.NoError(t, err)
	}
	ok, _ := l.Allow(ctx, "alice")
	assert.False(t, ok)

	*clock = clock.Add(61 * time.Second)
	ok, err := l.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReset(t *testing.T) {
	l, _ := newLimiter(t, 1, time.Minute)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "alice")
	ok, _ := l.Allow(ctx, "alice")
	require.False(t, ok)

	require.NoError(t, l.Reset(ctx, "alice"))
	ok, err := l.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNilLimiterAllows(t *testing.T) {
	var l *Limiter
	ok, err := l.Allow(context.Background(), "anyone")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, l.Reset(context.Background(), "anyone"))
}
