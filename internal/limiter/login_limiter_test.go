package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*miniredis.Miniredis, *LoginLimiter) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewLoginLimiter(client, 3, 15*time.Minute)
}

func TestLimiterBlocksAfterThreshold(t *testing.T) {
	_, l := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		blocked, err := l.Blocked(ctx, "a@x.com")
		require.NoError(t, err)
		assert.False(t, blocked, "attempt %d should not be blocked", i)
		require.NoError(t, l.RecordFailure(ctx, "a@x.com"))
	}

	blocked, err := l.Blocked(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestLimiterKeysAreCaseInsensitive(t *testing.T) {
	_, l := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.RecordFailure(ctx, "A@X.com"))
	}

	blocked, err := l.Blocked(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestLimiterWindowExpires(t *testing.T) {
	mr, l := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.RecordFailure(ctx, "a@x.com"))
	}

	mr.FastForward(15*time.Minute + time.Second)

	blocked, err := l.Blocked(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestLimiterReset(t *testing.T) {
	_, l := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.RecordFailure(ctx, "a@x.com"))
	}
	require.NoError(t, l.Reset(ctx, "a@x.com"))

	blocked, err := l.Blocked(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, blocked)
}
