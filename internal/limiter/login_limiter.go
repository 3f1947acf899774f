package limiter

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts consecutive failed logins per email in Redis and
// blocks further attempts once the configured threshold is crossed, until
// the window expires.
type LoginLimiter struct {
	redis       *redis.Client
	maxAttempts int
	window      time.Duration
}

// NewLoginLimiter constructs a LoginLimiter.
func NewLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		redis:       client,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// Blocked reports whether the email has exhausted its attempts.
func (l *LoginLimiter) Blocked(ctx context.Context, email string) (bool, error) {
	count, err := l.redis.Get(ctx, loginAttemptKey(email)).Int64()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}

	return count >= int64(l.maxAttempts), nil
}

// RecordFailure increments the failure counter, starting the window on the
// first failure.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) error {
	key := loginAttemptKey(email)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}

	if count == 1 {
		return l.redis.Expire(ctx, key, l.window).Err()
	}

	return nil
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	return l.redis.Del(ctx, loginAttemptKey(email)).Err()
}

func loginAttemptKey(email string) string {
	return "login_attempts:" + strings.ToLower(email)
}
