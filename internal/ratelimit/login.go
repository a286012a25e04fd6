package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/faktur/internal/config"
	"go.uber.org/zap"
)

const keyLoginAttempt = "auth:login:%s"

// Five attempts, refilling one per twelve seconds. Brute force stalls,
// a fat-fingered password does not lock anyone out for long.
const (
	loginBurst = 5
	loginRate  = float64(loginBurst) / 60.0
)

// LoginLimiter throttles credential attempts per client. A nil limiter
// (no redis configured) allows everything.
type LoginLimiter struct {
	bucket *TokenBucket
	log    *zap.Logger
}

func NewLoginLimiter(cfg config.Config, log *zap.Logger) *LoginLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Named("ratelimit").Warn("redis addr not set, login throttling disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	return &LoginLimiter{
		bucket: NewTokenBucket(client),
		log:    log.Named("ratelimit"),
	}
}

// Allow reports whether another login attempt from this client may
// proceed. Redis outages fail open; losing throttling beats losing login.
func (l *LoginLimiter) Allow(ctx context.Context, clientKey string) (bool, time.Duration) {
	if l == nil || l.bucket == nil {
		return true, 0
	}

	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyLoginAttempt, strings.TrimSpace(clientKey)), loginRate, loginBurst)
	if err != nil {
		l.log.Warn("login throttle check failed", zap.Error(err))
		return true, 0
	}
	return res.Allowed, res.RetryAfter
}
