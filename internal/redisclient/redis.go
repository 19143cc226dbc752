// Package redisclient owns the shared Redis connection used for rate limiting
// and token revocation.
package redisclient

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/quantu99/Test-Beincom-BE/internal/middleware"
	"github.com/quantu99/Test-Beincom-BE/internal/observability"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Options parses addr, which is either host:port or a redis:// URL.
func Options(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// Connect dials Redis and pings it. It returns nil when Redis is unreachable
// so callers can run without it: rate limits fail open and revocation is skipped.
func Connect(ctx context.Context, addr string) *redis.Client {
	opts, err := Options(addr)
	if err != nil {
		middleware.Logger.Warn("invalid REDIS_URL, continuing without redis",
			slog.String("addr", addr), slog.String("error", err.Error()))
		return nil
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("redis unreachable, continuing without redis", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	middleware.Logger.Info("Redis connected successfully")
	return client
}

// RevokeToken blacklists jti until expiresAt.
func RevokeToken(ctx context.Context, rdb *redis.Client, jti string, expiresAt time.Time) error {
	if rdb == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	key := revokedKey(jti)
	ctx, span := observability.GetTraceLayer().TraceRedisOperation(ctx, "revoke_token", key)
	defer span.End()

	if err := rdb.Set(ctx, key, "1", ttl).Err(); err != nil {
		observability.RecordErrorInContext(ctx, err)
		return err
	}
	return nil
}

// IsRevoked reports whether jti has been blacklisted. A nil client means no revocations.
func IsRevoked(ctx context.Context, rdb *redis.Client, jti string) (bool, error) {
	if rdb == nil || jti == "" {
		return false, nil
	}
	key := revokedKey(jti)
	ctx, span := observability.GetTraceLayer().TraceRedisOperation(ctx, "is_revoked", key)
	defer span.End()

	n, err := rdb.Exists(ctx, key).Result()
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		return false, err
	}
	span.SetAttributes(attribute.Bool("token.revoked", n > 0))
	return n > 0, nil
}

func revokedKey(jti string) string {
	return "blacklist:" + jti
}
