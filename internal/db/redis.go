package db

import (
	"context"
	"log/slog"
	"time"

	"backend-journeylog/internal/config"

	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 2 * time.Second

// ConnectRedis returns nil when no address is configured or the server does
// not answer. Redis only backs the forecast cache, so the API runs without it.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable, forecast cache disabled", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}
