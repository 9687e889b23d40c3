package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"bookkeeping/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// SetupRedis connects to Redis. It returns a nil client when no host is
// configured so callers can run without caching and rate limiting.
func SetupRedis(ctx context.Context, redisCfg *config.RedisConfig) (*redis.Client, error) {
	if !redisCfg.Enabled() {
		logrus.Info("Redis not configured, caching and rate limiting disabled")
		return nil, nil
	}

	addr := fmt.Sprintf("%s:%s", redisCfg.Host, redisCfg.Port)

	dbNum, err := strconv.Atoi(redisCfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis DB number %q: %w", redisCfg.RedisDB, err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: redisCfg.RedisPassword,
		DB:       dbNum,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to Redis at %s: %w", addr, err)
	}

	logrus.WithField("addr", addr).Info("Redis connection established successfully")
	return rdb, nil
}
