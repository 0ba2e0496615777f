package database

import (
	"context"
	"edu_copilot_backend/internal/config"
	"edu_copilot_backend/pkg/logger"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// InitRedis 连接失败时仍返回客户端，缓存层会逐次降级为直连上游
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return rdb, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	logger.Log.Info("Redis connection established", zap.String("addr", addr))
	return rdb, nil
}
