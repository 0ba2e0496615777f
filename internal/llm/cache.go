package llm

import (
	"context"
	"crypto/sha1"
	"edu_copilot_backend/pkg/logger"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CachedEmbedder 用 Redis 缓存向量；Redis 不可用时直接调用下游
type CachedEmbedder struct {
	next embedder
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedEmbedder(next embedder, rdb *redis.Client, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedEmbedder{next: next, rdb: rdb, ttl: ttl}
}

func embeddingKey(text string) string {
	sum := sha1.Sum([]byte(text))
	return "emb:" + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.rdb == nil {
		return c.next.Embed(ctx, text)
	}

	key := embeddingKey(text)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var vec []float32
		if err := json.Unmarshal(raw, &vec); err == nil && len(vec) > 0 {
			return vec, nil
		}
	} else if err != redis.Nil {
		logger.Log.Debug("Embedding cache read failed", zap.Error(err))
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vec); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logger.Log.Debug("Embedding cache write failed", zap.Error(err))
		}
	}
	return vec, nil
}
