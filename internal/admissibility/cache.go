package admissibility

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedGate wraps another Gate and memoizes verdicts in redis, keyed
// by a hash of the normalized question. Cache failures degrade to the
// inner gate, never to a rejection.
type CachedGate struct {
	inner Gate
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedGate(inner Gate, rdb *redis.Client, ttl time.Duration) *CachedGate {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedGate{inner: inner, rdb: rdb, ttl: ttl}
}

func cacheKey(question string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(question))))
	return "gate:verdict:" + hex.EncodeToString(sum[:])
}

func (g *CachedGate) Validate(ctx context.Context, question string, userID uint64) (Verdict, error) {
	key := cacheKey(question)

	if raw, err := g.rdb.Get(ctx, key).Result(); err == nil {
		var v Verdict
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v, nil
		}
	} else if err != redis.Nil {
		zap.L().Warn("admissibility: cache read failed", zap.Error(err))
	}

	v, err := g.inner.Validate(ctx, question, userID)
	if err != nil {
		return v, err
	}

	if raw, err := json.Marshal(v); err == nil {
		if err := g.rdb.Set(ctx, key, raw, g.ttl).Err(); err != nil {
			zap.L().Warn("admissibility: cache write failed", zap.Error(err))
		}
	}

	return v, nil
}
