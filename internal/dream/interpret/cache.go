package interpret

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"dreamforge-workers/internal/common/logger"
	"dreamforge-workers/internal/common/metrics"
	"dreamforge-workers/internal/dream/brief"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "brief:"

// CachedInterpreter keeps normalized briefs in redis keyed by the input text.
// Clarification briefs are never cached. Redis failures only cost a model call.
type CachedInterpreter struct {
	next   Briefer
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCached(next Briefer, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedInterpreter {
	return &CachedInterpreter{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "brief-cache"}),
	}
}

// CacheKey returns the redis key for text.
func CacheKey(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *CachedInterpreter) Interpret(ctx context.Context, text string) brief.Brief {
	key := CacheKey(text)

	if b, ok := c.lookup(ctx, key); ok {
		metrics.BriefsTotal.WithLabelValues("cached").Inc()
		return b
	}

	b := c.next.Interpret(ctx, text)
	if b.IsClarify() {
		return b
	}

	data, err := json.Marshal(b)
	if err != nil {
		return b
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("brief cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	return b
}

func (c *CachedInterpreter) lookup(ctx context.Context, key string) (brief.Brief, bool) {
	var b brief.Brief
	data, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return b, false
	}
	if err != nil {
		c.logger.Warn("brief cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return b, false
	}
	if err := json.Unmarshal(data, &b); err != nil || b.Intent == "" {
		c.logger.Warn("discarding unreadable cached brief", map[string]interface{}{"key": key})
		return brief.Brief{}, false
	}
	return b, true
}
