package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

// DedupCache suppresses duplicate user-visible notifications caused by
// at-least-once redelivery. Keyed on (chat_id, application key, new status)
// within a TTL window; losing the cache only risks a repeated message, never
// a missed one.
type DedupCache struct {
	client *RedisClient
	ttl    time.Duration
	log    *zap.Logger
}

func NewDedupCache(client *RedisClient, ttl time.Duration, log *zap.Logger) *DedupCache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &DedupCache{client: client, ttl: ttl, log: log}
}

// FirstSeen reports whether this notification has not been sent within the
// TTL window. On cache errors it errs on the side of sending.
func (c *DedupCache) FirstSeen(ctx context.Context, n types.Notification) bool {
	key := c.client.generateKey("notified",
		fmt.Sprintf("%d", n.ChatID), n.Key.String(), n.NewStatus)
	created, err := c.client.SetNX(ctx, key, "1", c.ttl)
	if err != nil {
		c.log.Warn("dedup cache unavailable, sending anyway", zap.Error(err))
		return true
	}
	return created
}
