package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventCache remembers processed webhook event IDs. Stripe delivers events
// at least once, so the webhook handler asks the cache before acting.
type EventCache interface {
	// Seen records eventID and reports whether it had already been recorded.
	Seen(ctx context.Context, eventID string) (bool, error)
}

type eventCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEventCache creates a redis-backed EventCache.
func NewEventCache(client *redis.Client, ttl time.Duration) EventCache {
	return &eventCache{client: client, ttl: ttl}
}

func (c *eventCache) Seen(ctx context.Context, eventID string) (bool, error) {
	key := fmt.Sprintf("stripe_event:%s", eventID)
	set, err := c.client.SetNX(ctx, key, time.Now().Unix(), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("record webhook event %s: %w", eventID, err)
	}
	return !set, nil
}
