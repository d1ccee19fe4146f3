package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const eventKeyPrefix = "couponme:webhook:event:"

// EventMarker remembers processed webhook event IDs so that a redelivered
// event is acknowledged without being applied twice.
type EventMarker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewEventMarker(client *redis.Client, ttl time.Duration) *EventMarker {
	return &EventMarker{client: client, ttl: ttl}
}

// Claim returns true when the caller is the first to see eventID.
func (m *EventMarker) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := m.client.SetNX(ctx, eventKeyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), m.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", eventID, err)
	}
	return ok, nil
}

// Release forgets eventID so a retried delivery can be processed again.
func (m *EventMarker) Release(ctx context.Context, eventID string) error {
	if err := m.client.Del(ctx, eventKeyPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("release event %s: %w", eventID, err)
	}
	return nil
}
