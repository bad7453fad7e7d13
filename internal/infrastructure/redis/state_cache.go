package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go-engage/internal/engagement"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "engagement:state:"

// RedisStateCache stores computed engagement states as JSON with a TTL.
type RedisStateCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStateCache(client *redis.Client, ttl time.Duration) *RedisStateCache {
	return &RedisStateCache{client: client, ttl: ttl}
}

type cachedState struct {
	Version int              `json:"version"`
	State   engagement.State `json:"state"`
}

func stateKey(engagementID uuid.UUID) string {
	return stateKeyPrefix + engagementID.String()
}

// Get returns nil, nil on a cache miss or when the stored entry was computed
// from a different version.
func (c *RedisStateCache) Get(ctx context.Context, engagementID uuid.UUID, version int) (*engagement.State, error) {
	raw, err := c.client.Get(ctx, stateKey(engagementID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry cachedState
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	if entry.Version != version {
		return nil, nil
	}
	return &entry.State, nil
}

func (c *RedisStateCache) Set(ctx context.Context, engagementID uuid.UUID, version int, state engagement.State) error {
	payload, err := json.Marshal(cachedState{Version: version, State: state})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, stateKey(engagementID), payload, c.ttl).Err()
}

func (c *RedisStateCache) Invalidate(ctx context.Context, engagementID uuid.UUID) error {
	return c.client.Del(ctx, stateKey(engagementID)).Err()
}
