package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"claimgate/pkg/platform/sentinel"
)

const consumedTokenKeyPrefix = "claim:consumed:"

// RedisConsumedStore is the production implementation for deployments with
// more than one instance. SET NX is the atomic mark: the first finalizer
// wins, everyone else gets sentinel.ErrAlreadyUsed. Key TTL tracks the
// token's remaining life so Redis garbage-collects for us.
type RedisConsumedStore struct {
	client *redis.Client
}

func NewRedisConsumedStore(client *redis.Client) *RedisConsumedStore {
	return &RedisConsumedStore{client: client}
}

func (s *RedisConsumedStore) MarkConsumed(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	// Store "1" as a simple marker; the key existence is what matters.
	ok, err := s.client.SetNX(ctx, consumedTokenKeyPrefix+tokenID, "1", ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *RedisConsumedStore) IsConsumed(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	_, err := s.client.Get(ctx, consumedTokenKeyPrefix+tokenID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
