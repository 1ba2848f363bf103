package plan

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed Store, CustomerIndex and ProcessedEventStore
// for deployments where the engine runs as a shared service. Plan records
// live under their plan_<tenantID> key; customer links and processed event
// ids under dedicated prefixes.
type RedisStore struct {
	client   *redis.Client
	eventTTL time.Duration
}

const (
	redisCustomerPrefix = "billing_customer_"
	redisEventPrefix    = "billing_event_"
)

// defaultEventTTL keeps processed-event ids long enough to outlive any
// sane processor redelivery window.
const defaultEventTTL = 72 * time.Hour

// NewRedisStore wraps an established Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("plan: redis client is required")
	}
	return &RedisStore{client: client, eventTTL: defaultEventTTL}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrRecordNotFound
	}
	return val, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// SetVersioned performs the conditional write as an optimistic WATCH
// transaction: the write aborts when another writer touches the key
// between the version read and the commit.
func (s *RedisStore) SetVersioned(ctx context.Context, key, value string, expectedVersion int64) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			if expectedVersion != 0 {
				return ErrVersionConflict
			}
		case err != nil:
			return err
		default:
			if storedVersion(current) != expectedVersion {
				return ErrVersionConflict
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	return err
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) LinkCustomer(ctx context.Context, customerID, tenantID string) error {
	return s.client.Set(ctx, redisCustomerPrefix+customerID, tenantID, 0).Err()
}

func (s *RedisStore) TenantByCustomer(ctx context.Context, customerID string) (string, error) {
	tenantID, err := s.client.Get(ctx, redisCustomerPrefix+customerID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrRecordNotFound
	}
	return tenantID, err
}

func (s *RedisStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	return s.client.SetNX(ctx, redisEventPrefix+eventID, "1", s.eventTTL).Result()
}

func (s *RedisStore) Forget(ctx context.Context, eventID string) error {
	return s.client.Del(ctx, redisEventPrefix+eventID).Err()
}
