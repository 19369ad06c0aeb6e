package drafts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces draft keys.
const DefaultKeyPrefix = "flowbridge:draft:"

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// TTL expires drafts that are not saved again. Zero keeps them forever.
	TTL time.Duration
}

// RedisStore is a Store backed by Redis string keys.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	return NewRedisStoreFromClient(client, opts.KeyPrefix, opts.TTL), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(workflowID string) string {
	return s.prefix + workflowID
}

// Save stores data, refreshing the expiry.
func (s *RedisStore) Save(ctx context.Context, workflowID string, data []byte) error {
	if err := s.client.Set(ctx, s.key(workflowID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save draft %s: %w", workflowID, err)
	}
	return nil
}

// Load returns the stored draft.
func (s *RedisStore) Load(ctx context.Context, workflowID string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(workflowID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load draft %s: %w", workflowID, err)
	}
	return data, nil
}

// Delete removes a draft.
func (s *RedisStore) Delete(ctx context.Context, workflowID string) error {
	if err := s.client.Del(ctx, s.key(workflowID)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", workflowID, err)
	}
	return nil
}

// List returns the ids of all drafts under the prefix, sorted.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
