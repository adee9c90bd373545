package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

const keyPrefix = "signal:conversation:"

// RedisStore keeps each conversation in a redis list with a sliding TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Entry
}

// NewRedisStore connects using a redis:// URL or a bare host:port
func NewRedisStore(url string, ttl time.Duration, log *logrus.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	return NewRedisStoreWithClient(redis.NewClient(opts), ttl, log), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration, log *logrus.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl, log: log.WithField("component", "conversation")}
}

// Ping checks connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Get reads the list oldest first
func (s *RedisStore) Get(ctx context.Context, id string) ([]types.Turn, error) {
	raw, err := s.client.LRange(ctx, keyPrefix+id, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation %s: %w", id, err)
	}

	turns := make([]types.Turn, 0, len(raw))
	for _, r := range raw {
		var t types.Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			s.log.WithError(err).WithField("conversation_id", id).Warn("Skipping undecodable turn")
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Append pushes, trims and refreshes the TTL in one MULTI/EXEC
func (s *RedisStore) Append(ctx context.Context, id string, turns ...types.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	now := time.Now().UTC()
	values := make([]any, 0, len(turns))
	for _, t := range turns {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode turn: %w", err)
		}
		values = append(values, string(b))
	}

	key := keyPrefix + id
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, -MaxTurns, -1)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append to conversation %s: %w", id, err)
	}
	return nil
}

// Clear deletes the conversation
func (s *RedisStore) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation %s: %w", id, err)
	}
	return nil
}
