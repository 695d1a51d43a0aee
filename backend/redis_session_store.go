package backend

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/skeliit/skeli/backend/data"
)

// RedisSessionStore keeps a snapshot of the principal in Redis with a TTL of the session lifetime. A role change does
// not reach existing sessions until they expire or are deleted.
type RedisSessionStore struct {
	client   *redis.Client
	prefix   string
	lifetime time.Duration
}

func NewRedisSessionStore(client *redis.Client, prefix string, lifetime time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: prefix, lifetime: lifetime}
}

// NewRedisClient parses a redis:// URL into a client. It does not connect.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("bad redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (s *RedisSessionStore) key(id []byte) string {
	return s.prefix + "session." + hex.EncodeToString(id)
}

func (s *RedisSessionStore) Create(ctx context.Context, p *Principal) ([]byte, error) {
	sessionID, err := genSessionID()
	if err != nil {
		return nil, err
	}

	buf, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	err = s.client.Set(ctx, s.key(sessionID), buf, s.lifetime).Err()
	if err != nil {
		return nil, fmt.Errorf("redis set session: %w", err)
	}

	return sessionID, nil
}

func (s *RedisSessionStore) Principal(ctx context.Context, id []byte) (*Principal, error) {
	buf, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, data.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var p Principal
	err = json.Unmarshal(buf, &p)
	if err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	return &p, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id []byte) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	if n == 0 {
		return data.ErrNotFound
	}
	return nil
}
