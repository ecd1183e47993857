// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/chroma/internal/models"
	"github.com/jason-s-yu/chroma/internal/session"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces session keys.
const DefaultKeyPrefix = "chroma:session:"

// ConnectRedis builds a client for addr/db and verifies it with a ping.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisStore keeps each session as a JSON document under its own key.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore wraps a connected client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: DefaultKeyPrefix}
}

func (s *RedisStore) key(code string) string {
	return s.prefix + code
}

// Insert stores the session only if its code is unused (SETNX).
func (s *RedisStore) Insert(ctx context.Context, sess *models.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, s.key(sess.Code), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to SETNX session %s: %w", sess.Code, err)
	}
	if !ok {
		return session.ErrCodeTaken
	}
	return nil
}

func (s *RedisStore) FindByCode(ctx context.Context, code string) (*models.Session, error) {
	data, err := s.rdb.Get(ctx, s.key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to GET session %s: %w", code, err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("invalid session record %s: %w", code, err)
	}
	return &sess, nil
}

// Replace overwrites an existing session (SET XX).
func (s *RedisStore) Replace(ctx context.Context, code string, sess *models.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	ok, err := s.rdb.SetXX(ctx, s.key(code), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to SETXX session %s: %w", code, err)
	}
	if !ok {
		return session.ErrNotFound
	}
	return nil
}
