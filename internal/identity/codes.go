package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCodeNotFound is returned for unknown or expired codes
var ErrCodeNotFound = errors.New("code not found or expired")

// CodeStore keeps short-lived verification codes and reset tokens
type CodeStore interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// RedisCodeStore keeps codes in Redis with native expiry
type RedisCodeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCodeStore creates a store on an existing client
func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client, prefix: "callscope:codes:"}
}

func (s *RedisCodeStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}
	return nil
}

func (s *RedisCodeStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCodeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read code: %w", err)
	}
	return v, nil
}

func (s *RedisCodeStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete code: %w", err)
	}
	return nil
}

type memoryCode struct {
	value   string
	expires time.Time
}

// MemoryCodeStore keeps codes in process memory. Codes are lost on restart.
type MemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]memoryCode
	now   func() time.Time
}

// NewMemoryCodeStore creates an empty in-memory store
func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{codes: make(map[string]memoryCode), now: time.Now}
}

func (s *MemoryCodeStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// Drop expired entries
	for k, c := range s.codes {
		if !now.Before(c.expires) {
			delete(s.codes, k)
		}
	}
	s.codes[key] = memoryCode{value: value, expires: now.Add(ttl)}
	return nil
}

func (s *MemoryCodeStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[key]
	if !ok || !s.now().Before(c.expires) {
		delete(s.codes, key)
		return "", ErrCodeNotFound
	}
	return c.value, nil
}

func (s *MemoryCodeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.codes, key)
	s.mu.Unlock()
	return nil
}
