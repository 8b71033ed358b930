package session

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"

	"audient.app/internal/cache"
)

// Keys of the three independent persisted entries.
const (
	KeySession   = "session"
	KeyOrgConfig = "org_config"
	KeyPeriod    = "period"
)

// ErrNoEntry is returned by Store.Get for a missing key.
var ErrNoEntry = errors.New("session: no entry")

// Store is the device-side key/value persistence used by the manager.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps entries for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	if !ok {
		return nil, ErrNoEntry
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.entries[key] = append([]byte(nil), value...)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// RedisStore namespaces the entries of one device under prefix.
type RedisStore struct {
	cmd    cache.Commands
	prefix string
}

func NewRedisStore(cmd cache.Commands, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "audient:session:"
	}
	return &RedisStore{cmd: cmd, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.cmd.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoEntry
	}
	return v, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.cmd.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.cmd.Del(ctx, s.prefix+key).Err()
}
