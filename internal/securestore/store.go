// Package securestore keeps the session credentials (the serialized user
// and its access token) between runs.
package securestore

import (
	"context"
	"fmt"
	"sync"
)

// Keys under which the session is persisted.
const (
	UserKey  = "geev_user"
	TokenKey = "geev_token"
)

// Store is a small string key-value store for secrets.
type Store interface {
	// Get returns the value and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options configures Open.
type Options struct {
	Backend  string
	Path     string // sqlite file
	Key      string // base64 AES-256 key for sqlite
	RedisURL string
}

// Open builds the store for opts.Backend. The returned close function
// releases the backend's resources.
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemory(), func() error { return nil }, nil
	case BackendSQLite:
		sealer, err := NewAESSealer(opts.Key)
		if err != nil {
			return nil, nil, fmt.Errorf("secure store key: %w", err)
		}
		s, err := OpenSQLite(ctx, opts.Path, sealer)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case BackendRedis:
		s, err := OpenRedis(ctx, opts.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown secure store backend %q", opts.Backend)
	}
}

// Memory is a process-local Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
