// Package state persists alignment reference states between invocations,
// so repeated expand and contract passes keep compounding.
//
// Backends:
//   - MemoryStore: process lifetime only, used by tests and the service default
//   - FileStore: one JSON file per key, used by the CLI
//   - RedisStore: shared between align service instances
package state

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-redis/redis/v8"

	"github.com/gravitas-games/hexalign/internal/align"
	"github.com/gravitas-games/hexalign/internal/config"
	"github.com/gravitas-games/hexalign/pkg/errors"
)

// Store is the interface for reference state backends.
type Store interface {
	// Get returns the state stored under key, or nil, nil if there is none.
	Get(ctx context.Context, key string) (*align.State, error)
	// Set stores st under key.
	Set(ctx context.Context, key string, st *align.State) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Key derives a stable store key from its parts, e.g. a layout path and a
// selection.
func Key(parts ...string) string {
	h := sha1.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:20]
}

// Open creates the backend selected by cfg.State.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (Store, error) {
	switch cfg.State.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		dir, err := cfg.StateDir()
		if err != nil {
			return nil, err
		}
		return NewFileStore(dir)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to connect to Redis at %s", cfg.Redis.Address)
		}
		if logger != nil {
			logger.Info("Connected to Redis", "addr", cfg.Redis.Address)
		}
		ttl := time.Duration(cfg.State.TTLHours) * time.Hour
		return NewRedisStore(client, cfg.Redis.KeyPrefix, ttl), nil
	}
	return nil, errors.InvalidArgument("unknown state backend %q", cfg.State.Backend)
}

// MemoryStore keeps states in a map.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]align.State
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]align.State)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*align.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[key]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, st *align.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = *st
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
