package progress

import (
	"context"
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Storage is a string key-value backend in the manner of a browser's
// local storage. Implementations may fail; Store absorbs those failures.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// HealthChecker is implemented by backends that can report liveness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// LocalNamespace is used when no device id is supplied, e.g. by a
// single-device CLI.
const LocalNamespace = "local"

// Namespace derives the key prefix for a device. Device ids are hashed so
// backends never hold the raw identifier.
func Namespace(deviceID string) string {
	if deviceID == "" {
		return LocalNamespace
	}
	sum := blake2b.Sum256([]byte(deviceID))
	return hex.EncodeToString(sum[:16])
}

// MemoryStorage is an in-memory Storage for tests and development.
type MemoryStorage struct {
	items map[string]string
	mu    sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		items: make(map[string]string),
	}
}

func (m *MemoryStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryStorage) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryStorage) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
