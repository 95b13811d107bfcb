package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps objects in process memory. It backs the "memory" driver
// for local runs without cloud credentials.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	urls    URLScheme
}

type memoryObject struct {
	body        []byte
	contentType string
}

var _ Gateway = (*MemoryStore)(nil)

func NewMemoryStore(bucket, publicBaseURL string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		urls:    NewURLScheme(bucket, publicBaseURL),
	}
}

func (m *MemoryStore) Store(_ context.Context, key string, body []byte, contentType string) (string, error) {
	copied := append([]byte(nil), body...)
	m.mu.Lock()
	m.objects[key] = memoryObject{body: copied, contentType: contentType}
	m.mu.Unlock()
	return m.urls.PublicURL(key), nil
}

func (m *MemoryStore) Fetch(_ context.Context, url string) ([]byte, error) {
	key, err := m.urls.KeyFromURL(url)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return append([]byte(nil), obj.body...), nil
}

// ContentType reports the stored content type of key, or "" when absent.
func (m *MemoryStore) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key].contentType
}
