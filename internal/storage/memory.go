package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"medvault-server/internal/apperr"
)

// Memory keeps blobs in process memory. It backs the "memory" storage driver
// used for local development.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memoryObject)}
}

func (m *Memory) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", apperr.Remote("read upload", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return "", apperr.Validation("upload size mismatch: declared %d, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, contentType: contentType}
	return key, nil
}

func (m *Memory) URL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[ref]; !ok {
		return "", apperr.NotFound("object")
	}
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("memory:///%s?expires=%d", url.PathEscape(ref), expires), nil
}

func (m *Memory) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[ref]
	if !ok {
		return nil, apperr.NotFound("object")
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *Memory) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	return nil
}

// Len reports how many objects are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
