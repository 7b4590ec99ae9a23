// Package blob stores uploaded verification documents and returns the URL
// they can be fetched from.
package blob

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Object is a stored document.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// MemoryStore keeps documents in memory under memory:// URLs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

func (s *MemoryStore) Put(_ context.Context, owner, name, contentType string, data []byte) (string, error) {
	key := ObjectKey(owner, name)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{Key: key, ContentType: contentType, Data: append([]byte(nil), data...)}
	return "memory://" + key, nil
}

// Get returns the object stored under url.
func (s *MemoryStore) Get(url string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[strings.TrimPrefix(url, "memory://")]
	return obj, ok
}

// ObjectKey builds a collision-free key that keeps the original base name
// readable: "<owner>/<uuid>-<name>".
func ObjectKey(owner, name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		base = "document"
	}
	return fmt.Sprintf("%s/%s-%s", owner, uuid.NewString(), base)
}
