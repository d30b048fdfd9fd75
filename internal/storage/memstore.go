package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// MemStore is an in-memory BlobStore used by tests and local tooling.
type MemStore struct {
	mu       sync.Mutex
	objects  map[string]memObject
	base     string
	now      func() time.Time
	failMove map[string]bool
}

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

func NewMemStore(publicBase string) *MemStore {
	return &MemStore{
		objects:  make(map[string]memObject),
		base:     strings.TrimRight(publicBase, "/"),
		now:      time.Now,
		failMove: make(map[string]bool),
	}
}

// FailMoveFor makes subsequent Move calls for key fail, for testing the
// organizer's fallback path.
func (s *MemStore) FailMoveFor(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failMove[key] = true
}

// SetClock injects the clock for sweep tests.
func (s *MemStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemStore) Upload(_ context.Context, key string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memObject{data: data, contentType: contentType, modified: s.now()}
	return s.base + "/" + key, nil
}

func (s *MemStore) Move(_ context.Context, fromKey, toKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failMove[fromKey] {
		return fmt.Errorf("move %s: injected failure", fromKey)
	}
	obj, ok := s.objects[fromKey]
	if !ok {
		return fmt.Errorf("move %s: not found", fromKey)
	}
	s.objects[toKey] = obj
	delete(s.objects, fromKey)
	return nil
}

func (s *MemStore) Remove(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.objects, k)
	}
	return nil
}

func (s *MemStore) List(_ context.Context, prefix string) ([]BlobInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []BlobInfo
	for k, obj := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, BlobInfo{Key: k, Size: int64(len(obj.data)), LastModified: obj.modified})
		}
	}
	return out, nil
}

func (s *MemStore) PublicURL(key string) string {
	return s.base + "/" + key
}

func (s *MemStore) KeyFromURL(rawURL string) (string, bool) {
	if !strings.HasPrefix(rawURL, s.base+"/") {
		return "", false
	}
	key := strings.TrimPrefix(rawURL, s.base+"/")
	if key == "" {
		return "", false
	}
	return key, true
}

// Has reports whether a key exists, for test assertions.
func (s *MemStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// Keys returns all stored keys, for test assertions.
func (s *MemStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	return out
}
