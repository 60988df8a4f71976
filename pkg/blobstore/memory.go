package blobstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type memoryObject struct {
	body        []byte
	contentType string
	modified    time.Time
}

// MemoryStore keeps objects in a process-local map.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: map[string]memoryObject{},
		now:     time.Now,
	}
}

// SetClock overrides the modification clock, mostly for expiry tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	if s == nil || now == nil {
		return
	}
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if s == nil {
		return nil, errors.New("memory blobstore: store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "memory blobstore: %s", key)
	}
	out := make([]byte, len(obj.body))
	copy(out, obj.body)
	return out, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, body []byte, contentType string) error {
	if s == nil {
		return errors.New("memory blobstore: store is nil")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("memory blobstore: empty key")
	}
	cp := make([]byte, len(body))
	copy(cp, body)
	s.mu.Lock()
	s.objects[key] = memoryObject{body: cp, contentType: contentType, modified: s.now()}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	if s == nil {
		return nil, errors.New("memory blobstore: store is nil")
	}
	s.mu.RLock()
	out := make([]ObjectInfo, 0, len(s.objects))
	for k, obj := range s.objects {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		out = append(out, ObjectInfo{Key: k, Size: int64(len(obj.body)), LastModified: obj.modified})
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	if s == nil {
		return errors.New("memory blobstore: store is nil")
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
