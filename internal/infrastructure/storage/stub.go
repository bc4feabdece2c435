package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// StoredObject is an object held by MemoryObjectStorage
type StoredObject struct {
	Data        []byte
	ContentType string
}

// MemoryObjectStorage keeps objects in process memory. It backs the
// "memory" storage driver used in development and tests.
type MemoryObjectStorage struct {
	mu      sync.RWMutex
	objects map[string]StoredObject

	// FailWith makes every PutObject fail when set
	FailWith error
}

// NewMemoryObjectStorage creates an empty in-memory store
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{objects: make(map[string]StoredObject)}
}

// Ensure MemoryObjectStorage implements ObjectStorage
var _ ObjectStorage = (*MemoryObjectStorage)(nil)

// PutObject stores a copy of data
func (s *MemoryObjectStorage) PutObject(_ context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	if bucket == "" {
		return "", errors.New("storage bucket is required")
	}
	if key == "" {
		return "", errors.New("storage key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return "", s.FailWith
	}
	location := Location(bucket, key)
	s.objects[location] = StoredObject{Data: append([]byte(nil), data...), ContentType: contentType}
	return location, nil
}

// Get returns a stored object by location
func (s *MemoryObjectStorage) Get(location string) (StoredObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[location]
	return obj, ok
}

// Locations lists stored object locations in order
func (s *MemoryObjectStorage) Locations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
