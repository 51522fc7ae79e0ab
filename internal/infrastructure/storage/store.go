// Package storage provides object storage backends and the audit archive
// exporter built on top of them.
package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ObjectStore is the minimal object storage surface the archiver needs.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	ObjectExists(ctx context.Context, key string) (bool, error)
	DeleteObject(ctx context.Context, key string) error
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// MemoryObjectStore keeps objects in memory. Use it in tests and local
// development where no S3-compatible backend is running.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryObjectStore creates an empty in-memory store
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string][]byte)}
}

var _ ObjectStore = (*MemoryObjectStore)(nil)

// Upload stores a copy of data under key
func (s *MemoryObjectStore) Upload(_ context.Context, key string, data []byte, _ string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	s.objects[key] = copied
	return nil
}

// ObjectExists reports whether key has been uploaded
func (s *MemoryObjectStore) ObjectExists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

// DeleteObject removes key if present
func (s *MemoryObjectStore) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// DownloadURL returns a fake URL for the stored object
func (s *MemoryObjectStore) DownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	return "memory://" + key, time.Now().Add(expiresIn), nil
}

// Object returns the stored bytes for key, or nil when absent
func (s *MemoryObjectStore) Object(key string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[key]
}
