package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-video/pkg/simplevideo"
)

// Store is an in-memory implementation of simplevideo.ContentStore
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates a new in-memory content store
func New() *Store {
	return &Store{
		objects: make(map[string][]byte),
	}
}

var _ simplevideo.ContentStore = (*Store)(nil)

// Put buffers r fully, then claims the key.
func (s *Store) Put(ctx context.Context, assetID uuid.UUID, number int, r io.Reader) (string, error) {
	key := simplevideo.ContentLocation(assetID, number)

	data, err := io.ReadAll(r)
	if err != nil {
		return "", &simplevideo.StorageError{Backend: "memory", Key: key, Op: "put", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; exists {
		return "", simplevideo.ErrContentExists
	}
	s.objects[key] = data
	return key, nil
}

func (s *Store) Get(ctx context.Context, location string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.objects[location]
	if !exists {
		return nil, simplevideo.ErrContentNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Delete(ctx context.Context, location string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[location]; !exists {
		return false, nil
	}
	delete(s.objects, location)
	return true, nil
}

// Len reports how many objects are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
