package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/guestlens/internal/common"
)

type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStore keeps objects in process memory. FailUpload and FailDelete,
// when set, are consulted before every call and may return an error to
// simulate an unavailable backend.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]Object
	baseURL string

	FailUpload func(path string) error
	FailDelete func(path string) error
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object), baseURL: baseURL}
}

func (s *MemoryStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpload != nil {
		if err := s.FailUpload(path); err != nil {
			return err
		}
	}
	s.objects[path] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete != nil {
		if err := s.FailDelete(path); err != nil {
			return err
		}
	}
	delete(s.objects, path)
	return nil
}

func (s *MemoryStore) PublicURL(path string) string {
	return joinURL(s.baseURL, path)
}

// Get returns a stored object.
func (s *MemoryStore) Get(path string) (Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[path]
	if !ok {
		return Object{}, fmt.Errorf("%s: %w", path, common.ErrorNotFound)
	}
	return obj, nil
}

// Paths lists stored object paths in sorted order.
func (s *MemoryStore) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for p := range s.objects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
