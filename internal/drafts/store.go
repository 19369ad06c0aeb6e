package drafts

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when no draft exists for a workflow.
var ErrNotFound = errors.New("draft not found")

// Store saves serialized workflow documents keyed by workflow id.
type Store interface {
	Save(ctx context.Context, workflowID string, data []byte) error
	Load(ctx context.Context, workflowID string) ([]byte, error)
	Delete(ctx context.Context, workflowID string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// MemoryStore is an in-process Store backed by sync.Map.
type MemoryStore struct {
	drafts sync.Map // Key: workflow id, Value: []byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save stores a copy of data.
func (s *MemoryStore) Save(_ context.Context, workflowID string, data []byte) error {
	s.drafts.Store(workflowID, append([]byte(nil), data...))
	return nil
}

// Load returns a copy of the stored draft.
func (s *MemoryStore) Load(_ context.Context, workflowID string) ([]byte, error) {
	v, ok := s.drafts.Load(workflowID)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v.([]byte)...), nil
}

// Delete removes a draft. Deleting a missing draft is not an error.
func (s *MemoryStore) Delete(_ context.Context, workflowID string) error {
	s.drafts.Delete(workflowID)
	return nil
}

// List returns the ids of all stored drafts, sorted.
func (s *MemoryStore) List(context.Context) ([]string, error) {
	var ids []string
	s.drafts.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	sort.Strings(ids)
	return ids, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
