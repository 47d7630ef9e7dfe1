package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
)

// Ensure QueueStore implements the interface.
var _ driven.QueueStore = (*QueueStore)(nil)

// QueueStore is an in-memory implementation of driven.QueueStore.
type QueueStore struct {
	mu      sync.RWMutex
	entries map[string]domain.PendingWrite
	seq     map[string]int // preserves enqueue order for equal timestamps
	nextSeq int
}

// NewQueueStore creates a new in-memory queue store.
func NewQueueStore() *QueueStore {
	return &QueueStore{
		entries: make(map[string]domain.PendingWrite),
		seq:     make(map[string]int),
	}
}

// Enqueue appends a new entry.
func (s *QueueStore) Enqueue(_ context.Context, w domain.PendingWrite) error {
	if w.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[w.ID] = w
	s.seq[w.ID] = s.nextSeq
	s.nextSeq++
	return nil
}

// Pending returns pending entries for one entity type in creation order.
func (s *QueueStore) Pending(_ context.Context, entityType domain.EntityType) ([]domain.PendingWrite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.PendingWrite
	for _, w := range s.entries {
		if w.EntityType == entityType && w.Status == domain.WritePending {
			out = append(out, w)
		}
	}
	s.sortByEnqueue(out)
	return out, nil
}

// List returns all entries in creation order.
func (s *QueueStore) List(_ context.Context) ([]domain.PendingWrite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PendingWrite, 0, len(s.entries))
	for _, w := range s.entries {
		out = append(out, w)
	}
	s.sortByEnqueue(out)
	return out, nil
}

// Update persists a changed entry.
func (s *QueueStore) Update(_ context.Context, w domain.PendingWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[w.ID]; !ok {
		return domain.ErrNotFound
	}
	s.entries[w.ID] = w
	return nil
}

// Remove deletes an entry by id.
func (s *QueueStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	delete(s.seq, id)
	return nil
}

// RemoveCompleted deletes all completed entries.
func (s *QueueStore) RemoveCompleted(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, w := range s.entries {
		if w.Status == domain.WriteCompleted {
			delete(s.entries, id)
			delete(s.seq, id)
		}
	}
	return nil
}

// sortByEnqueue orders entries by enqueue sequence. Caller holds a lock.
func (s *QueueStore) sortByEnqueue(entries []domain.PendingWrite) {
	sort.Slice(entries, func(i, j int) bool {
		return s.seq[entries[i].ID] < s.seq[entries[j].ID]
	})
}
