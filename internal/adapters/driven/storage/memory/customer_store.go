package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
)

// Ensure CustomerStore implements the interface.
var _ driven.CustomerStore = (*CustomerStore)(nil)

// CustomerStore is an in-memory implementation of driven.CustomerStore.
type CustomerStore struct {
	mu        sync.RWMutex
	customers map[string]domain.Customer
}

// NewCustomerStore creates a new in-memory customer store.
func NewCustomerStore() *CustomerStore {
	return &CustomerStore{
		customers: make(map[string]domain.Customer),
	}
}

// List returns the full collection ordered by creation time.
func (s *CustomerStore) List(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Get returns one customer by id.
func (s *CustomerStore) Get(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[domain.NormalizeID(id)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// Save creates or updates a customer by id.
func (s *CustomerStore) Save(_ context.Context, c domain.Customer) error {
	if c.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[domain.NormalizeID(c.ID)] = c
	return nil
}

// Delete removes a customer by id. Absent ids are a no-op.
func (s *CustomerStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.customers, domain.NormalizeID(id))
	return nil
}

// ReplaceAll atomically swaps the whole collection.
func (s *CustomerStore) ReplaceAll(_ context.Context, customers []domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.customers = make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		s.customers[domain.NormalizeID(c.ID)] = c
	}
	return nil
}
