package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
)

// Ensure TemplateStore implements the interface.
var _ driven.TemplateStore = (*TemplateStore)(nil)

// TemplateStore is an in-memory implementation of driven.TemplateStore.
type TemplateStore struct {
	mu    sync.RWMutex
	forms map[string]domain.FormTemplate
	excel map[string]domain.ExcelTemplate
}

// NewTemplateStore creates a new in-memory template store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{
		forms: make(map[string]domain.FormTemplate),
		excel: make(map[string]domain.ExcelTemplate),
	}
}

// ListForms returns all form templates ordered by creation time.
func (s *TemplateStore) ListForms(_ context.Context) ([]domain.FormTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.FormTemplate, 0, len(s.forms))
	for _, t := range s.forms {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SaveForm creates or updates a form template.
func (s *TemplateStore) SaveForm(_ context.Context, t domain.FormTemplate) error {
	if t.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms[t.ID] = t
	return nil
}

// DeleteForm removes a form template by id.
func (s *TemplateStore) DeleteForm(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forms, id)
	return nil
}

// ReplaceForms atomically swaps the form-template collection.
func (s *TemplateStore) ReplaceForms(_ context.Context, templates []domain.FormTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.forms = make(map[string]domain.FormTemplate, len(templates))
	for _, t := range templates {
		s.forms[t.ID] = t
	}
	return nil
}

// ListExcel returns all excel templates ordered by creation time.
func (s *TemplateStore) ListExcel(_ context.Context) ([]domain.ExcelTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ExcelTemplate, 0, len(s.excel))
	for _, t := range s.excel {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SaveExcel creates or updates an excel template.
func (s *TemplateStore) SaveExcel(_ context.Context, t domain.ExcelTemplate) error {
	if t.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.excel[t.ID] = t
	return nil
}

// DeleteExcel removes an excel template by id.
func (s *TemplateStore) DeleteExcel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.excel, id)
	return nil
}

// ReplaceExcel atomically swaps the excel-template collection.
func (s *TemplateStore) ReplaceExcel(_ context.Context, templates []domain.ExcelTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.excel = make(map[string]domain.ExcelTemplate, len(templates))
	for _, t := range templates {
		s.excel[t.ID] = t
	}
	return nil
}
