package driven

import (
	"context"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
)

// CustomerStore persists the local customer collection. It is the
// immediately-consistent source of truth; the remote store is only
// eventually consistent. All writes go through this single path.
type CustomerStore interface {
	// List returns the full collection, ordered by creation time.
	List(ctx context.Context) ([]domain.Customer, error)

	// Get returns one customer, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Customer, error)

	// Save creates or updates a customer by id.
	Save(ctx context.Context, c domain.Customer) error

	// Delete removes a customer by id. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error

	// ReplaceAll atomically swaps the whole collection, used when a sync
	// adopts the merged result.
	ReplaceAll(ctx context.Context, customers []domain.Customer) error
}

// TemplateStore persists form and excel templates locally.
type TemplateStore interface {
	ListForms(ctx context.Context) ([]domain.FormTemplate, error)
	SaveForm(ctx context.Context, t domain.FormTemplate) error
	DeleteForm(ctx context.Context, id string) error
	ReplaceForms(ctx context.Context, templates []domain.FormTemplate) error

	ListExcel(ctx context.Context) ([]domain.ExcelTemplate, error)
	SaveExcel(ctx context.Context, t domain.ExcelTemplate) error
	DeleteExcel(ctx context.Context, id string) error
	ReplaceExcel(ctx context.Context, templates []domain.ExcelTemplate) error
}
