package driven

import (
	"context"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
)

// QueueStore persists pending writes durably so offline or interrupted
// edits survive restarts.
type QueueStore interface {
	// Enqueue appends a new entry.
	Enqueue(ctx context.Context, w domain.PendingWrite) error

	// Pending returns pending entries for one entity type in creation
	// order. Completed and failed entries are excluded.
	Pending(ctx context.Context, entityType domain.EntityType) ([]domain.PendingWrite, error)

	// List returns all entries in creation order, regardless of status.
	List(ctx context.Context) ([]domain.PendingWrite, error)

	// Update persists a changed entry (status, retry count, backoff).
	Update(ctx context.Context, w domain.PendingWrite) error

	// Remove deletes an entry by id.
	Remove(ctx context.Context, id string) error

	// RemoveCompleted deletes all completed entries.
	RemoveCompleted(ctx context.Context) error
}
