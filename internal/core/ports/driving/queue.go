package driving

import (
	"context"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
)

// WriteQueue records local mutations as durable pending writes and
// drains them to the remote store in the background. Draining never
// blocks local operations and never rolls back an applied mutation.
type WriteQueue interface {
	// Record enqueues a pending write for an applied local mutation.
	Record(ctx context.Context, entityType domain.EntityType, op domain.WriteOp, entityID string, payload any) error

	// Drain pushes due entries now, in creation order per entity type.
	// Distinct entity types drain independently. Normally invoked by the
	// background drainer; exposed for manual flushes.
	Drain(ctx context.Context) error

	// Entries returns all queue entries in creation order.
	Entries(ctx context.Context) ([]domain.PendingWrite, error)

	// Retry re-arms a failed entry for another round of attempts.
	Retry(ctx context.Context, id string) error

	// Start launches the background drainer; Stop halts it.
	Start(ctx context.Context)
	Stop()
}
