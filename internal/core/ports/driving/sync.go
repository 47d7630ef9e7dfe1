package driving

import (
	"context"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
)

// SyncEngine reconciles the local customer and template collections with
// the remote data files. All operations are idempotent with respect to
// repeated identical input, and at most one operation runs at a time:
// a call made while another is in flight no-ops with
// domain.ErrSyncInProgress and zero remote round-trips.
type SyncEngine interface {
	// Upload overwrites the remote customer file with the full serialized
	// collection.
	Upload(ctx context.Context, records []domain.Customer) error

	// Download returns the remote customer collection. A missing data
	// file means "no data yet": an empty collection, never an error.
	Download(ctx context.Context) ([]domain.Customer, error)

	// Sync reconciles per the direction and returns the resulting
	// collection. Merge is remote-authoritative: local-only records are
	// appended and re-uploaded; local edits to shared ids are discarded.
	Sync(ctx context.Context, local []domain.Customer, direction domain.SyncDirection) ([]domain.Customer, error)

	// SyncForms merges the local form-template collection with the remote
	// metadata file, under the same policy as Sync.
	SyncForms(ctx context.Context, local []domain.FormTemplate) ([]domain.FormTemplate, error)

	// SyncExcel merges the local excel-template collection with the
	// remote metadata file.
	SyncExcel(ctx context.Context, local []domain.ExcelTemplate) ([]domain.ExcelTemplate, error)

	// Status returns a copy of the transient sync status.
	Status() domain.SyncStatus

	// OnSyncChange subscribes to status transitions. The returned
	// function unsubscribes.
	OnSyncChange(fn func(domain.SyncEvent)) (unsubscribe func())
}
