package driven

import "context"

// Well-known logical names for cached remote identifiers.
const (
	CacheKeyRootFolder   = "root_folder"
	CacheKeyFormsFolder  = "forms_folder"
	CacheKeyExcelFolder  = "excel_folder"
	CacheKeyCustomerFile = "customer_data_file"
	CacheKeyFormsFile    = "forms_meta_file"
	CacheKeyExcelFile    = "excel_meta_file"
)

// RemoteIDCache maps logical names to resolved remote object ids so
// repeat lookups avoid remote list calls. Entries are removed when a
// remote operation reports the object missing, forcing re-resolution.
type RemoteIDCache interface {
	// Get returns the cached id for a logical name, or "" and false.
	Get(ctx context.Context, name string) (string, bool, error)

	// Put stores or replaces the id for a logical name.
	Put(ctx context.Context, name, id string) error

	// Delete removes one entry. Deleting an absent entry is a no-op.
	Delete(ctx context.Context, name string) error

	// Clear removes all entries, used on sign-out.
	Clear(ctx context.Context) error
}
