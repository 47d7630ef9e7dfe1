package driven

import "context"

// RemoteObject is the subset of remote file metadata the sync engine needs.
type RemoteObject struct {
	ID   string
	Name string
	// MimeType distinguishes folders from files.
	MimeType string
	// WebLink is the shareable browser link, when the provider returns one.
	WebLink string
}

// RemoteQuery scopes a remote list call.
type RemoteQuery struct {
	// Name matches objects by exact name.
	Name string
	// ParentID scopes to a folder; empty means the account root.
	ParentID string
	// FoldersOnly restricts to folder objects.
	FoldersOnly bool
	// IncludeTrashed includes trashed objects. Sync never sets this.
	IncludeTrashed bool
}

// RemoteStorageClient is the subset of the cloud file-storage API the
// sync engine needs. Adapters map provider errors onto the domain
// sentinels: missing objects become domain.ErrRemoteNotFound, rejected
// tokens domain.ErrRemoteUnauthorized, network and 5xx failures
// domain.ErrRemoteTransport.
type RemoteStorageClient interface {
	// ListFiles returns objects matching the query.
	ListFiles(ctx context.Context, q RemoteQuery) ([]RemoteObject, error)

	// CreateFolder creates a folder and returns its new id.
	CreateFolder(ctx context.Context, name, parentID string) (*RemoteObject, error)

	// CreateFile creates a file with the given content and returns its id.
	CreateFile(ctx context.Context, name, parentID string, content []byte, mimeType string) (*RemoteObject, error)

	// ReadFile returns the full content of a file.
	ReadFile(ctx context.Context, fileID string) ([]byte, error)

	// UpdateFile overwrites the full content of a file. No partial writes.
	UpdateFile(ctx context.Context, fileID string, content []byte) error

	// About performs a cheap authenticated call, used as a token health
	// probe.
	About(ctx context.Context) error
}
