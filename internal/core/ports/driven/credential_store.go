package driven

import (
	"context"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
)

// CredentialStore persists the single OAuth session in durable local
// key/value storage. Written only by the auth manager.
type CredentialStore interface {
	// Save overwrites any prior credential.
	Save(ctx context.Context, cred domain.Credential) error

	// Load returns the stored credential, or domain.ErrNotFound if none.
	// Expiry-buffer handling is the caller's concern; Load returns whatever
	// is stored.
	Load(ctx context.Context) (*domain.Credential, error)

	// Clear removes the credential unconditionally. Idempotent.
	Clear(ctx context.Context) error
}
