package driving

import (
	"context"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
)

// CredentialService is the expiry-aware view over the credential store.
type CredentialService interface {
	// Save persists a token expiring expiresIn seconds from now.
	Save(ctx context.Context, accessToken, refreshToken string, expiresIn int) error

	// Read returns the stored credential, or nil when none is stored or
	// the token is within the expiry buffer. A soon-to-expire token is
	// proactively cleared.
	Read(ctx context.Context) (*domain.Credential, error)

	// Clear removes the credential. Idempotent.
	Clear(ctx context.Context) error
}
