package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driving"
	"github.com/custodia-labs/carcrm-cli/internal/logger"
)

// Ensure CredentialService implements the interface.
var _ driving.CredentialService = (*CredentialService)(nil)

// CredentialService is the expiry-aware wrapper over the credential
// store. A token inside the five-minute expiry buffer is treated as
// absent and proactively cleared, so callers never hold a token that
// could lapse mid-request.
type CredentialService struct {
	store driven.CredentialStore
	clock clockwork.Clock
}

// NewCredentialService creates a new credential service.
func NewCredentialService(store driven.CredentialStore, clock clockwork.Clock) *CredentialService {
	return &CredentialService{
		store: store,
		clock: clock,
	}
}

// Save persists a token expiring expiresIn seconds from now, overwriting
// any prior value.
func (s *CredentialService) Save(ctx context.Context, accessToken, refreshToken string, expiresIn int) error {
	if accessToken == "" {
		return domain.ErrInvalidInput
	}
	cred := domain.NewCredential(accessToken, refreshToken, expiresIn, s.clock.Now())
	if err := s.store.Save(ctx, cred); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Read returns the stored credential, or nil when none is stored or the
// token is within the expiry buffer. A soon-to-expire token is cleared.
func (s *CredentialService) Read(ctx context.Context) (*domain.Credential, error) {
	cred, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}

	if !cred.Usable(s.clock.Now()) {
		logger.Debug("Stored token within expiry buffer, clearing")
		if err := s.store.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear stale credential: %w", err)
		}
		return nil, nil
	}

	return cred, nil
}

// Clear removes the stored credential. Idempotent.
func (s *CredentialService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}
