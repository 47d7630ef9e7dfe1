package driven

import (
	"context"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
)

// ConsentProvider acquires and revokes OAuth tokens. The interactive
// path may suspend indefinitely until the user acts; the silent path
// never prompts and fails when prior consent no longer permits renewal.
type ConsentProvider interface {
	// Ready reports whether the provider has finished loading its client
	// configuration. Initialize polls this at a short interval, bounded
	// by a timeout.
	Ready() bool

	// RequestToken runs the interactive consent flow and returns a fresh
	// credential. Returns domain.ErrSignInCancelled when the user cancels
	// or denies consent.
	RequestToken(ctx context.Context) (*domain.Credential, error)

	// RefreshToken silently renews the given credential without prompting.
	// Returns domain.ErrTokenRefreshFailed (possibly wrapped) on failure.
	RefreshToken(ctx context.Context, cred domain.Credential) (*domain.Credential, error)

	// Revoke invalidates the token remotely. Best effort; callers log and
	// ignore failures.
	Revoke(ctx context.Context, accessToken string) error
}
