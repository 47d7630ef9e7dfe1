package driving

import (
	"context"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
)

// AuthState is the externally observable sign-in state.
type AuthState string

const (
	// AuthSignedOut means no usable session exists.
	AuthSignedOut AuthState = "signed_out"
	// AuthSignedIn means a usable session exists.
	AuthSignedIn AuthState = "signed_in"
)

// AuthEvent is delivered to auth observers on every sign-in/sign-out
// transition, including session restore at startup.
type AuthEvent struct {
	State AuthState
	// Err carries the cause of a forced sign-out, when there is one.
	Err error
}

// AuthManager owns the token lifecycle: interactive sign-in, silent
// refresh scheduling, bounded refresh retries, periodic re-validation
// and sign-in/sign-out notification.
type AuthManager interface {
	// Initialize configures the manager and attempts to restore a stored
	// session. Fails with domain.ErrAuthConfig when the OAuth client
	// configuration is absent, and with domain.ErrConsentUnavailable when
	// the consent provider does not become ready within the bounded wait.
	Initialize(ctx context.Context) error

	// SignIn runs the interactive consent flow. On success the fresh
	// credential is persisted, refresh is scheduled and listeners are
	// notified. On error listeners observe signed-out and the error
	// propagates to the caller.
	SignIn(ctx context.Context) error

	// SignOut best-effort revokes the token remotely, clears the local
	// credential, cancels all timers and notifies listeners.
	SignOut(ctx context.Context) error

	// SignedIn reports whether a usable session exists.
	SignedIn() bool

	// Token returns the current access token, or domain.ErrAuthRequired.
	Token(ctx context.Context) (string, error)

	// Credential returns a copy of the current credential, or
	// domain.ErrAuthRequired when signed out.
	Credential(ctx context.Context) (*domain.Credential, error)

	// OnAuthChange subscribes to sign-in/sign-out transitions. Listeners
	// are notified synchronously in subscription order. The returned
	// function unsubscribes; calling it during a notification must not
	// panic or skip other listeners.
	OnAuthChange(fn func(AuthEvent)) (unsubscribe func())

	// Close stops all background timers.
	Close()
}
