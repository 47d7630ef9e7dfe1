package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync is already running.
	// Callers needing guaranteed execution retry after observing idle status.
	ErrSyncInProgress = errors.New("sync in progress")

	// Authentication Errors.

	// ErrAuthConfig indicates the OAuth client id or secret is missing.
	// Fatal at initialisation; never retried.
	ErrAuthConfig = errors.New("auth client configuration missing")

	// ErrAuthRequired indicates an operation needs a signed-in session.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthExpired indicates the session has expired and refresh failed.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrSignInCancelled indicates the user cancelled or denied the
	// interactive consent prompt. Non-fatal to application state.
	ErrSignInCancelled = errors.New("sign-in cancelled")

	// ErrTokenRefreshFailed indicates a silent token refresh failed.
	// Transient; retried a bounded number of times before forcing sign-out.
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// ErrConsentUnavailable indicates the consent provider has not
	// finished loading its client configuration.
	ErrConsentUnavailable = errors.New("consent provider not ready")

	// Remote Storage Errors.

	// ErrRemoteNotFound indicates a remote object is missing.
	// For folders and files this means "absent, create it"; for the data
	// file download it means "no data yet". Never a hard failure.
	ErrRemoteNotFound = errors.New("remote object not found")

	// ErrRemoteUnauthorized indicates the remote service rejected the
	// access token. Triggers a silent refresh.
	ErrRemoteUnauthorized = errors.New("remote unauthorised")

	// ErrRemoteTransport indicates a network or server failure.
	// The sync aborts with status error; safe to retry later.
	ErrRemoteTransport = errors.New("remote transport failure")

	// ErrRateLimited indicates the remote API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Queue Errors.

	// ErrWriteFailed indicates a queued write exhausted its retries
	// and was marked failed. Surfaced to the user, never retried silently.
	ErrWriteFailed = errors.New("queued write failed permanently")
)
