package gdrive

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
)

// WrapError converts a Google API error to the matching domain sentinel.
// Errors that are not googleapi errors are wrapped as transport failures
// so the core can treat them uniformly.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return errors.Join(domain.ErrRemoteTransport, err)
	}

	switch gerr.Code {
	case http.StatusUnauthorized:
		return errors.Join(domain.ErrRemoteUnauthorized, err)
	case http.StatusForbidden:
		return errors.Join(domain.ErrRemoteUnauthorized, err)
	case http.StatusNotFound:
		return errors.Join(domain.ErrRemoteNotFound, err)
	case http.StatusTooManyRequests:
		return errors.Join(domain.ErrRateLimited, err)
	default:
		return errors.Join(domain.ErrRemoteTransport, err)
	}
}

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	if errors.Is(err, domain.ErrRemoteUnauthorized) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden
	}
	return false
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	if errors.Is(err, domain.ErrRemoteNotFound) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	return false
}
