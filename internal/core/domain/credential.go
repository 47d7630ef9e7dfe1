package domain

import "time"

// ExpiryBuffer is how far ahead of the stored expiry a token is treated
// as already absent. A token inside the buffer is cleared rather than
// handed out, forcing a refresh before it can fail mid-request.
const ExpiryBuffer = 5 * time.Minute

// Credential is the stored OAuth session: a bearer token and the
// absolute time it expires. Owned exclusively by the auth manager;
// cleared on sign-out or terminal refresh failure.
type Credential struct {
	// AccessToken is the bearer token for remote API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is used for silent renewal. Optional.
	RefreshToken string `json:"refresh_token,omitempty"`
	// ExpiresAt is when the access token expires.
	ExpiresAt time.Time `json:"expires_at"`
}

// NewCredential builds a credential expiring expiresIn seconds from now.
func NewCredential(accessToken, refreshToken string, expiresIn int, now time.Time) Credential {
	return Credential{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(time.Duration(expiresIn) * time.Second),
	}
}

// Expired reports whether the token is past its expiry at the given time.
func (c Credential) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// Usable reports whether the token is still outside the expiry buffer.
// A token inside the buffer is treated as absent.
func (c Credential) Usable(now time.Time) bool {
	if c.AccessToken == "" {
		return false
	}
	return now.Before(c.ExpiresAt.Add(-ExpiryBuffer))
}

// Remaining returns the lifetime left at the given time. Never negative.
func (c Credential) Remaining(now time.Time) time.Duration {
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
