package gdrive

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenProvider yields the current access token. The auth manager's
// Token method satisfies it.
type TokenProvider func(ctx context.Context) (string, error)

// tokenSourceAdapter adapts a TokenProvider to oauth2.TokenSource so
// Drive API clients pick up the managed token on every request.
type tokenSourceAdapter struct {
	provider TokenProvider
	ctx      context.Context
}

// NewTokenSource creates an oauth2.TokenSource from a TokenProvider.
// The returned TokenSource can be used with option.WithTokenSource()
// when creating the Drive service.
func NewTokenSource(ctx context.Context, provider TokenProvider) oauth2.TokenSource {
	return &tokenSourceAdapter{
		provider: provider,
		ctx:      ctx,
	}
}

// Token implements oauth2.TokenSource.
func (t *tokenSourceAdapter) Token() (*oauth2.Token, error) {
	accessToken, err := t.provider(t.ctx)
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}, nil
}
