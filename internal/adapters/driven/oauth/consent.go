package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	callbacksrv "github.com/custodia-labs/carcrm-cli/internal/adapters/driving/oauth"
	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
	"github.com/custodia-labs/carcrm-cli/internal/logger"
)

// Google OAuth 2.0 endpoints.
const (
	GoogleAuthURL   = "https://accounts.google.com/o/oauth2/v2/auth"
	GoogleTokenURL  = "https://oauth2.googleapis.com/token"
	GoogleRevokeURL = "https://oauth2.googleapis.com/revoke"
)

// DriveFileScope grants access to files the app creates or opens.
const DriveFileScope = "https://www.googleapis.com/auth/drive.file"

// Callback port range for the local redirect server.
const (
	callbackPortStart = 8180
	callbackPortEnd   = 8280
)

// ConsentConfig configures the Google consent provider.
type ConsentConfig struct {
	ClientID     string
	ClientSecret string

	// AuthURL, TokenURL and RevokeURL default to Google's endpoints.
	// Overridable for tests.
	AuthURL   string
	TokenURL  string
	RevokeURL string

	// Scopes defaults to the Drive file scope.
	Scopes []string

	// ConsentTimeout bounds the wait for the user to act in the browser.
	ConsentTimeout time.Duration

	// OpenBrowser launches the consent URL. Defaults to the platform
	// browser; overridable for tests.
	OpenBrowser func(url string) error
}

func (c *ConsentConfig) applyDefaults() {
	if c.AuthURL == "" {
		c.AuthURL = GoogleAuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = GoogleTokenURL
	}
	if c.RevokeURL == "" {
		c.RevokeURL = GoogleRevokeURL
	}
	if len(c.Scopes) == 0 {
		c.Scopes = []string{DriveFileScope}
	}
	if c.ConsentTimeout <= 0 {
		c.ConsentTimeout = 5 * time.Minute
	}
	if c.OpenBrowser == nil {
		c.OpenBrowser = callbacksrv.OpenBrowser
	}
}

// Ensure Provider implements the interface.
var _ driven.ConsentProvider = (*Provider)(nil)

// Provider runs Google's authorization-code flow with PKCE through a
// local callback server for the interactive path, and the refresh-token
// grant for silent renewal.
type Provider struct {
	cfg ConsentConfig

	mu    sync.Mutex
	ready bool
}

// NewProvider creates a consent provider.
func NewProvider(cfg ConsentConfig) *Provider {
	cfg.applyDefaults()
	p := &Provider{cfg: cfg}
	p.ready = cfg.ClientID != "" && cfg.ClientSecret != ""
	return p
}

// Ready reports whether the client configuration is loaded.
func (p *Provider) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// RequestToken runs the interactive consent flow: it opens the user's
// browser on the consent URL and waits (bounded) for the redirect to
// the local callback server.
func (p *Provider) RequestToken(ctx context.Context) (*domain.Credential, error) {
	verifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("generate code verifier: %w", err)
	}
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	port, err := callbacksrv.FindAvailablePort(callbackPortStart, callbackPortEnd)
	if err != nil {
		return nil, fmt.Errorf("find callback port: %w", err)
	}

	server := callbacksrv.NewCallbackServer(port, state)
	if err := server.Start(); err != nil {
		return nil, fmt.Errorf("start callback server: %w", err)
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("Callback server shutdown: %v", err)
		}
	}()

	authURL := p.buildAuthURL(server.RedirectURI(), state, verifier)
	logger.Info("Opening browser for Google consent")
	if err := p.cfg.OpenBrowser(authURL); err != nil {
		logger.Warn("Could not open browser automatically: %v", err)
		logger.Info("Visit this URL to sign in: %s", authURL)
	}

	code, err := p.waitForCode(ctx, server)
	if err != nil {
		return nil, err
	}

	tokens, err := ExchangeCodeForTokens(ctx, p.cfg.TokenURL, p.cfg.ClientID, p.cfg.ClientSecret,
		code, server.RedirectURI(), verifier)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	return credentialFromResponse(tokens, ""), nil
}

// waitForCode waits for the redirect, honouring both the context and
// the configured consent timeout. A denial maps to the cancellation
// sentinel.
func (p *Provider) waitForCode(ctx context.Context, server *callbacksrv.CallbackServer) (string, error) {
	type result struct {
		code string
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		code, err := server.WaitForCode(p.cfg.ConsentTimeout)
		resCh <- result{code: code, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resCh:
		if res.err != nil {
			if errors.Is(res.err, callbacksrv.ErrAccessDenied) {
				return "", fmt.Errorf("%w: %v", domain.ErrSignInCancelled, res.err)
			}
			if errors.Is(res.err, callbacksrv.ErrCallbackTimeout) {
				return "", fmt.Errorf("%w: consent not granted in time", domain.ErrSignInCancelled)
			}
			return "", fmt.Errorf("consent callback: %w", res.err)
		}
		return res.code, nil
	}
}

// RefreshToken silently renews the credential. Never prompts.
func (p *Provider) RefreshToken(ctx context.Context, cred domain.Credential) (*domain.Credential, error) {
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", domain.ErrTokenRefreshFailed)
	}

	tokens, err := RefreshAccessToken(ctx, p.cfg.TokenURL, p.cfg.ClientID, p.cfg.ClientSecret, cred.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenRefreshFailed, err)
	}

	// The refresh response usually omits the refresh token; keep the
	// old one then.
	return credentialFromResponse(tokens, cred.RefreshToken), nil
}

// Revoke invalidates the token remotely. Best effort.
func (p *Provider) Revoke(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	if err := RevokeToken(ctx, p.cfg.RevokeURL, accessToken); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (p *Provider) buildAuthURL(redirectURI, state, verifier string) string {
	params := url.Values{}
	params.Set("client_id", p.cfg.ClientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(p.cfg.Scopes, " "))
	params.Set("state", state)
	params.Set("code_challenge", generateCodeChallenge(verifier))
	params.Set("code_challenge_method", "S256")
	// Offline access with forced consent guarantees a refresh token.
	params.Set("access_type", "offline")
	params.Set("prompt", "consent")

	return p.cfg.AuthURL + "?" + params.Encode()
}

func credentialFromResponse(tokens *TokenResponse, fallbackRefresh string) *domain.Credential {
	refresh := tokens.RefreshToken
	if refresh == "" {
		refresh = fallbackRefresh
	}
	expiry := tokens.Expiry
	if expiry.IsZero() {
		expiry = time.Now().Add(time.Hour)
	}
	return &domain.Credential{
		AccessToken:  tokens.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    expiry,
	}
}
