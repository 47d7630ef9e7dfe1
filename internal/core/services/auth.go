package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driving"
	"github.com/custodia-labs/carcrm-cli/internal/logger"
)

// Ensure AuthManager implements the interface.
var _ driving.AuthManager = (*AuthManager)(nil)

// AuthConfig holds the token-lifecycle tuning knobs. Zero values fall
// back to the defaults below.
type AuthConfig struct {
	// ClientID and ClientSecret identify the OAuth application. Both are
	// required; Initialize fails without them.
	ClientID     string
	ClientSecret string

	// ConsentReadyTimeout bounds the wait for the consent provider to
	// finish loading its configuration.
	ConsentReadyTimeout time.Duration
	// ConsentPollInterval is how often readiness is polled.
	ConsentPollInterval time.Duration

	// RefreshAhead is how long before expiry the scheduled silent refresh
	// fires.
	RefreshAhead time.Duration
	// RefreshRetries bounds consecutive silent-refresh attempts.
	RefreshRetries int
	// RefreshRetryDelay is the fixed delay between retry attempts.
	RefreshRetryDelay time.Duration

	// PeriodicRefreshInterval is the unconditional refresh safety net.
	PeriodicRefreshInterval time.Duration
	// HealthCheckInterval is how often token health is probed remotely.
	HealthCheckInterval time.Duration
}

func (c *AuthConfig) applyDefaults() {
	if c.ConsentReadyTimeout <= 0 {
		c.ConsentReadyTimeout = 10 * time.Second
	}
	if c.ConsentPollInterval <= 0 {
		c.ConsentPollInterval = 100 * time.Millisecond
	}
	if c.RefreshAhead <= 0 {
		c.RefreshAhead = domain.ExpiryBuffer
	}
	if c.RefreshRetries <= 0 {
		c.RefreshRetries = 3
	}
	if c.RefreshRetryDelay <= 0 {
		c.RefreshRetryDelay = 5 * time.Second
	}
	if c.PeriodicRefreshInterval <= 0 {
		c.PeriodicRefreshInterval = 45 * time.Minute
	}
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = 10 * time.Minute
	}
}

type authListener struct {
	id int
	fn func(driving.AuthEvent)
}

// AuthManager owns the token lifecycle. It is the only writer of the
// credential store. All timers go through the injected clock so tests
// advance time deterministically.
type AuthManager struct {
	cfg     AuthConfig
	creds   driving.CredentialService
	consent driven.ConsentProvider
	remote  driven.RemoteStorageClient
	clock   clockwork.Clock

	mu           sync.Mutex
	initialized  bool
	current      *domain.Credential
	refreshTimer clockwork.Timer
	refreshing   bool
	listeners    []authListener
	nextListener int

	stopCh  chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

// NewAuthManager creates an auth manager. The remote client is used only
// for the periodic token health probe and may be nil in tests.
func NewAuthManager(
	cfg AuthConfig,
	creds driving.CredentialService,
	consent driven.ConsentProvider,
	remote driven.RemoteStorageClient,
	clock clockwork.Clock,
) *AuthManager {
	cfg.applyDefaults()
	return &AuthManager{
		cfg:     cfg,
		creds:   creds,
		consent: consent,
		remote:  remote,
		clock:   clock,
		stopCh:  make(chan struct{}),
	}
}

// Initialize validates the client configuration, waits (bounded) for the
// consent provider, restores a stored session if one survives, and
// starts the periodic refresh and health-check timers.
func (m *AuthManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	if m.cfg.ClientID == "" || m.cfg.ClientSecret == "" {
		return fmt.Errorf("%w: client id and secret are required", domain.ErrAuthConfig)
	}

	if err := m.waitForConsent(ctx); err != nil {
		return err
	}

	// Restore a surviving session, if any. Read applies the expiry
	// buffer, so an adopted credential always has usable lifetime left.
	cred, err := m.creds.Read(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if cred != nil {
		m.mu.Lock()
		m.current = cred
		m.scheduleRefreshLocked(cred.Remaining(m.clock.Now()))
		m.mu.Unlock()
		logger.Info("Restored session, token valid for %s", cred.Remaining(m.clock.Now()))
		m.notify(driving.AuthEvent{State: driving.AuthSignedIn})
	}

	m.mu.Lock()
	m.initialized = true
	m.mu.Unlock()

	m.wg.Add(2)
	go m.periodicRefreshLoop()
	go m.healthCheckLoop()

	return nil
}

// waitForConsent polls provider readiness at a short interval, bounded
// by ConsentReadyTimeout.
func (m *AuthManager) waitForConsent(ctx context.Context) error {
	if m.consent.Ready() {
		return nil
	}

	ticker := m.clock.NewTicker(m.cfg.ConsentPollInterval)
	defer ticker.Stop()
	deadline := m.clock.NewTimer(m.cfg.ConsentReadyTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.Chan():
			return fmt.Errorf("%w: not ready after %s", domain.ErrConsentUnavailable, m.cfg.ConsentReadyTimeout)
		case <-ticker.Chan():
			if m.consent.Ready() {
				return nil
			}
		}
	}
}

// SignIn runs the interactive consent flow. The prompt may suspend
// indefinitely; it blocks nothing else.
func (m *AuthManager) SignIn(ctx context.Context) error {
	cred, err := m.consent.RequestToken(ctx)
	if err != nil {
		m.notify(driving.AuthEvent{State: driving.AuthSignedOut, Err: err})
		return fmt.Errorf("sign in: %w", err)
	}

	if err := m.adopt(ctx, *cred); err != nil {
		return err
	}
	logger.Info("Signed in, token valid for %s", cred.Remaining(m.clock.Now()))
	m.notify(driving.AuthEvent{State: driving.AuthSignedIn})
	return nil
}

// adopt persists a fresh credential and schedules its refresh.
func (m *AuthManager) adopt(ctx context.Context, cred domain.Credential) error {
	expiresIn := int(cred.Remaining(m.clock.Now()) / time.Second)
	if err := m.creds.Save(ctx, cred.AccessToken, cred.RefreshToken, expiresIn); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}

	m.mu.Lock()
	m.current = &cred
	m.scheduleRefreshLocked(cred.Remaining(m.clock.Now()))
	m.mu.Unlock()
	return nil
}

// SignOut revokes the token remotely (best effort), clears the local
// credential, cancels the refresh timer and notifies listeners.
func (m *AuthManager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	cur := m.current
	m.current = nil
	m.cancelRefreshLocked()
	m.mu.Unlock()

	if cur != nil {
		if err := m.consent.Revoke(ctx, cur.AccessToken); err != nil {
			logger.Warn("Token revoke failed (ignored): %v", err)
		}
	}

	if err := m.creds.Clear(ctx); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}

	m.notify(driving.AuthEvent{State: driving.AuthSignedOut})
	return nil
}

// SignedIn reports whether a usable session exists.
func (m *AuthManager) SignedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.current.Usable(m.clock.Now())
}

// Token returns the current access token.
func (m *AuthManager) Token(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || !m.current.Usable(m.clock.Now()) {
		return "", domain.ErrAuthRequired
	}
	return m.current.AccessToken, nil
}

// Credential returns a copy of the current credential.
func (m *AuthManager) Credential(_ context.Context) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, domain.ErrAuthRequired
	}
	cred := *m.current
	return &cred, nil
}

// OnAuthChange subscribes to sign-in/sign-out transitions.
func (m *AuthManager) OnAuthChange(fn func(driving.AuthEvent)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextListener
	m.nextListener++
	m.listeners = append(m.listeners, authListener{id: id, fn: fn})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// notify calls all current listeners synchronously, in subscription
// order. Iterating a snapshot keeps unsubscribe-during-notify safe.
func (m *AuthManager) notify(ev driving.AuthEvent) {
	m.mu.Lock()
	snapshot := make([]authListener, len(m.listeners))
	copy(snapshot, m.listeners)
	m.mu.Unlock()

	for _, l := range snapshot {
		l.fn(ev)
	}
}

// scheduleRefreshLocked arms the pre-expiry silent refresh. When the
// remaining lifetime is already under the refresh-ahead buffer the
// refresh runs immediately instead of never. Caller holds m.mu.
func (m *AuthManager) scheduleRefreshLocked(remaining time.Duration) {
	m.cancelRefreshLocked()

	ahead := remaining - m.cfg.RefreshAhead
	if ahead <= 0 {
		logger.Debug("Token lifetime under refresh buffer, refreshing now")
		go func() {
			_ = m.Refresh(context.Background())
		}()
		return
	}

	logger.Debug("Silent refresh scheduled in %s", ahead)
	m.refreshTimer = m.clock.AfterFunc(ahead, func() {
		_ = m.Refresh(context.Background())
	})
}

// cancelRefreshLocked stops any armed refresh timer. Caller holds m.mu.
func (m *AuthManager) cancelRefreshLocked() {
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}
}

// Refresh issues a silent token renewal, retrying a bounded number of
// times. Exhausting the retries clears the session and fires a single
// sign-out notification. A refresh already in flight is not duplicated.
func (m *AuthManager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	if m.refreshing {
		m.mu.Unlock()
		logger.Debug("Refresh already in flight, skipping")
		return nil
	}
	if m.current == nil {
		m.mu.Unlock()
		return domain.ErrAuthRequired
	}
	m.refreshing = true
	cur := *m.current
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.refreshing = false
		m.mu.Unlock()
	}()

	var lastErr error
	for attempt := 1; attempt <= m.cfg.RefreshRetries; attempt++ {
		fresh, err := m.consent.RefreshToken(ctx, cur)
		if err == nil {
			if err := m.adopt(ctx, *fresh); err != nil {
				return err
			}
			logger.Debug("Silent refresh succeeded on attempt %d", attempt)
			return nil
		}

		lastErr = err
		logger.Warn("Silent refresh attempt %d/%d failed: %v", attempt, m.cfg.RefreshRetries, err)

		if attempt < m.cfg.RefreshRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-m.clock.After(m.cfg.RefreshRetryDelay):
			}
		}
	}

	// Terminal failure: the session is gone. Clear state and notify once.
	m.mu.Lock()
	m.current = nil
	m.cancelRefreshLocked()
	m.mu.Unlock()

	if err := m.creds.Clear(ctx); err != nil {
		logger.Warn("Failed to clear credential after refresh failure: %v", err)
	}

	m.notify(driving.AuthEvent{State: driving.AuthSignedOut, Err: domain.ErrAuthExpired})
	return fmt.Errorf("%w: %v", domain.ErrTokenRefreshFailed, lastErr)
}

// periodicRefreshLoop unconditionally attempts a silent refresh at a
// long interval, as a safety net against missed scheduled refreshes.
func (m *AuthManager) periodicRefreshLoop() {
	defer m.wg.Done()

	ticker := m.clock.NewTicker(m.cfg.PeriodicRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.Chan():
			if !m.SignedIn() {
				continue
			}
			if err := m.Refresh(context.Background()); err != nil {
				logger.Warn("Periodic refresh failed: %v", err)
			}
		}
	}
}

// healthCheckLoop probes token health with a cheap authenticated call.
// An unauthorized response triggers an immediate silent refresh.
func (m *AuthManager) healthCheckLoop() {
	defer m.wg.Done()

	ticker := m.clock.NewTicker(m.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.Chan():
			if !m.SignedIn() || m.remote == nil {
				continue
			}
			err := m.remote.About(context.Background())
			if err == nil {
				continue
			}
			if errors.Is(err, domain.ErrRemoteUnauthorized) {
				logger.Warn("Health check unauthorised, refreshing token")
				if rerr := m.Refresh(context.Background()); rerr != nil {
					logger.Warn("Health-triggered refresh failed: %v", rerr)
				}
			} else {
				logger.Debug("Health check error (ignored): %v", err)
			}
		}
	}
}

// Close stops the background timers. It does not sign out.
func (m *AuthManager) Close() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.cancelRefreshLocked()
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
}
