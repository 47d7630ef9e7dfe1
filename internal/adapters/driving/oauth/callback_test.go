//nolint:noctx // Test file uses http.Get for convenience; context not required in tests
package oauth

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCallbackServer(t *testing.T) {
	server := NewCallbackServer(8080, "test-state-123")

	require.NotNil(t, server)
	assert.Equal(t, 8080, server.port)
	assert.Equal(t, "test-state-123", server.expectedState)
	assert.NotNil(t, server.codeChan)
	assert.NotNil(t, server.errChan)
	assert.Nil(t, server.server)
}

func TestCallbackServer_StartStop(t *testing.T) {
	server := NewCallbackServer(0, "test-state")

	require.NoError(t, server.Start())
	assert.NotNil(t, server.server)
	assert.NotZero(t, server.Port(), "port 0 must resolve to a real port")

	require.NoError(t, server.Stop())
	// Stopping again should not error
	require.NoError(t, server.Stop())
}

func TestCallbackServer_Stop_NotStarted(t *testing.T) {
	server := NewCallbackServer(8080, "test-state")

	require.NoError(t, server.Stop())
}

func TestCallbackServer_RedirectURI(t *testing.T) {
	server := NewCallbackServer(0, "test-state")
	require.NoError(t, server.Start())
	defer server.Stop()

	assert.Equal(t, fmt.Sprintf("http://localhost:%d/callback", server.Port()), server.RedirectURI())
}

func TestCallbackServer_ReceivesCode(t *testing.T) {
	server := NewCallbackServer(0, "expected-state")
	require.NoError(t, server.Start())
	defer server.Stop()

	callbackURL := fmt.Sprintf("http://127.0.0.1:%d/callback?state=%s&code=%s",
		server.Port(), url.QueryEscape("expected-state"), url.QueryEscape("auth-code-1"))
	resp, err := http.Get(callbackURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	code, err := server.WaitForCode(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "auth-code-1", code)
}

func TestCallbackServer_StateMismatch(t *testing.T) {
	server := NewCallbackServer(0, "expected-state")
	require.NoError(t, server.Start())
	defer server.Stop()

	callbackURL := fmt.Sprintf("http://127.0.0.1:%d/callback?state=wrong&code=auth-code-1", server.Port())
	resp, err := http.Get(callbackURL)
	require.NoError(t, err)
	defer resp.Body.Close()

	_, err = server.WaitForCode(2 * time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestCallbackServer_ProviderError(t *testing.T) {
	server := NewCallbackServer(0, "expected-state")
	require.NoError(t, server.Start())
	defer server.Stop()

	callbackURL := fmt.Sprintf(
		"http://127.0.0.1:%d/callback?error=access_denied&error_description=User+denied+access",
		server.Port())
	resp, err := http.Get(callbackURL)
	require.NoError(t, err)
	defer resp.Body.Close()

	_, err = server.WaitForCode(2 * time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Contains(t, err.Error(), "User denied access")
}

func TestCallbackServer_MissingCode(t *testing.T) {
	server := NewCallbackServer(0, "expected-state")
	require.NoError(t, server.Start())
	defer server.Stop()

	callbackURL := fmt.Sprintf("http://127.0.0.1:%d/callback?state=expected-state", server.Port())
	resp, err := http.Get(callbackURL)
	require.NoError(t, err)
	defer resp.Body.Close()

	_, err = server.WaitForCode(2 * time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoCode)
}

func TestCallbackServer_WaitForCode_Timeout(t *testing.T) {
	server := NewCallbackServer(0, "expected-state")
	require.NoError(t, server.Start())
	defer server.Stop()

	_, err := server.WaitForCode(50 * time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCallbackTimeout)
}

func TestFindAvailablePort(t *testing.T) {
	port, err := FindAvailablePort(18080, 18180)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, port, 18080)
	assert.LessOrEqual(t, port, 18180)
}
