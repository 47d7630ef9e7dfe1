package services

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/carcrm-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
)

func TestCredentialService_SaveAndRead(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := NewCredentialService(memory.NewCredentialStore(), clock)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, "access-1", "refresh-1", 3600))

	cred, err := svc.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "access-1", cred.AccessToken)
	assert.Equal(t, "refresh-1", cred.RefreshToken)
	assert.Equal(t, clock.Now().Add(time.Hour), cred.ExpiresAt)
}

func TestCredentialService_Save_RequiresAccessToken(t *testing.T) {
	svc := NewCredentialService(memory.NewCredentialStore(), clockwork.NewFakeClock())

	err := svc.Save(context.Background(), "", "refresh-1", 3600)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCredentialService_Read_Empty(t *testing.T) {
	svc := NewCredentialService(memory.NewCredentialStore(), clockwork.NewFakeClock())

	cred, err := svc.Read(context.Background())

	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestCredentialService_Read_InsideBufferTreatedAsAbsent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := memory.NewCredentialStore()
	svc := NewCredentialService(store, clock)
	ctx := context.Background()

	// Ten minutes of lifetime; advance to within the five-minute buffer.
	require.NoError(t, svc.Save(ctx, "access-1", "refresh-1", 600))
	clock.Advance(6 * time.Minute)

	cred, err := svc.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, cred, "a token inside the expiry buffer reads as absent")

	// The stale token must also be gone from the store itself.
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCredentialService_Read_ExactBufferBoundary(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := NewCredentialService(memory.NewCredentialStore(), clock)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, "access-1", "", 600))
	// Exactly the buffer remaining: not usable.
	clock.Advance(600*time.Second - domain.ExpiryBuffer)

	cred, err := svc.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestCredentialService_Read_JustOutsideBuffer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := NewCredentialService(memory.NewCredentialStore(), clock)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, "access-1", "", 600))
	clock.Advance(600*time.Second - domain.ExpiryBuffer - time.Second)

	cred, err := svc.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "access-1", cred.AccessToken)
}

func TestCredentialService_Save_Overwrites(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := NewCredentialService(memory.NewCredentialStore(), clock)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, "access-1", "refresh-1", 3600))
	require.NoError(t, svc.Save(ctx, "access-2", "refresh-2", 7200))

	cred, err := svc.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "access-2", cred.AccessToken)
}

func TestCredentialService_Clear_Idempotent(t *testing.T) {
	svc := NewCredentialService(memory.NewCredentialStore(), clockwork.NewFakeClock())
	ctx := context.Background()

	require.NoError(t, svc.Clear(ctx))
	require.NoError(t, svc.Save(ctx, "access-1", "", 3600))
	require.NoError(t, svc.Clear(ctx))
	require.NoError(t, svc.Clear(ctx))

	cred, err := svc.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, cred)
}
