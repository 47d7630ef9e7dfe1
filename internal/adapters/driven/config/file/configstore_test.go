package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set(driven.ConfigKeyClientID, "client-123"))
	require.NoError(t, store.Set("sync.interval_minutes", 45))
	require.NoError(t, store.Set("sync.verbose", true))

	assert.Equal(t, "client-123", store.GetString(driven.ConfigKeyClientID))
	assert.Equal(t, 45, store.GetInt("sync.interval_minutes"))
	assert.True(t, store.GetBool("sync.verbose"))

	_, ok := store.Get("missing.key")
	assert.False(t, ok)
	assert.Empty(t, store.GetString("missing.key"))
	assert.Zero(t, store.GetInt("missing.key"))
	assert.False(t, store.GetBool("missing.key"))
}

func TestConfigStore_TypeMismatchReturnsZeroValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("key", "not-a-number"))

	assert.Zero(t, store.GetInt("key"))
	assert.False(t, store.GetBool("key"))
}

func TestConfigStore_PersistsAcrossInstances(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set(driven.ConfigKeyRootFolder, "CarCRM"))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "CarCRM", reopened.GetString(driven.ConfigKeyRootFolder))
}

func TestConfigStore_LoadFlattensNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	content := []byte("[google]\nclient_id = \"nested-123\"\n\n[consultant]\nid = \"c-9\"\n")
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), content, 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "nested-123", store.GetString(driven.ConfigKeyClientID))
	assert.Equal(t, "c-9", store.GetString(driven.ConfigKeyConsultantID))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set(driven.ConfigKeyClientSecret, "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not = valid = toml"), 0600))

	_, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
}
