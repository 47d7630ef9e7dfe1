package services

import (
	"context"
	"encoding/json"
	"fmt"
	stdsync "sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/carcrm-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
)

// --- Mock remote storage for engine/resolver testing ---

type mockObject struct {
	name     string
	parentID string
	mimeType string
	content  []byte
}

const folderMime = "application/vnd.google-apps.folder"

// mockRemote simulates the remote storage API with call counters.
type mockRemote struct {
	mu      stdsync.Mutex
	nextID  int
	objects map[string]*mockObject

	listCalls   int
	createCalls int
	readCalls   int
	updateCalls int
	aboutCalls  int

	listErr   error
	readErr   error
	updateErr error
	aboutErr  error

	// listErrAfter fails list calls once listCalls exceeds it (0 = off).
	listErrAfter int

	// readGate, when non-nil, blocks ReadFile until closed.
	readGate chan struct{}
}

func newMockRemote() *mockRemote {
	return &mockRemote{objects: make(map[string]*mockObject)}
}

func (m *mockRemote) roundTrips() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls + m.createCalls + m.readCalls + m.updateCalls
}

// seedFile plants a file and returns its id.
func (m *mockRemote) seedFile(name, parentID string, content []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("obj-%d", m.nextID)
	m.objects[id] = &mockObject{name: name, parentID: parentID, mimeType: "application/json", content: content}
	return id
}

func (m *mockRemote) seedFolder(name, parentID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("obj-%d", m.nextID)
	m.objects[id] = &mockObject{name: name, parentID: parentID, mimeType: folderMime}
	return id
}

func (m *mockRemote) fileContent(id string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[id]; ok {
		return obj.content
	}
	return nil
}

func (m *mockRemote) ListFiles(_ context.Context, q driven.RemoteQuery) ([]driven.RemoteObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	if m.listErrAfter > 0 && m.listCalls > m.listErrAfter {
		return nil, domain.ErrRemoteTransport
	}

	var out []driven.RemoteObject
	for id, obj := range m.objects {
		if obj.name != q.Name || obj.parentID != q.ParentID {
			continue
		}
		if q.FoldersOnly && obj.mimeType != folderMime {
			continue
		}
		out = append(out, driven.RemoteObject{ID: id, Name: obj.name, MimeType: obj.mimeType})
	}
	return out, nil
}

func (m *mockRemote) CreateFolder(_ context.Context, name, parentID string) (*driven.RemoteObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	m.nextID++
	id := fmt.Sprintf("obj-%d", m.nextID)
	m.objects[id] = &mockObject{name: name, parentID: parentID, mimeType: folderMime}
	return &driven.RemoteObject{ID: id, Name: name, MimeType: folderMime}, nil
}

func (m *mockRemote) CreateFile(_ context.Context, name, parentID string, content []byte, mimeType string) (*driven.RemoteObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	m.nextID++
	id := fmt.Sprintf("obj-%d", m.nextID)
	m.objects[id] = &mockObject{name: name, parentID: parentID, mimeType: mimeType, content: content}
	return &driven.RemoteObject{ID: id, Name: name, MimeType: mimeType}, nil
}

func (m *mockRemote) ReadFile(_ context.Context, fileID string) ([]byte, error) {
	if m.readGate != nil {
		<-m.readGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readCalls++
	if m.readErr != nil {
		return nil, m.readErr
	}
	obj, ok := m.objects[fileID]
	if !ok {
		return nil, domain.ErrRemoteNotFound
	}
	return obj.content, nil
}

func (m *mockRemote) UpdateFile(_ context.Context, fileID string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	obj, ok := m.objects[fileID]
	if !ok {
		return domain.ErrRemoteNotFound
	}
	obj.content = content
	return nil
}

func (m *mockRemote) About(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aboutCalls++
	return m.aboutErr
}

// newTestEngine builds an engine over a mock remote and memory cache.
func newTestEngine(t *testing.T, remote *mockRemote) (*Engine, *memory.RemoteIDCache) {
	t.Helper()
	cache := memory.NewRemoteIDCache()
	resolver := NewResolver(remote, cache)
	engine := NewEngine(EngineConfig{}, resolver, remote, clockwork.NewFakeClock())
	return engine, cache
}

// seedCustomerFile plants the standard root folder and customer file.
func seedCustomerFile(remote *mockRemote, records []domain.Customer) string {
	rootID := remote.seedFolder("CarCRM", "")
	payload, _ := json.Marshal(records)
	return remote.seedFile("customers.json", rootID, payload)
}

// --- Tests ---

func TestEngine_Sync_Merge_BothEmpty(t *testing.T) {
	remote := newMockRemote()
	seedCustomerFile(remote, []domain.Customer{})
	engine, _ := newTestEngine(t, remote)

	result, err := engine.Sync(context.Background(), nil, domain.SyncMerge)

	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Equal(t, 0, remote.updateCalls, "empty merge must not upload")
}

func TestEngine_Sync_Merge_RemoteEmptyLocalPopulated(t *testing.T) {
	remote := newMockRemote()
	fileID := seedCustomerFile(remote, []domain.Customer{})
	engine, _ := newTestEngine(t, remote)

	local := []domain.Customer{{ID: "a", Name: "Alice Tan"}}
	result, err := engine.Sync(context.Background(), local, domain.SyncMerge)

	require.NoError(t, err)
	assert.Equal(t, local, result)
	assert.Equal(t, 1, remote.updateCalls, "local seed uploads exactly once")

	var uploaded []domain.Customer
	require.NoError(t, json.Unmarshal(remote.fileContent(fileID), &uploaded))
	assert.Len(t, uploaded, 1)
	assert.Equal(t, "a", uploaded[0].ID)
}

func TestEngine_Sync_Merge_LocalEmptyRemotePopulated(t *testing.T) {
	remote := newMockRemote()
	seedCustomerFile(remote, []domain.Customer{{ID: "b", Name: "Ben Lim"}})
	engine, _ := newTestEngine(t, remote)

	result, err := engine.Sync(context.Background(), nil, domain.SyncMerge)

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "b", result[0].ID)
	assert.Equal(t, 0, remote.updateCalls, "adopting remote verbatim must not upload")
}

func TestEngine_Sync_Merge_DistinctIDs(t *testing.T) {
	remote := newMockRemote()
	fileID := seedCustomerFile(remote, []domain.Customer{{ID: "b", Name: "Ben Lim"}})
	engine, _ := newTestEngine(t, remote)

	local := []domain.Customer{{ID: "a", Name: "Alice Tan"}}
	result, err := engine.Sync(context.Background(), local, domain.SyncMerge)

	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "b", result[0].ID, "remote-first order")
	assert.Equal(t, "a", result[1].ID)
	assert.Equal(t, 1, remote.updateCalls, "exactly one upload of the combined result")

	var uploaded []domain.Customer
	require.NoError(t, json.Unmarshal(remote.fileContent(fileID), &uploaded))
	assert.Len(t, uploaded, 2)
}

func TestEngine_Sync_Merge_LocalEditDiscarded(t *testing.T) {
	remote := newMockRemote()
	seedCustomerFile(remote, []domain.Customer{{ID: "a", Name: "Remote Name"}})
	engine, _ := newTestEngine(t, remote)

	local := []domain.Customer{{ID: "a", Name: "Edited Locally"}}
	result, err := engine.Sync(context.Background(), local, domain.SyncMerge)

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Remote Name", result[0].Name, "remote is authoritative for shared ids")
	assert.Equal(t, 0, remote.updateCalls, "merged length equals remote length: no upload")
}

func TestEngine_Sync_Merge_NumericIDEquality(t *testing.T) {
	remote := newMockRemote()
	seedCustomerFile(remote, []domain.Customer{{ID: "7", Name: "Seven"}})
	engine, _ := newTestEngine(t, remote)

	local := []domain.Customer{{ID: "7.0", Name: "Seven Local"}}
	result, err := engine.Sync(context.Background(), local, domain.SyncMerge)

	require.NoError(t, err)
	assert.Len(t, result, 1, "numerically equal ids are the same record")
	assert.Equal(t, 0, remote.updateCalls)
}

func TestEngine_Sync_Upload_ReturnsLocalVerbatim(t *testing.T) {
	remote := newMockRemote()
	seedCustomerFile(remote, []domain.Customer{{ID: "b"}})
	engine, _ := newTestEngine(t, remote)

	local := []domain.Customer{{ID: "a", Name: "Alice Tan"}}
	result, err := engine.Sync(context.Background(), local, domain.SyncUpload)

	require.NoError(t, err)
	assert.Equal(t, local, result)
	assert.Equal(t, 1, remote.updateCalls)
}

func TestEngine_Sync_Download_IgnoresLocal(t *testing.T) {
	remote := newMockRemote()
	seedCustomerFile(remote, []domain.Customer{{ID: "b", Name: "Ben Lim"}})
	engine, _ := newTestEngine(t, remote)

	local := []domain.Customer{{ID: "a"}}
	result, err := engine.Sync(context.Background(), local, domain.SyncDownload)

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "b", result[0].ID)
	assert.Equal(t, 0, remote.updateCalls)
}

func TestEngine_Download_MissingFileMeansNoDataYet(t *testing.T) {
	remote := newMockRemote()
	engine, _ := newTestEngine(t, remote)

	// Nothing seeded: the resolver creates folder and file, then the
	// freshly created file holds an empty collection.
	result, err := engine.Download(context.Background())

	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestEngine_Download_StaleCachedIDSelfHeals(t *testing.T) {
	remote := newMockRemote()
	seedCustomerFile(remote, []domain.Customer{{ID: "a"}})
	engine, cache := newTestEngine(t, remote)

	// Poison the cache with an id that no longer exists remotely.
	require.NoError(t, cache.Put(context.Background(), driven.CacheKeyCustomerFile, "gone-123"))

	result, err := engine.Download(context.Background())

	require.NoError(t, err)
	assert.Empty(t, result, "a not-found download is no data yet, not an error")

	_, ok, err := cache.Get(context.Background(), driven.CacheKeyCustomerFile)
	require.NoError(t, err)
	assert.False(t, ok, "the stale cache entry must be dropped")
}

func TestEngine_Upload_Idempotent(t *testing.T) {
	remote := newMockRemote()
	fileID := seedCustomerFile(remote, nil)
	engine, _ := newTestEngine(t, remote)

	records := []domain.Customer{{ID: "a", Name: "Alice Tan"}}
	require.NoError(t, engine.Upload(context.Background(), records))
	listAfterFirst := remote.listCalls
	require.NoError(t, engine.Upload(context.Background(), records))

	assert.Equal(t, listAfterFirst, remote.listCalls, "second upload resolves from cache, zero extra list calls")
	assert.Equal(t, 2, remote.updateCalls)

	var uploaded []domain.Customer
	require.NoError(t, json.Unmarshal(remote.fileContent(fileID), &uploaded))
	assert.Len(t, uploaded, 1)
}

func TestEngine_Sync_SecondCallWhileInFlightNoOps(t *testing.T) {
	remote := newMockRemote()
	seedCustomerFile(remote, []domain.Customer{{ID: "b"}})
	remote.readGate = make(chan struct{})
	engine, _ := newTestEngine(t, remote)

	firstDone := make(chan error, 1)
	go func() {
		_, err := engine.Sync(context.Background(), nil, domain.SyncMerge)
		firstDone <- err
	}()

	// Wait until the first sync holds the guard (blocked inside ReadFile).
	require.Eventually(t, func() bool {
		return engine.Status().State == domain.SyncMerging
	}, waitFor, tick)

	before := remote.roundTrips()
	_, err := engine.Sync(context.Background(), nil, domain.SyncMerge)
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
	assert.Equal(t, before, remote.roundTrips(), "no-op call makes zero remote round-trips")

	close(remote.readGate)
	require.NoError(t, <-firstDone)
}

func TestEngine_Sync_RemoteFailureAbortsWithErrorStatus(t *testing.T) {
	remote := newMockRemote()
	remote.listErr = domain.ErrRemoteTransport
	engine, _ := newTestEngine(t, remote)

	_, err := engine.Sync(context.Background(), []domain.Customer{{ID: "a"}}, domain.SyncMerge)

	require.Error(t, err)
	status := engine.Status()
	assert.Equal(t, domain.SyncError, status.State)
	assert.False(t, status.InSync)
	assert.NotEmpty(t, status.LastError)
}

func TestEngine_OnSyncChange_NotifiesTransitions(t *testing.T) {
	remote := newMockRemote()
	seedCustomerFile(remote, []domain.Customer{})
	engine, _ := newTestEngine(t, remote)

	var events []domain.SyncEvent
	unsubscribe := engine.OnSyncChange(func(ev domain.SyncEvent) {
		events = append(events, ev)
	})
	defer unsubscribe()

	_, err := engine.Sync(context.Background(), nil, domain.SyncMerge)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, domain.SyncMerging, events[0].Status)
	assert.Equal(t, domain.SyncIdle, events[1].Status)
	assert.False(t, events[1].LastSyncTime.IsZero())
}

func TestEngine_SyncForms_MergesMetadataMap(t *testing.T) {
	remote := newMockRemote()
	rootID := remote.seedFolder("CarCRM", "")
	formsID := remote.seedFolder("Forms", rootID)
	payload, _ := json.Marshal(map[string]domain.FormTemplate{
		"tpl-remote": {ID: "tpl-remote", Name: "Remote Form"},
	})
	fileID := remote.seedFile("form_templates.json", formsID, payload)
	engine, _ := newTestEngine(t, remote)

	local := []domain.FormTemplate{{ID: "tpl-local", Name: "Local Form"}}
	result, err := engine.SyncForms(context.Background(), local)

	require.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Equal(t, 1, remote.updateCalls)

	var uploaded map[string]domain.FormTemplate
	require.NoError(t, json.Unmarshal(remote.fileContent(fileID), &uploaded))
	assert.Contains(t, uploaded, "tpl-remote")
	assert.Contains(t, uploaded, "tpl-local")
}

func TestEngine_SyncExcel_AdoptsRemoteWhenLocalEmpty(t *testing.T) {
	remote := newMockRemote()
	rootID := remote.seedFolder("CarCRM", "")
	excelID := remote.seedFolder("Excel Templates", rootID)
	payload, _ := json.Marshal(map[string]domain.ExcelTemplate{
		"xl-1": {ID: "xl-1", Name: "VSA Export"},
	})
	remote.seedFile("excel_templates.json", excelID, payload)
	engine, _ := newTestEngine(t, remote)

	result, err := engine.SyncExcel(context.Background(), nil)

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "xl-1", result[0].ID)
	assert.Equal(t, 0, remote.updateCalls)
}
