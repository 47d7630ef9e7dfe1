package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driving"
	"github.com/custodia-labs/carcrm-cli/internal/logger"
)

// Ensure Engine implements the interface.
var _ driving.SyncEngine = (*Engine)(nil)

// EngineConfig names the remote folder/file layout. Zero values fall
// back to the defaults below.
type EngineConfig struct {
	RootFolderName   string
	FormsFolderName  string
	ExcelFolderName  string
	CustomerFileName string
	FormsFileName    string
	ExcelFileName    string
}

func (c *EngineConfig) applyDefaults() {
	if c.RootFolderName == "" {
		c.RootFolderName = "CarCRM"
	}
	if c.FormsFolderName == "" {
		c.FormsFolderName = "Forms"
	}
	if c.ExcelFolderName == "" {
		c.ExcelFolderName = "Excel Templates"
	}
	if c.CustomerFileName == "" {
		c.CustomerFileName = "customers.json"
	}
	if c.FormsFileName == "" {
		c.FormsFileName = "form_templates.json"
	}
	if c.ExcelFileName == "" {
		c.ExcelFileName = "excel_templates.json"
	}
}

type syncListener struct {
	id int
	fn func(domain.SyncEvent)
}

// Engine reconciles the local collections with the remote data files.
// A single in-flight flag serialises all operations: no two remote
// read-modify-write sequences on a data file may interleave.
type Engine struct {
	cfg      EngineConfig
	resolver *Resolver
	remote   driven.RemoteStorageClient
	clock    clockwork.Clock

	mu           sync.Mutex
	inFlight     bool
	status       domain.SyncStatus
	listeners    []syncListener
	nextListener int
}

// NewEngine creates a sync engine.
func NewEngine(cfg EngineConfig, resolver *Resolver, remote driven.RemoteStorageClient, clock clockwork.Clock) *Engine {
	cfg.applyDefaults()
	return &Engine{
		cfg:      cfg,
		resolver: resolver,
		remote:   remote,
		clock:    clock,
		status:   domain.SyncStatus{State: domain.SyncIdle},
	}
}

// Status returns a copy of the transient sync status.
func (e *Engine) Status() domain.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// OnSyncChange subscribes to status transitions.
func (e *Engine) OnSyncChange(fn func(domain.SyncEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextListener
	e.nextListener++
	e.listeners = append(e.listeners, syncListener{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// begin acquires the in-flight guard and publishes the transition.
// It fails with domain.ErrSyncInProgress when another operation has not
// settled; in that case no remote call is made.
func (e *Engine) begin(state domain.SyncState, message string) error {
	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		logger.Debug("Sync already in flight, ignoring %s request", state)
		return domain.ErrSyncInProgress
	}
	e.inFlight = true
	e.status.State = state
	e.status.InSync = false
	e.status.LastError = ""
	e.mu.Unlock()

	e.emit(state, message)
	return nil
}

// settle releases the guard and publishes the terminal transition.
func (e *Engine) settle(err error) {
	e.mu.Lock()
	e.inFlight = false
	if err != nil {
		e.status.State = domain.SyncError
		e.status.InSync = false
		e.status.LastError = err.Error()
	} else {
		e.status.State = domain.SyncIdle
		e.status.InSync = true
		e.status.LastSyncTime = e.clock.Now()
		e.status.LastError = ""
	}
	e.mu.Unlock()

	if err != nil {
		e.emit(domain.SyncError, err.Error())
	} else {
		e.emit(domain.SyncIdle, "")
	}
}

// emit delivers a status transition to all subscribers, stamping the
// current last-sync time.
func (e *Engine) emit(state domain.SyncState, message string) {
	ev := domain.SyncEvent{Status: state, Message: message}
	e.mu.Lock()
	ev.LastSyncTime = e.status.LastSyncTime
	snapshot := make([]syncListener, len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.Unlock()

	for _, l := range snapshot {
		l.fn(ev)
	}
}

// Upload overwrites the remote customer file with the full collection.
func (e *Engine) Upload(ctx context.Context, records []domain.Customer) error {
	if err := e.begin(domain.SyncUploading, "uploading customer records"); err != nil {
		return err
	}
	err := e.uploadCustomers(ctx, records)
	e.settle(err)
	return err
}

// Download returns the remote customer collection.
func (e *Engine) Download(ctx context.Context) ([]domain.Customer, error) {
	if err := e.begin(domain.SyncDownloading, "downloading customer records"); err != nil {
		return nil, err
	}
	records, err := e.downloadCustomers(ctx)
	e.settle(err)
	return records, err
}

// Sync reconciles the customer collection per the direction.
func (e *Engine) Sync(ctx context.Context, local []domain.Customer, direction domain.SyncDirection) ([]domain.Customer, error) {
	if direction == "" {
		direction = domain.SyncMerge
	}

	state := domain.SyncMerging
	switch direction {
	case domain.SyncUpload:
		state = domain.SyncUploading
	case domain.SyncDownload:
		state = domain.SyncDownloading
	}

	if err := e.begin(state, fmt.Sprintf("sync (%s)", direction)); err != nil {
		return nil, err
	}

	result, err := e.syncCustomers(ctx, local, direction)
	e.settle(err)
	return result, err
}

func (e *Engine) syncCustomers(ctx context.Context, local []domain.Customer, direction domain.SyncDirection) ([]domain.Customer, error) {
	switch direction {
	case domain.SyncUpload:
		if err := e.uploadCustomers(ctx, local); err != nil {
			return nil, err
		}
		return local, nil

	case domain.SyncDownload:
		return e.downloadCustomers(ctx)

	case domain.SyncMerge:
		remote, err := e.downloadCustomers(ctx)
		if err != nil {
			return nil, err
		}

		// Remote empty, local populated: seed the remote store.
		if len(remote) == 0 && len(local) > 0 {
			if err := e.uploadCustomers(ctx, local); err != nil {
				return nil, err
			}
			return local, nil
		}

		// Local empty: adopt remote verbatim (also covers both-empty).
		if len(local) == 0 {
			return remote, nil
		}

		merged, appended := domain.MergeByID(remote, local)
		if appended {
			if err := e.uploadCustomers(ctx, merged); err != nil {
				return nil, err
			}
		}
		return merged, nil

	default:
		return nil, fmt.Errorf("%w: unknown sync direction %q", domain.ErrInvalidInput, direction)
	}
}

// uploadCustomers resolves the data file and overwrites its content.
// A not-found on a memoized id self-heals: the cache entry is dropped
// and the file re-resolved once.
func (e *Engine) uploadCustomers(ctx context.Context, records []domain.Customer) error {
	if records == nil {
		records = []domain.Customer{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("serialize customers: %w", err)
	}
	return e.writeDataFile(ctx, e.customerFileLocator(), payload)
}

// downloadCustomers reads and deserializes the remote customer file.
// A missing file means "no data yet", never an error.
func (e *Engine) downloadCustomers(ctx context.Context) ([]domain.Customer, error) {
	data, err := e.readDataFile(ctx, e.customerFileLocator())
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []domain.Customer{}, nil
	}

	var records []domain.Customer
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse customer file: %w", err)
	}
	if records == nil {
		records = []domain.Customer{}
	}
	return records, nil
}

// fileLocator names one remote data file and where it lives.
type fileLocator struct {
	folderName     string
	folderParent   string // cache key of the parent folder; "" means root
	folderCacheKey string
	fileName       string
	fileCacheKey   string
	kind           DataFileKind
}

func (e *Engine) customerFileLocator() fileLocator {
	return fileLocator{
		folderName:     e.cfg.RootFolderName,
		folderCacheKey: driven.CacheKeyRootFolder,
		fileName:       e.cfg.CustomerFileName,
		fileCacheKey:   driven.CacheKeyCustomerFile,
		kind:           DataFileList,
	}
}

func (e *Engine) formsFileLocator() fileLocator {
	return fileLocator{
		folderName:     e.cfg.FormsFolderName,
		folderParent:   driven.CacheKeyRootFolder,
		folderCacheKey: driven.CacheKeyFormsFolder,
		fileName:       e.cfg.FormsFileName,
		fileCacheKey:   driven.CacheKeyFormsFile,
		kind:           DataFileMap,
	}
}

func (e *Engine) excelFileLocator() fileLocator {
	return fileLocator{
		folderName:     e.cfg.ExcelFolderName,
		folderParent:   driven.CacheKeyRootFolder,
		folderCacheKey: driven.CacheKeyExcelFolder,
		fileName:       e.cfg.ExcelFileName,
		fileCacheKey:   driven.CacheKeyExcelFile,
		kind:           DataFileMap,
	}
}

// resolveDataFile walks the locator down to a file id.
func (e *Engine) resolveDataFile(ctx context.Context, loc fileLocator) (string, error) {
	parentID := ""
	if loc.folderParent != "" {
		rootID, err := e.resolver.FindOrCreateFolder(ctx, e.cfg.RootFolderName, "", loc.folderParent)
		if err != nil {
			return "", err
		}
		parentID = rootID
	}

	folderID, err := e.resolver.FindOrCreateFolder(ctx, loc.folderName, parentID, loc.folderCacheKey)
	if err != nil {
		return "", err
	}

	return e.resolver.FindOrCreateDataFile(ctx, loc.fileName, folderID, loc.fileCacheKey, loc.kind)
}

// writeDataFile overwrites the located file, re-resolving once when a
// memoized id turns out to be stale.
func (e *Engine) writeDataFile(ctx context.Context, loc fileLocator, payload []byte) error {
	fileID, err := e.resolveDataFile(ctx, loc)
	if err != nil {
		return err
	}

	err = e.remote.UpdateFile(ctx, fileID, payload)
	if errors.Is(err, domain.ErrRemoteNotFound) {
		_ = e.resolver.Invalidate(ctx, loc.fileCacheKey)
		fileID, err = e.resolveDataFile(ctx, loc)
		if err != nil {
			return err
		}
		err = e.remote.UpdateFile(ctx, fileID, payload)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", loc.fileName, err)
	}
	return nil
}

// readDataFile reads the located file. A not-found returns nil content
// (no data yet) after dropping the stale cache entry.
func (e *Engine) readDataFile(ctx context.Context, loc fileLocator) ([]byte, error) {
	fileID, err := e.resolveDataFile(ctx, loc)
	if err != nil {
		return nil, err
	}

	data, err := e.remote.ReadFile(ctx, fileID)
	if errors.Is(err, domain.ErrRemoteNotFound) {
		_ = e.resolver.Invalidate(ctx, loc.fileCacheKey)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc.fileName, err)
	}
	return data, nil
}

// SyncForms merges the local form-template collection with the remote
// metadata file under the remote-authoritative policy.
func (e *Engine) SyncForms(ctx context.Context, local []domain.FormTemplate) ([]domain.FormTemplate, error) {
	if err := e.begin(domain.SyncMerging, "sync form templates"); err != nil {
		return nil, err
	}
	result, err := syncTemplateFile(ctx, e, e.formsFileLocator(), local)
	e.settle(err)
	return result, err
}

// SyncExcel merges the local excel-template collection with the remote
// metadata file.
func (e *Engine) SyncExcel(ctx context.Context, local []domain.ExcelTemplate) ([]domain.ExcelTemplate, error) {
	if err := e.begin(domain.SyncMerging, "sync excel templates"); err != nil {
		return nil, err
	}
	result, err := syncTemplateFile(ctx, e, e.excelFileLocator(), local)
	e.settle(err)
	return result, err
}

// syncTemplateFile merges one template collection against its remote
// metadata file, which is a JSON object keyed by template id.
func syncTemplateFile[T domain.Record](ctx context.Context, e *Engine, loc fileLocator, local []T) ([]T, error) {
	data, err := e.readDataFile(ctx, loc)
	if err != nil {
		return nil, err
	}

	remoteMap := map[string]T{}
	if data != nil {
		if err := json.Unmarshal(data, &remoteMap); err != nil {
			return nil, fmt.Errorf("parse %s: %w", loc.fileName, err)
		}
	}

	// Deterministic remote-first order for the merge.
	remoteIDs := make([]string, 0, len(remoteMap))
	for id := range remoteMap {
		remoteIDs = append(remoteIDs, id)
	}
	sort.Strings(remoteIDs)
	remote := make([]T, 0, len(remoteMap))
	for _, id := range remoteIDs {
		remote = append(remote, remoteMap[id])
	}

	if len(remote) == 0 && len(local) > 0 {
		if err := writeTemplateFile(ctx, e, loc, local); err != nil {
			return nil, err
		}
		return local, nil
	}
	if len(local) == 0 {
		return remote, nil
	}

	merged, appended := domain.MergeByID(remote, local)
	if appended {
		if err := writeTemplateFile(ctx, e, loc, merged); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

func writeTemplateFile[T domain.Record](ctx context.Context, e *Engine, loc fileLocator, templates []T) error {
	out := make(map[string]T, len(templates))
	for _, t := range templates {
		out[t.RecordID()] = t
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", loc.fileName, err)
	}
	return e.writeDataFile(ctx, loc, payload)
}
