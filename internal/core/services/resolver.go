package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
	"github.com/custodia-labs/carcrm-cli/internal/logger"
)

// DataFileKind selects the empty payload a freshly created data file is
// initialised with.
type DataFileKind int

const (
	// DataFileList initialises with an empty JSON array (the customer
	// collection file).
	DataFileList DataFileKind = iota
	// DataFileMap initialises with an empty JSON object (template
	// metadata files).
	DataFileMap
)

const jsonMimeType = "application/json"

// Resolver maps logical names (root folder, named subfolder, named data
// file) to remote object ids, creating the object on first use and
// memoizing the id in a persisted cache. Concurrent resolutions of the
// same not-yet-existing path are collapsed through a single-flight
// group so the remote store never ends up with duplicates.
type Resolver struct {
	remote driven.RemoteStorageClient
	cache  driven.RemoteIDCache
	group  singleflight.Group
}

// NewResolver creates a resolver over the given remote client and cache.
func NewResolver(remote driven.RemoteStorageClient, cache driven.RemoteIDCache) *Resolver {
	return &Resolver{
		remote: remote,
		cache:  cache,
	}
}

// FindOrCreateFolder returns the id of the named folder under parentID
// (account root when parentID is empty), creating it when absent. The
// cacheKey is the logical name the id is memoized under; pass "" to
// skip memoization.
func (r *Resolver) FindOrCreateFolder(ctx context.Context, name, parentID, cacheKey string) (string, error) {
	if cacheKey != "" {
		if id, ok, err := r.cache.Get(ctx, cacheKey); err != nil {
			return "", fmt.Errorf("read id cache: %w", err)
		} else if ok {
			return id, nil
		}
	}

	// Single-flight keyed by logical path: two callers resolving the
	// same missing folder create it once.
	key := "folder:" + parentID + "/" + name
	v, err, _ := r.group.Do(key, func() (any, error) {
		return r.resolveFolder(ctx, name, parentID)
	})
	if err != nil {
		return "", err
	}
	id := v.(string)

	if cacheKey != "" {
		if err := r.cache.Put(ctx, cacheKey, id); err != nil {
			return "", fmt.Errorf("memoize folder id: %w", err)
		}
	}
	return id, nil
}

func (r *Resolver) resolveFolder(ctx context.Context, name, parentID string) (string, error) {
	objs, err := r.remote.ListFiles(ctx, driven.RemoteQuery{
		Name:        name,
		ParentID:    parentID,
		FoldersOnly: true,
	})
	if err != nil {
		return "", fmt.Errorf("list folders: %w", err)
	}
	if len(objs) > 0 {
		return objs[0].ID, nil
	}

	logger.Debug("Folder %q not found, creating", name)
	created, err := r.remote.CreateFolder(ctx, name, parentID)
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	return created.ID, nil
}

// FindOrCreateDataFile returns the id of the named data file within
// folderID, creating it with the kind's empty payload when absent.
func (r *Resolver) FindOrCreateDataFile(ctx context.Context, fileName, folderID, cacheKey string, kind DataFileKind) (string, error) {
	if cacheKey != "" {
		if id, ok, err := r.cache.Get(ctx, cacheKey); err != nil {
			return "", fmt.Errorf("read id cache: %w", err)
		} else if ok {
			return id, nil
		}
	}

	key := "file:" + folderID + "/" + fileName
	v, err, _ := r.group.Do(key, func() (any, error) {
		return r.resolveFile(ctx, fileName, folderID, kind)
	})
	if err != nil {
		return "", err
	}
	id := v.(string)

	if cacheKey != "" {
		if err := r.cache.Put(ctx, cacheKey, id); err != nil {
			return "", fmt.Errorf("memoize file id: %w", err)
		}
	}
	return id, nil
}

func (r *Resolver) resolveFile(ctx context.Context, fileName, folderID string, kind DataFileKind) (string, error) {
	objs, err := r.remote.ListFiles(ctx, driven.RemoteQuery{
		Name:     fileName,
		ParentID: folderID,
	})
	if err != nil {
		return "", fmt.Errorf("list files: %w", err)
	}
	if len(objs) > 0 {
		return objs[0].ID, nil
	}

	payload := []byte("[]")
	if kind == DataFileMap {
		payload = []byte("{}")
	}

	logger.Debug("Data file %q not found, creating", fileName)
	created, err := r.remote.CreateFile(ctx, fileName, folderID, payload, jsonMimeType)
	if err != nil {
		return "", fmt.Errorf("create data file %q: %w", fileName, err)
	}
	return created.ID, nil
}

// Invalidate drops a memoized id after a remote operation reported the
// object missing, forcing re-resolution on the next call.
func (r *Resolver) Invalidate(ctx context.Context, cacheKey string) error {
	logger.Debug("Invalidating cached remote id %q", cacheKey)
	if err := r.cache.Delete(ctx, cacheKey); err != nil {
		return fmt.Errorf("invalidate %q: %w", cacheKey, err)
	}
	return nil
}

// InvalidateOnNotFound clears the cache entry when err is the remote
// not-found sentinel. Returns err unchanged either way.
func (r *Resolver) InvalidateOnNotFound(ctx context.Context, cacheKey string, err error) error {
	if errors.Is(err, domain.ErrRemoteNotFound) {
		if cerr := r.Invalidate(ctx, cacheKey); cerr != nil {
			logger.Warn("Cache invalidation failed: %v", cerr)
		}
	}
	return err
}
