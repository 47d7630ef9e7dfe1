package domain

import "time"

// SyncDirection selects how a sync reconciles local and remote data.
type SyncDirection string

const (
	// SyncUpload pushes the local collection remotely verbatim.
	SyncUpload SyncDirection = "upload"
	// SyncDownload adopts the remote collection verbatim.
	SyncDownload SyncDirection = "download"
	// SyncMerge treats the remote collection as the authoritative base and
	// appends local-only records. Default.
	SyncMerge SyncDirection = "merge"
)

// SyncState is the engine's coarse lifecycle state.
type SyncState string

const (
	// SyncIdle means no sync is in flight.
	SyncIdle SyncState = "idle"
	// SyncUploading means a remote write is in flight.
	SyncUploading SyncState = "uploading"
	// SyncDownloading means a remote read is in flight.
	SyncDownloading SyncState = "downloading"
	// SyncMerging means a read-merge-write cycle is in flight.
	SyncMerging SyncState = "merging"
	// SyncError means the last sync failed.
	SyncError SyncState = "error"
)

// SyncStatus is the transient, never-persisted view of the sync engine.
// Created empty at process start, mutated only by the engine, read by
// observers.
type SyncStatus struct {
	// InSync is true when the last operation completed successfully and
	// nothing is currently in flight.
	InSync bool `json:"inSync"`
	// State is the current engine state.
	State SyncState `json:"state"`
	// LastSyncTime is when the last successful sync settled. Zero if never.
	LastSyncTime time.Time `json:"lastSyncTime,omitzero"`
	// LastError is the message of the most recent failure, if any.
	LastError string `json:"lastError,omitempty"`
}

// SyncEvent is delivered to sync observers on every status transition.
type SyncEvent struct {
	Status       SyncState `json:"status"`
	Message      string    `json:"message,omitempty"`
	LastSyncTime time.Time `json:"lastSyncTime,omitzero"`
}
