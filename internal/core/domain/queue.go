package domain

import (
	"encoding/json"
	"time"
)

// EntityType classifies what a pending write mutates. Entries for
// distinct entity types may drain independently; entries for one type
// drain strictly in creation order.
type EntityType string

const (
	// EntityCustomer is a customer-record mutation.
	EntityCustomer EntityType = "customer"
	// EntityFormTemplate is a form-template mutation.
	EntityFormTemplate EntityType = "form_template"
	// EntityExcelTemplate is an excel-template mutation.
	EntityExcelTemplate EntityType = "excel_template"
)

// WriteOp is the kind of local mutation a pending write records.
type WriteOp string

const (
	// OpCreate records a created entity.
	OpCreate WriteOp = "create"
	// OpUpdate records an updated entity.
	OpUpdate WriteOp = "update"
	// OpDelete records a deleted entity.
	OpDelete WriteOp = "delete"
)

// WriteStatus is the lifecycle state of a pending write.
type WriteStatus string

const (
	// WritePending means the entry awaits its next push attempt.
	WritePending WriteStatus = "pending"
	// WriteCompleted means the push succeeded; the entry is removable.
	WriteCompleted WriteStatus = "completed"
	// WriteFailed means retries were exhausted; surfaced to the user.
	WriteFailed WriteStatus = "failed"
)

// PendingWrite is one durable queued mutation awaiting push to the
// remote store. The local mutation it records is already applied and is
// never rolled back by queue failures.
type PendingWrite struct {
	// ID is the entry's own identifier (UUID).
	ID string `json:"id"`
	// EntityType classifies the mutated entity.
	EntityType EntityType `json:"entityType"`
	// EntityID is the mutated entity's id.
	EntityID string `json:"entityId"`
	// Op is the recorded mutation kind.
	Op WriteOp `json:"op"`
	// Payload is the entity snapshot at enqueue time. Empty for deletes.
	Payload json.RawMessage `json:"payload,omitempty"`
	// Status is the entry's lifecycle state.
	Status WriteStatus `json:"status"`
	// RetryCount is how many push attempts have failed so far.
	RetryCount int `json:"retryCount"`
	// LastError is the message of the most recent failed attempt.
	LastError string `json:"lastError,omitempty"`
	// CreatedAt orders draining within an entity type.
	CreatedAt time.Time `json:"createdAt"`
	// NextAttemptAt gates the next push attempt (backoff).
	NextAttemptAt time.Time `json:"nextAttemptAt,omitzero"`
}

// Due reports whether the entry is eligible for a push attempt.
func (w PendingWrite) Due(now time.Time) bool {
	if w.Status != WritePending {
		return false
	}
	return !now.Before(w.NextAttemptAt)
}
