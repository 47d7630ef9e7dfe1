package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driving"
	"github.com/custodia-labs/carcrm-cli/internal/logger"
)

// Ensure Queue implements the interface.
var _ driving.WriteQueue = (*Queue)(nil)

// QueueConfig holds drain and backoff tuning. Zero values fall back to
// the defaults below.
type QueueConfig struct {
	// MaxRetries bounds push attempts before an entry is marked failed.
	MaxRetries int
	// BackoffBase is the first retry delay; each retry doubles it.
	BackoffBase time.Duration
	// BackoffMax caps the delay growth.
	BackoffMax time.Duration
	// DrainInterval is how often the background drainer wakes.
	DrainInterval time.Duration
}

func (c *QueueConfig) applyDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 5 * time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 5 * time.Minute
	}
	if c.DrainInterval <= 0 {
		c.DrainInterval = 30 * time.Second
	}
}

// Queue records applied local mutations as durable pending writes and
// drains them to the remote store when a session exists and the engine
// is idle. Draining never blocks local operations and never rolls back
// a mutation: the local store stays the immediately-consistent source
// of truth, the remote store is eventually consistent.
type Queue struct {
	cfg       QueueConfig
	store     driven.QueueStore
	customers driven.CustomerStore
	templates driven.TemplateStore
	engine    driving.SyncEngine
	auth      driving.AuthManager
	clock     clockwork.Clock

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wake    chan struct{}
	wg      sync.WaitGroup
}

// NewQueue creates a write queue.
func NewQueue(
	cfg QueueConfig,
	store driven.QueueStore,
	customers driven.CustomerStore,
	templates driven.TemplateStore,
	engine driving.SyncEngine,
	auth driving.AuthManager,
	clock clockwork.Clock,
) *Queue {
	cfg.applyDefaults()
	return &Queue{
		cfg:       cfg,
		store:     store,
		customers: customers,
		templates: templates,
		engine:    engine,
		auth:      auth,
		clock:     clock,
		wake:      make(chan struct{}, 1),
	}
}

// Record enqueues a pending write for an already-applied local mutation
// and nudges the drainer.
func (q *Queue) Record(ctx context.Context, entityType domain.EntityType, op domain.WriteOp, entityID string, payload any) error {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("serialize payload: %w", err)
		}
		raw = data
	}

	entry := domain.PendingWrite{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Op:         op,
		Payload:    raw,
		Status:     domain.WritePending,
		CreatedAt:  q.clock.Now(),
	}

	if err := q.store.Enqueue(ctx, entry); err != nil {
		return fmt.Errorf("enqueue write: %w", err)
	}

	// Nudge without blocking the caller.
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Entries returns all queue entries in creation order.
func (q *Queue) Entries(ctx context.Context) ([]domain.PendingWrite, error) {
	return q.store.List(ctx)
}

// Retry re-arms a failed entry for another round of attempts.
func (q *Queue) Retry(ctx context.Context, id string) error {
	entries, err := q.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list queue: %w", err)
	}
	for _, entry := range entries {
		if entry.ID != id {
			continue
		}
		if entry.Status != domain.WriteFailed {
			return fmt.Errorf("%w: entry %s is %s, not failed", domain.ErrInvalidInput, id, entry.Status)
		}
		entry.Status = domain.WritePending
		entry.RetryCount = 0
		entry.LastError = ""
		entry.NextAttemptAt = time.Time{}
		return q.store.Update(ctx, entry)
	}
	return domain.ErrNotFound
}

// Drain pushes due entries now, strictly in creation order within each
// entity type. Distinct entity types drain independently.
func (q *Queue) Drain(ctx context.Context) error {
	types := []domain.EntityType{domain.EntityCustomer, domain.EntityFormTemplate, domain.EntityExcelTemplate}

	var wg sync.WaitGroup
	errs := make([]error, len(types))
	for i, et := range types {
		wg.Add(1)
		go func(i int, et domain.EntityType) {
			defer wg.Done()
			errs[i] = q.drainType(ctx, et)
		}(i, et)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// drainType pushes one entity type's pending entries. The head entry
// gates the rest: entries never reorder, so a head still in backoff
// ends the pass.
func (q *Queue) drainType(ctx context.Context, et domain.EntityType) error {
	entries, err := q.store.Pending(ctx, et)
	if err != nil {
		return fmt.Errorf("load pending %s writes: %w", et, err)
	}
	if len(entries) == 0 {
		return nil
	}

	head := entries[0]
	if !head.Due(q.clock.Now()) {
		return nil
	}

	pushErr := q.push(ctx, et)
	if pushErr == nil {
		// One successful full-collection push subsumes every entry that
		// was pending for this type.
		for _, entry := range entries {
			entry.Status = domain.WriteCompleted
			entry.LastError = ""
			if err := q.store.Update(ctx, entry); err != nil {
				return fmt.Errorf("complete entry %s: %w", entry.ID, err)
			}
		}
		logger.Debug("Drained %d %s write(s)", len(entries), et)
		return nil
	}

	// A busy engine is not a push failure; try again on the next pass.
	if errors.Is(pushErr, domain.ErrSyncInProgress) {
		return nil
	}

	head.RetryCount++
	head.LastError = pushErr.Error()
	if head.RetryCount >= q.cfg.MaxRetries {
		head.Status = domain.WriteFailed
		logger.Warn("Write %s failed permanently after %d attempts: %v", head.ID, head.RetryCount, pushErr)
	} else {
		head.NextAttemptAt = q.clock.Now().Add(q.backoff(head.RetryCount))
		logger.Debug("Write %s attempt %d failed, next attempt at %s", head.ID, head.RetryCount, head.NextAttemptAt)
	}
	if err := q.store.Update(ctx, head); err != nil {
		return fmt.Errorf("record failure for entry %s: %w", head.ID, err)
	}
	return pushErr
}

// backoff returns the delay before the given retry: base doubled per
// failed attempt, capped.
func (q *Queue) backoff(retryCount int) time.Duration {
	d := q.cfg.BackoffBase
	for i := 1; i < retryCount; i++ {
		d *= 2
		if d >= q.cfg.BackoffMax {
			return q.cfg.BackoffMax
		}
	}
	if d > q.cfg.BackoffMax {
		return q.cfg.BackoffMax
	}
	return d
}

// push performs the remote operation for one entity type: the full
// local collection is pushed, which reflects every applied mutation
// including deletes (the remote file is overwritten whole).
func (q *Queue) push(ctx context.Context, et domain.EntityType) error {
	switch et {
	case domain.EntityCustomer:
		local, err := q.customers.List(ctx)
		if err != nil {
			return fmt.Errorf("load local customers: %w", err)
		}
		return q.engine.Upload(ctx, local)

	case domain.EntityFormTemplate:
		local, err := q.templates.ListForms(ctx)
		if err != nil {
			return fmt.Errorf("load local form templates: %w", err)
		}
		_, err = q.engine.SyncForms(ctx, local)
		return err

	case domain.EntityExcelTemplate:
		local, err := q.templates.ListExcel(ctx)
		if err != nil {
			return fmt.Errorf("load local excel templates: %w", err)
		}
		_, err = q.engine.SyncExcel(ctx, local)
		return err

	default:
		return fmt.Errorf("%w: unknown entity type %q", domain.ErrInvalidInput, et)
	}
}

// Start launches the background drainer. It wakes on a fixed interval
// and whenever Record nudges it, and only pushes while signed in with
// an idle engine.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.stopCh = make(chan struct{})
	stopCh := q.stopCh
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		ticker := q.clock.NewTicker(q.cfg.DrainInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.Chan():
			case <-q.wake:
			}

			if !q.auth.SignedIn() {
				continue
			}
			status := q.engine.Status()
			if status.State != domain.SyncIdle && status.State != domain.SyncError {
				continue
			}

			if err := q.Drain(ctx); err != nil {
				// Failures become entry state, never a crash of the drainer.
				logger.Debug("Queue drain: %v", err)
			}
		}
	}()
}

// Stop halts the background drainer and waits for it to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	q.mu.Unlock()

	q.wg.Wait()
}
