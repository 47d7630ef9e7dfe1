package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
)

// queueStore implements driven.QueueStore. The autoincrement seq column
// preserves enqueue order even when entries share a creation timestamp.
type queueStore struct {
	store *Store
}

var _ driven.QueueStore = (*queueStore)(nil)

// Enqueue appends a new entry.
func (s *queueStore) Enqueue(ctx context.Context, w domain.PendingWrite) error {
	if w.ID == "" {
		return domain.ErrInvalidInput
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO pending_writes
			(id, entity_type, entity_id, op, payload, status, retry_count, last_error, created_at, next_attempt_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, w.ID, string(w.EntityType), w.EntityID, string(w.Op), nullBytes(w.Payload),
		string(w.Status), w.RetryCount, w.LastError, w.CreatedAt.UTC(), nullTime(w.NextAttemptAt))

	if err != nil {
		return fmt.Errorf("enqueuing write: %w", err)
	}
	return nil
}

// Pending returns pending entries for one entity type in enqueue order.
func (s *queueStore) Pending(ctx context.Context, entityType domain.EntityType) ([]domain.PendingWrite, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, op, payload, status, retry_count, last_error, created_at, next_attempt_at
		FROM pending_writes
		WHERE entity_type = ? AND status = ?
		ORDER BY seq
	`, string(entityType), string(domain.WritePending))
	if err != nil {
		return nil, fmt.Errorf("querying pending writes: %w", err)
	}
	defer rows.Close()

	return scanWrites(rows)
}

// List returns all entries in enqueue order, regardless of status.
func (s *queueStore) List(ctx context.Context) ([]domain.PendingWrite, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, op, payload, status, retry_count, last_error, created_at, next_attempt_at
		FROM pending_writes
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying writes: %w", err)
	}
	defer rows.Close()

	return scanWrites(rows)
}

// Update persists a changed entry.
func (s *queueStore) Update(ctx context.Context, w domain.PendingWrite) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE pending_writes
		SET status = ?, retry_count = ?, last_error = ?, next_attempt_at = ?
		WHERE id = ?
	`, string(w.Status), w.RetryCount, w.LastError, nullTime(w.NextAttemptAt), w.ID)
	if err != nil {
		return fmt.Errorf("updating write: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Remove deletes an entry by id.
func (s *queueStore) Remove(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM pending_writes WHERE id = ?", id); err != nil {
		return fmt.Errorf("removing write: %w", err)
	}
	return nil
}

// RemoveCompleted deletes all completed entries.
func (s *queueStore) RemoveCompleted(ctx context.Context) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM pending_writes WHERE status = ?", string(domain.WriteCompleted))
	if err != nil {
		return fmt.Errorf("removing completed writes: %w", err)
	}
	return nil
}

func scanWrites(rows *sql.Rows) ([]domain.PendingWrite, error) {
	writes := []domain.PendingWrite{}
	for rows.Next() {
		var w domain.PendingWrite
		var entityType, op, status string
		var payload []byte
		var nextAttempt sql.NullTime
		if err := rows.Scan(&w.ID, &entityType, &w.EntityID, &op, &payload,
			&status, &w.RetryCount, &w.LastError, &w.CreatedAt, &nextAttempt); err != nil {
			return nil, fmt.Errorf("scanning write: %w", err)
		}
		w.EntityType = domain.EntityType(entityType)
		w.Op = domain.WriteOp(op)
		w.Status = domain.WriteStatus(status)
		w.Payload = payload
		if nextAttempt.Valid {
			w.NextAttemptAt = nextAttempt.Time
		}
		writes = append(writes, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating writes: %w", err)
	}

	return writes, nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
