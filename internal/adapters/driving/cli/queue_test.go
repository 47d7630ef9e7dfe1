package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
)

func setupQueueTest(queue *recordingQueue) func() {
	oldQueue := writeQueue
	if queue == nil {
		writeQueue = nil
	} else {
		writeQueue = queue
	}
	return func() {
		writeQueue = oldQueue
	}
}

func TestQueueCmd_Use(t *testing.T) {
	assert.Equal(t, "queue", queueCmd.Use)
}

func TestQueueList_Empty(t *testing.T) {
	cleanup := setupQueueTest(&recordingQueue{})
	defer cleanup()

	out, err := executeCommand("queue", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "Queue is empty.")
}

func TestQueueList_PrintsEntries(t *testing.T) {
	queue := &recordingQueue{entries: []domain.PendingWrite{
		{
			ID:         "w-1",
			EntityType: domain.EntityCustomer,
			EntityID:   "c-1",
			Op:         domain.OpCreate,
			Status:     domain.WritePending,
		},
		{
			ID:            "w-2",
			EntityType:    domain.EntityCustomer,
			EntityID:      "c-2",
			Op:            domain.OpUpdate,
			Status:        domain.WriteFailed,
			RetryCount:    5,
			LastError:     "remote unreachable",
			NextAttemptAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}}
	cleanup := setupQueueTest(queue)
	defer cleanup()

	out, err := executeCommand("queue", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "Queued writes (2)")
	assert.Contains(t, out, "customer create c-1")
	assert.Contains(t, out, "Status: failed")
	assert.Contains(t, out, "Retries: 5")
	assert.Contains(t, out, "Last error: remote unreachable")
}

func TestQueueDrain_Drains(t *testing.T) {
	queue := &recordingQueue{}
	cleanup := setupQueueTest(queue)
	defer cleanup()

	out, err := executeCommand("queue", "drain")

	require.NoError(t, err)
	assert.Contains(t, out, "Drain complete.")
	assert.Equal(t, 1, queue.drained)
}

func TestQueueRetry_ReArms(t *testing.T) {
	queue := &recordingQueue{}
	cleanup := setupQueueTest(queue)
	defer cleanup()

	out, err := executeCommand("queue", "retry", "w-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Entry re-armed: w-1")
	assert.Equal(t, []string{"w-1"}, queue.retried)
}

func TestQueueRetry_Error(t *testing.T) {
	queue := &recordingQueue{err: domain.ErrNotFound}
	cleanup := setupQueueTest(queue)
	defer cleanup()

	_, err := executeCommand("queue", "retry", "w-404")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "retry failed")
}

func TestQueueNotConfigured(t *testing.T) {
	cleanup := setupQueueTest(nil)
	defer cleanup()

	_, err := executeCommand("queue", "list")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "write queue not configured")
}
