package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/carcrm-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
)

// recordingQueue implements driving.WriteQueue, capturing Record calls.
type recordingQueue struct {
	recorded []domain.PendingWrite
	retried  []string
	drained  int
	entries  []domain.PendingWrite
	err      error
}

func (q *recordingQueue) Record(_ context.Context, entityType domain.EntityType, op domain.WriteOp, entityID string, payload any) error {
	if q.err != nil {
		return q.err
	}
	var raw json.RawMessage
	if payload != nil {
		raw, _ = json.Marshal(payload)
	}
	q.recorded = append(q.recorded, domain.PendingWrite{
		EntityType: entityType,
		EntityID:   entityID,
		Op:         op,
		Payload:    raw,
	})
	return nil
}

func (q *recordingQueue) Drain(_ context.Context) error {
	q.drained++
	return q.err
}

func (q *recordingQueue) Entries(_ context.Context) ([]domain.PendingWrite, error) {
	return q.entries, q.err
}

func (q *recordingQueue) Retry(_ context.Context, id string) error {
	q.retried = append(q.retried, id)
	return q.err
}

func (q *recordingQueue) Start(_ context.Context) {}
func (q *recordingQueue) Stop()                   {}

func setupCustomerTest(queue *recordingQueue) func() {
	oldCustomers := customerStore
	oldQueue := writeQueue
	customerStore = memory.NewCustomerStore()
	writeQueue = queue
	return func() {
		customerStore = oldCustomers
		writeQueue = oldQueue
		// Flag values persist across executions; reset them so later
		// tests see a clean slate.
		customerName = ""
		customerPhone = ""
		customerEmail = ""
		customerNRIC = ""
		customerDOB = ""
		customerOccupation = ""
		customerAddress = ""
		customerAgreement = ""
		customerNotes = ""
		customerDealClosed = false
	}
}

func TestCustomerAdd_SavesAndQueues(t *testing.T) {
	queue := &recordingQueue{}
	cleanup := setupCustomerTest(queue)
	defer cleanup()

	out, err := executeCommand("customer", "add", "--name", "Tan Ah Kow", "--phone", "91234567")

	require.NoError(t, err)
	assert.Contains(t, out, "Customer created:")

	customers, err := customerStore.List(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "Tan Ah Kow", customers[0].Name)
	assert.Equal(t, "91234567", customers[0].Phone)
	assert.NotEmpty(t, customers[0].ID)

	require.Len(t, queue.recorded, 1)
	assert.Equal(t, domain.EntityCustomer, queue.recorded[0].EntityType)
	assert.Equal(t, domain.OpCreate, queue.recorded[0].Op)
	assert.Equal(t, customers[0].ID, queue.recorded[0].EntityID)
}

func TestCustomerAdd_RequiresName(t *testing.T) {
	cleanup := setupCustomerTest(&recordingQueue{})
	defer cleanup()

	_, err := executeCommand("customer", "add")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "--name is required")
}

func TestCustomerAdd_QueueFailureDoesNotFailCommand(t *testing.T) {
	queue := &recordingQueue{err: assert.AnError}
	cleanup := setupCustomerTest(queue)
	defer cleanup()

	out, err := executeCommand("customer", "add", "--name", "Lim")

	require.NoError(t, err)
	assert.Contains(t, out, "saved locally but not queued")

	customers, err := customerStore.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, customers, 1)
}

func TestCustomerSet_UpdatesOnlyChangedFlags(t *testing.T) {
	queue := &recordingQueue{}
	cleanup := setupCustomerTest(queue)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, customerStore.Save(ctx, domain.Customer{
		ID:    "c-1",
		Name:  "Tan Ah Kow",
		Phone: "91234567",
	}))

	_, err := executeCommand("customer", "set", "c-1", "--email", "tan@example.com")

	require.NoError(t, err)

	got, err := customerStore.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Tan Ah Kow", got.Name)
	assert.Equal(t, "91234567", got.Phone)
	assert.Equal(t, "tan@example.com", got.Email)

	require.Len(t, queue.recorded, 1)
	assert.Equal(t, domain.OpUpdate, queue.recorded[0].Op)
}

func TestCustomerSet_UnknownID(t *testing.T) {
	cleanup := setupCustomerTest(&recordingQueue{})
	defer cleanup()

	_, err := executeCommand("customer", "set", "nope", "--email", "x@example.com")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "customer not found")
}

func TestCustomerRemove_DeletesAndQueues(t *testing.T) {
	queue := &recordingQueue{}
	cleanup := setupCustomerTest(queue)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, customerStore.Save(ctx, domain.Customer{ID: "c-1", Name: "Tan"}))

	out, err := executeCommand("customer", "remove", "c-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Removed customer: Tan")

	_, err = customerStore.Get(ctx, "c-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.Len(t, queue.recorded, 1)
	assert.Equal(t, domain.OpDelete, queue.recorded[0].Op)
	assert.Empty(t, queue.recorded[0].Payload)
}

func TestCustomerList_Empty(t *testing.T) {
	cleanup := setupCustomerTest(&recordingQueue{})
	defer cleanup()

	out, err := executeCommand("customer", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No customer records.")
}

func TestCustomerShow_PrintsDetails(t *testing.T) {
	cleanup := setupCustomerTest(&recordingQueue{})
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, customerStore.Save(ctx, domain.Customer{
		ID:        "c-1",
		Name:      "Tan Ah Kow",
		NRIC:      "S1234567A",
		Checklist: map[string]bool{"test drive": true},
	}))

	out, err := executeCommand("customer", "show", "c-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Name: Tan Ah Kow")
	assert.Contains(t, out, "NRIC: S1234567A")
	assert.Contains(t, out, "[x] test drive")
}

func TestCustomerStoreNotConfigured(t *testing.T) {
	oldCustomers := customerStore
	customerStore = nil
	defer func() { customerStore = oldCustomers }()

	_, err := executeCommand("customer", "list")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "customer store not configured")
}
