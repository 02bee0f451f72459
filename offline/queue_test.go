package offline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aclio/aclio/models"
	"github.com/aclio/aclio/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newOp(t *testing.T, typ models.OperationType, goalID int) models.OfflineOperation {
	t.Helper()
	op, err := models.NewOfflineOperation(typ, map[string]int{"goalId": goalID}, t0)
	require.NoError(t, err)
	return op
}

type recordingExecutor struct {
	calls []models.OfflineOperation
	fail  map[models.OperationType]bool
}

func (r *recordingExecutor) Execute(_ context.Context, op models.OfflineOperation) error {
	r.calls = append(r.calls, op)
	if r.fail[op.Type] {
		return errors.New("server unavailable")
	}
	return nil
}

func TestEnqueueWhileDisconnectedThenReconnectSucceeds(t *testing.T) {
	ctx := context.Background()
	exec := &recordingExecutor{}
	q := NewQueue(ctx, store.NewMemoryStore(), exec)

	q.Enqueue(ctx, newOp(t, models.OpCreateGoal, 1))
	assert.Equal(t, 1, q.PendingCount())
	assert.Empty(t, exec.calls, "nothing is attempted while disconnected")

	q.SetConnected(ctx, true)
	assert.Len(t, exec.calls, 1)
	assert.Zero(t, q.PendingCount())
}

func TestEnqueueWhileDisconnectedThenReconnectFails(t *testing.T) {
	ctx := context.Background()
	exec := &recordingExecutor{fail: map[models.OperationType]bool{models.OpToggleStep: true}}
	q := NewQueue(ctx, store.NewMemoryStore(), exec)

	q.Enqueue(ctx, newOp(t, models.OpToggleStep, 1))
	q.SetConnected(ctx, true)

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)
}

func TestOperationDroppedAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	exec := &recordingExecutor{fail: map[models.OperationType]bool{models.OpUpdateGoal: true}}
	q := NewQueue(ctx, store.NewMemoryStore(), exec)
	q.Enqueue(ctx, newOp(t, models.OpUpdateGoal, 1))

	for i := 1; i < MaxRetries; i++ {
		q.SetConnected(ctx, false)
		q.SetConnected(ctx, true)
		pending := q.Pending()
		require.Len(t, pending, 1)
		assert.Equal(t, i, pending[0].RetryCount)
	}

	q.SetConnected(ctx, false)
	q.SetConnected(ctx, true)
	assert.Zero(t, q.PendingCount())
	assert.Len(t, exec.calls, MaxRetries)

	for _, call := range exec.calls {
		assert.Less(t, call.RetryCount, MaxRetries)
	}
}

func TestProcessQueuePreservesOrder(t *testing.T) {
	ctx := context.Background()
	exec := &recordingExecutor{fail: map[models.OperationType]bool{models.OpToggleStep: true}}
	q := NewQueue(ctx, store.NewMemoryStore(), exec)

	ops := []models.OfflineOperation{
		newOp(t, models.OpToggleStep, 1),
		newOp(t, models.OpCreateGoal, 2),
		newOp(t, models.OpToggleStep, 3),
		newOp(t, models.OpDeleteGoal, 4),
	}
	for _, op := range ops {
		q.Enqueue(ctx, op)
	}
	q.SetConnected(ctx, true)

	require.Len(t, exec.calls, 4)
	for i, op := range ops {
		assert.Equal(t, op.ID, exec.calls[i].ID, "attempt %d out of order", i)
	}

	pending := q.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, ops[0].ID, pending[0].ID)
	assert.Equal(t, ops[2].ID, pending[1].ID)
}

func TestProcessQueueIsNotReentrant(t *testing.T) {
	ctx := context.Background()
	var q *Queue
	var nested PassResult
	exec := ExecutorFunc(func(ctx context.Context, _ models.OfflineOperation) error {
		nested = q.ProcessQueue(ctx)
		return nil
	})
	q = NewQueue(ctx, store.NewMemoryStore(), exec, WithConnected(true))
	q.mu.Lock()
	q.ops = append(q.ops, newOp(t, models.OpCreateGoal, 1))
	q.mu.Unlock()

	res := q.ProcessQueue(ctx)
	assert.True(t, nested.Skipped)
	assert.Equal(t, 1, res.Succeeded)
	assert.Zero(t, res.Remaining)
}

func TestEnqueueDuringPassIsKept(t *testing.T) {
	ctx := context.Background()
	var q *Queue
	late := newOp(t, models.OpExtendGoal, 9)
	enqueued := false
	exec := ExecutorFunc(func(ctx context.Context, _ models.OfflineOperation) error {
		if !enqueued {
			enqueued = true
			q.Enqueue(ctx, late)
		}
		return nil
	})
	q = NewQueue(ctx, store.NewMemoryStore(), exec)
	q.Enqueue(ctx, newOp(t, models.OpCreateGoal, 1))
	q.SetConnected(ctx, true)

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, late.ID, pending[0].ID)
	assert.Zero(t, pending[0].RetryCount)

	res := q.ProcessQueue(ctx)
	assert.Equal(t, 1, res.Succeeded)
	assert.Zero(t, q.PendingCount())
}

func TestEnqueueWhileConnectedProcessesImmediately(t *testing.T) {
	ctx := context.Background()
	exec := &recordingExecutor{}
	q := NewQueue(ctx, store.NewMemoryStore(), exec, WithConnected(true))

	q.Enqueue(ctx, newOp(t, models.OpDeleteGoal, 1))
	assert.Len(t, exec.calls, 1)
	assert.Zero(t, q.PendingCount())
}

func TestSetConnectedOnlyTriggersOnTransition(t *testing.T) {
	ctx := context.Background()
	exec := &recordingExecutor{fail: map[models.OperationType]bool{models.OpCreateGoal: true}}
	q := NewQueue(ctx, store.NewMemoryStore(), exec)
	q.Enqueue(ctx, newOp(t, models.OpCreateGoal, 1))

	q.SetConnected(ctx, true)
	q.SetConnected(ctx, true)
	q.SetConnected(ctx, true)
	assert.Len(t, exec.calls, 1)
	assert.Equal(t, 1, q.Pending()[0].RetryCount)
}

func TestProcessQueueSkipsWhenDisconnectedOrEmpty(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(ctx, store.NewMemoryStore(), nil)

	assert.True(t, q.ProcessQueue(ctx).Skipped, "disconnected")
	q.SetConnected(ctx, true)
	assert.True(t, q.ProcessQueue(ctx).Skipped, "empty")
}

func TestQueuePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	first := NewQueue(ctx, s, nil)
	op := newOp(t, models.OpToggleStep, 3)
	first.Enqueue(ctx, op)

	second := NewQueue(ctx, s, nil)
	pending := second.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, op.ID, pending[0].ID)
	assert.JSONEq(t, `{"goalId":3}`, string(pending[0].Payload))

	second.SetConnected(ctx, true)
	assert.Zero(t, second.PendingCount())

	third := NewQueue(ctx, s, nil)
	assert.Zero(t, third.PendingCount())
}

func TestCancelledContextStopsPass(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := ExecutorFunc(func(context.Context, models.OfflineOperation) error {
		cancel()
		return nil
	})
	q := NewQueue(context.Background(), store.NewMemoryStore(), exec)
	q.Enqueue(ctx, newOp(t, models.OpCreateGoal, 1))
	q.Enqueue(ctx, newOp(t, models.OpCreateGoal, 2))

	q.SetConnected(ctx, true)
	assert.Equal(t, 1, q.PendingCount(), "second operation stays untouched")
	assert.Zero(t, q.Pending()[0].RetryCount)
}
