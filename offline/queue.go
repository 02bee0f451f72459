// Package offline buffers mutating intents recorded while disconnected and
// replays them, with a bounded retry budget, once connectivity returns.
package offline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aclio/aclio/models"
	"github.com/aclio/aclio/store"
)

// MaxRetries is the number of failed attempts after which an operation is dropped.
const MaxRetries = 3

// PassResult summarizes one ProcessQueue call.
type PassResult struct {
	Skipped   bool `json:"skipped"`
	Attempted int  `json:"attempted"`
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Dropped   int  `json:"dropped"`
	Remaining int  `json:"remaining"`
}

// Queue is the persisted, ordered operation list.
type Queue struct {
	store store.Store
	exec  Executor
	log   *zap.Logger

	mu        sync.Mutex
	ops       []models.OfflineOperation
	connected bool

	processing atomic.Bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger; the default discards.
func WithLogger(l *zap.Logger) Option {
	return func(q *Queue) { q.log = l }
}

// WithConnected sets the initial connectivity state without triggering a pass.
func WithConnected(connected bool) Option {
	return func(q *Queue) { q.connected = connected }
}

// NewQueue loads pending operations from s. A nil exec means NoopExecutor.
func NewQueue(ctx context.Context, s store.Store, exec Executor, opts ...Option) *Queue {
	q := &Queue{store: s, exec: exec, log: zap.NewNop()}
	for _, opt := range opts {
		opt(q)
	}
	if q.exec == nil {
		q.exec = NoopExecutor{Log: q.log}
	}
	if _, err := store.GetJSON(ctx, s, store.KeyOfflineQueue, &q.ops); err != nil {
		q.log.Warn("offline queue load failed, starting empty", zap.Error(err))
		q.ops = nil
	}
	return q
}

// Enqueue appends op and, when connected, immediately runs a pass.
func (q *Queue) Enqueue(ctx context.Context, op models.OfflineOperation) {
	q.mu.Lock()
	q.ops = append(q.ops, op)
	q.persistLocked(ctx)
	connected := q.connected
	pending := len(q.ops)
	q.mu.Unlock()

	q.log.Debug("offline operation queued",
		zap.String("id", op.ID.String()),
		zap.String("type", string(op.Type)),
		zap.Int("pending", pending))

	if connected {
		q.ProcessQueue(ctx)
	}
}

// ProcessQueue attempts every queued operation once, in insertion order.
// Concurrent calls, a disconnected state and an empty queue are no-ops.
func (q *Queue) ProcessQueue(ctx context.Context) PassResult {
	if !q.processing.CompareAndSwap(false, true) {
		return PassResult{Skipped: true}
	}
	defer q.processing.Store(false)

	q.mu.Lock()
	if !q.connected || len(q.ops) == 0 {
		res := PassResult{Skipped: true, Remaining: len(q.ops)}
		q.mu.Unlock()
		return res
	}
	batch := make([]models.OfflineOperation, len(q.ops))
	copy(batch, q.ops)
	q.mu.Unlock()

	var res PassResult
	removed := make(map[uuid.UUID]bool, len(batch))
	updated := make(map[uuid.UUID]models.OfflineOperation)

	for _, op := range batch {
		if ctx.Err() != nil {
			break
		}
		res.Attempted++
		err := q.exec.Execute(ctx, op)
		if err == nil {
			removed[op.ID] = true
			res.Succeeded++
			continue
		}

		op.RetryCount++
		res.Failed++
		if op.RetryCount >= MaxRetries {
			removed[op.ID] = true
			res.Dropped++
			q.log.Warn("offline operation dropped after max retries",
				zap.String("id", op.ID.String()),
				zap.String("type", string(op.Type)),
				zap.Int("retries", op.RetryCount),
				zap.Error(err))
			continue
		}
		updated[op.ID] = op
		q.log.Info("offline operation failed, will retry",
			zap.String("id", op.ID.String()),
			zap.String("type", string(op.Type)),
			zap.Int("retries", op.RetryCount),
			zap.Error(err))
	}

	q.mu.Lock()
	kept := make([]models.OfflineOperation, 0, len(q.ops))
	for _, op := range q.ops {
		if removed[op.ID] {
			continue
		}
		if u, ok := updated[op.ID]; ok {
			op = u
		}
		kept = append(kept, op)
	}
	q.ops = kept
	q.persistLocked(ctx)
	res.Remaining = len(q.ops)
	q.mu.Unlock()

	return res
}

// SetConnected records connectivity. Only a disconnected→connected
// transition starts a pass.
func (q *Queue) SetConnected(ctx context.Context, connected bool) {
	q.mu.Lock()
	wasConnected := q.connected
	q.connected = connected
	q.mu.Unlock()

	if connected && !wasConnected {
		q.log.Info("connectivity restored, processing offline queue")
		q.ProcessQueue(ctx)
	}
}

// IsConnected reports the last known connectivity.
func (q *Queue) IsConnected() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.connected
}

// PendingCount backs the pending-changes indicator.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Pending returns a copy of the queued operations in order.
func (q *Queue) Pending() []models.OfflineOperation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.OfflineOperation, len(q.ops))
	copy(out, q.ops)
	return out
}

func (q *Queue) persistLocked(ctx context.Context) {
	ops := q.ops
	if ops == nil {
		ops = []models.OfflineOperation{}
	}
	if err := store.SetJSON(ctx, q.store, store.KeyOfflineQueue, ops); err != nil {
		q.log.Warn("offline queue save failed", zap.Error(err))
	}
}
