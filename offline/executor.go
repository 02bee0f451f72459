package offline

import (
	"context"

	"go.uber.org/zap"

	"github.com/aclio/aclio/models"
)

// Executor delivers one queued operation. Any error counts toward the retry budget.
type Executor interface {
	Execute(ctx context.Context, op models.OfflineOperation) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, op models.OfflineOperation) error

func (f ExecutorFunc) Execute(ctx context.Context, op models.OfflineOperation) error {
	return f(ctx, op)
}

// NoopExecutor acknowledges every operation without sending it anywhere.
// Local mutations are applied at enqueue time and there is no sync endpoint
// yet, so delivery is bookkeeping only.
type NoopExecutor struct {
	Log *zap.Logger
}

func (e NoopExecutor) Execute(_ context.Context, op models.OfflineOperation) error {
	if e.Log != nil {
		e.Log.Debug("offline operation acknowledged",
			zap.String("id", op.ID.String()),
			zap.String("type", string(op.Type)))
	}
	return nil
}
