package offline

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reachable reports whether the backend is reachable.
type Reachable func(ctx context.Context) bool

// Monitor polls a reachability check and feeds connectivity changes into a Queue.
type Monitor struct {
	queue    *Queue
	reach    Reachable
	interval time.Duration
	log      *zap.Logger
}

// NewMonitor returns a monitor; interval defaults to 30s.
func NewMonitor(q *Queue, reach Reachable, interval time.Duration, log *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{queue: q, reach: reach, interval: interval, log: log}
}

// Run checks immediately and then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	up := m.reach(ctx)
	if ctx.Err() != nil {
		return
	}
	if up != m.queue.IsConnected() {
		m.log.Info("connectivity changed", zap.Bool("connected", up))
	}
	m.queue.SetConnected(ctx, up)
}
