package session

import (
	"context"
	"time"
)

type worker struct {
	context  context.Context
	interval time.Duration
	work     func()
	closed   func()
}

func (w *worker) Start() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.work()
		case <-w.context.Done():
			w.closed()
			return
		}
	}
}

func newWorker(ctx context.Context, interval time.Duration, work, closed func()) *worker {
	return &worker{context: ctx, interval: interval, work: work, closed: closed}
}

// Run starts the periodic expired-token sweep. It returns once the
// worker is scheduled; the worker stops when ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	go newWorker(ctx, sweepInterval, func() {
		m.l.Debug("session: running worker to sweep expired tokens...")
		m.Sweep()
	}, func() {
		m.l.Debug("session: worker for token sweep stopped")
	}).Start()
}
