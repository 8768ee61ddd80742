package stream

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/mosaic/internal/media"
)

// Manager owns the ordered collection of stream workers. Worker order is
// fixed at construction and defines tile order in the composed grid.
type Manager struct {
	log     *slog.Logger
	workers []*Worker

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewManager creates a manager over the given workers. If log is nil,
// slog.Default() is used.
func NewManager(workers []*Worker, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:     log.With("component", "stream-manager"),
		workers: workers,
	}
}

// Len returns the number of workers.
func (m *Manager) Len() int {
	return len(m.workers)
}

// Workers returns the ordered worker slice.
func (m *Manager) Workers() []*Worker {
	return m.workers
}

// Worker returns the worker at index i.
func (m *Manager) Worker(i int) *Worker {
	return m.workers[i]
}

// StartAll launches every worker goroutine under a shared group derived
// from ctx. Workers given to a manager must not be started individually
// via Worker.Start: such a worker runs outside the group and StopAll
// would never join it, so StartAll refuses it loudly instead.
func (m *Manager) StartAll(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.group, ctx = errgroup.WithContext(ctx)

	started := 0
	for _, w := range m.workers {
		w := w
		if !w.started.CompareAndSwap(false, true) {
			m.log.Error("worker already started outside the manager, not managed",
				"stream", w.id.Label)
			continue
		}
		started++
		m.group.Go(func() error {
			return w.run(ctx)
		})
	}
	m.log.Info("workers started", "count", started)
}

// StopAll cancels every worker and blocks until all worker goroutines
// have exited.
func (m *Manager) StopAll() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	_ = m.group.Wait()
	m.log.Info("workers stopped")
}

// Frames returns the latest frame per worker in tile order. Entries are
// nil for workers whose cache has never been populated.
func (m *Manager) Frames() []*media.Frame {
	frames := make([]*media.Frame, len(m.workers))
	for i, w := range m.workers {
		if f, ok := w.Frame(); ok {
			frames[i] = f
		}
	}
	return frames
}
