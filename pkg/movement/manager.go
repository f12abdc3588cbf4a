package movement

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultQueueSize bounds the step queue.
const DefaultQueueSize = 50

// Mover applies a relative cursor motion.
type Mover interface {
	Move(dx, dy int) error
}

// Stats are the Manager's counters.
type Stats struct {
	Played  uint64 `json:"played"`
	Dropped uint64 `json:"dropped"`
	Errors  uint64 `json:"errors"`
	Pending int    `json:"pending"`
}

// Manager plays queued steps against a Mover on a single goroutine.
//
// Producers never block: Enqueue drops steps once the queue is full, so the
// tracker keeps its frame rate even when the actuator falls behind.
type Manager struct {
	mover  Mover
	queue  chan Step
	logger *zap.Logger

	// inflight counts queued steps plus the one being played
	inflight atomic.Int64

	mu      sync.Mutex
	played  uint64
	dropped uint64
	errors  uint64
}

// NewManager creates a Manager with a queue of size steps (DefaultQueueSize when <= 0).
func NewManager(mover Mover, size int, logger *zap.Logger) *Manager {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		mover:  mover,
		queue:  make(chan Step, size),
		logger: logger.Named("movement"),
	}
}

// Enqueue appends steps and returns how many were accepted.
func (m *Manager) Enqueue(steps ...Step) int {
	accepted := 0
	for _, s := range steps {
		// Counted before the send so Run never sees a step Idle does not
		m.inflight.Add(1)
		select {
		case m.queue <- s:
			accepted++
		default:
			m.inflight.Add(-1)
			m.mu.Lock()
			m.dropped += uint64(len(steps) - accepted)
			m.mu.Unlock()
			m.logger.Debug("queue full, dropping steps", zap.Int("dropped", len(steps)-accepted))
			return accepted
		}
	}
	return accepted
}

// Clear discards every pending step and returns how many were removed.
func (m *Manager) Clear() int {
	n := 0
	for {
		select {
		case <-m.queue:
			m.inflight.Add(-1)
			n++
		default:
			return n
		}
	}
}

// Pending reports the queue depth.
func (m *Manager) Pending() int {
	return len(m.queue)
}

// Idle reports whether nothing is queued or in flight.
func (m *Manager) Idle() bool {
	return m.inflight.Load() == 0
}

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Played:  m.played,
		Dropped: m.dropped,
		Errors:  m.errors,
		Pending: len(m.queue),
	}
}

// Run drains the queue until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("step queue started", zap.Int("capacity", cap(m.queue)))
	defer m.logger.Info("step queue stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-m.queue:
			m.play(s)
			err := sleep(ctx, s.Delay)
			m.inflight.Add(-1)
			if err != nil {
				return nil
			}
		}
	}
}

func (m *Manager) play(s Step) {
	if s.IsZero() {
		return
	}
	err := m.mover.Move(s.DX, s.DY)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.errors++
		if m.errors%100 == 1 {
			m.logger.Warn("move failed", zap.Error(err), zap.Uint64("errors", m.errors))
		}
		return
	}
	m.played++
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
