package session

import (
	"context"
	"sync"
	"time"

	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

const DefaultInterval = 30 * time.Second

// StatusChecker is satisfied by *waha.Client.
type StatusChecker interface {
	CheckStatus(ctx context.Context) (waha.SessionStatus, *waha.Result)
}

// CheckerFunc adapts a function, typically one that reloads settings before
// every poll, to StatusChecker.
type CheckerFunc func(ctx context.Context) (waha.SessionStatus, *waha.Result)

func (f CheckerFunc) CheckStatus(ctx context.Context) (waha.SessionStatus, *waha.Result) {
	return f(ctx)
}

// Monitor polls the session status on a fixed interval. Stop cancels the
// timer and any poll completing afterwards is dropped. The onStatus
// callback runs with the monitor locked and must not call back into it.
type Monitor struct {
	interval time.Duration
	onStatus func(waha.SessionStatus)

	mu      sync.Mutex
	gen     uint64
	stop    chan struct{}
	last    waha.SessionStatus
	hasLast bool
}

func NewMonitor(interval time.Duration, onStatus func(waha.SessionStatus)) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{interval: interval, onStatus: onStatus}
}

// Start polls once immediately and then on every interval until Stop or
// ctx is done. Calling Start again restarts the timer.
func (m *Monitor) Start(ctx context.Context, checker StatusChecker) {
	m.mu.Lock()
	gen, stop := m.resetLocked()
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			m.poll(ctx, gen, checker)
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()
}

// Refresh runs one poll outside the timer, guarded like timer polls.
func (m *Monitor) Refresh(ctx context.Context, checker StatusChecker) (waha.SessionStatus, bool) {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()
	return m.poll(ctx, gen, checker)
}

// Last returns the most recent accepted status.
func (m *Monitor) Last() (waha.SessionStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.hasLast
}

func (m *Monitor) poll(ctx context.Context, gen uint64, checker StatusChecker) (waha.SessionStatus, bool) {
	status, _ := checker.CheckStatus(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return status, false
	}
	m.last = status
	m.hasLast = true
	if m.onStatus != nil {
		m.onStatus(status)
	}
	return status, true
}

func (m *Monitor) resetLocked() (uint64, chan struct{}) {
	if m.stop != nil {
		close(m.stop)
	}
	m.gen++
	m.stop = make(chan struct{})
	return m.gen, m.stop
}
