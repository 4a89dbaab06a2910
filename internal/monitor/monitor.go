package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fragmede/keyhole/internal/auth"
)

// Monitor re-validates a logged-in session in the background. When the
// server has dropped the session, FetchUser clears the store and its
// observers see the logout.
type Monitor struct {
	store    *auth.Store
	interval time.Duration
	log      *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// New creates a new background monitor. An interval of zero or less
// makes Start a no-op.
func New(store *auth.Store, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Monitor{
		store:    store,
		interval: interval,
		log:      logger,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the background polling loop.
func (m *Monitor) Start() {
	if m.interval <= 0 {
		close(m.done)
		return
	}
	go m.loop()
}

// Stop halts the background polling and waits for an in-flight check.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	<-m.done
}

func (m *Monitor) loop() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *Monitor) poll() {
	if !m.store.IsLoggedIn() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-m.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	res := m.store.FetchUser(ctx)
	switch res.Status {
	case auth.FetchNotAuthenticated:
		m.log.Info("session ended by server")
	case auth.FetchFailed:
		m.log.Warn("session check failed", "error", res.Err)
	}
}
