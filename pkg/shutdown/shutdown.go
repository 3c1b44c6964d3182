// Package shutdown coordinates graceful teardown: registered callbacks run
// concurrently under a deadline so one slow component cannot hang the exit.
package shutdown

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "shutdown")

// Handler is one teardown callback.
type Handler func(ctx context.Context)

// Manager collects teardown callbacks.
type Manager struct {
	callbacks []Handler
	mu        sync.Mutex
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown registers a callback.
func (m *Manager) OnShutdown(handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, handler)
}

// Shutdown runs every callback concurrently and blocks until all finish or
// ctx expires. ctx should carry a timeout.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	callbacks := append([]Handler(nil), m.callbacks...)
	m.mu.Unlock()

	if len(callbacks) == 0 {
		return
	}
	log.Infof("shutting down, %d callbacks", len(callbacks))

	var wg sync.WaitGroup
	wg.Add(len(callbacks))
	for _, cb := range callbacks {
		go func(handler Handler) {
			defer wg.Done()
			handler(ctx)
		}(cb)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("shutdown complete")
	case <-ctx.Done():
		log.Warn("shutdown deadline exceeded, exiting anyway")
	}
}
