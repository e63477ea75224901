// Package cache holds short-lived derived views, such as dashboards, keyed by
// user and period.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dompet/internal/log"
)

// Cache stores values under keys built with Key.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// DeleteGroup drops every key of group and returns how many went.
	DeleteGroup(group string) int
	Stats() Stats
}

// Cleaner is a cache that can drop its expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps expired entries out of named caches on an interval.
type Manager struct {
	mu     sync.Mutex
	caches map[string]Cleaner
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager() *Manager {
	return &Manager{caches: make(map[string]Cleaner)}
}

// Register adds c under name, replacing any cache already registered there.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	m.caches[name] = c
	m.mu.Unlock()
}

// StartCleanup sweeps every interval until Stop. A second call is a no-op.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel, m.done = cancel, make(chan struct{})
	go m.run(ctx, interval, m.done)
}

func (m *Manager) run(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for name, n := range m.CleanAll() {
				slog.Debug("Expired cache entries removed",
					log.FieldComponent, log.ComponentCache,
					"cache", name,
					"removed", n)
			}
		}
	}
}

// CleanAll sweeps every cache once and reports removals per cache name.
// Caches that had nothing to drop are left out.
func (m *Manager) CleanAll() map[string]int {
	m.mu.Lock()
	caches := make(map[string]Cleaner, len(m.caches))
	for name, c := range m.caches {
		caches[name] = c
	}
	m.mu.Unlock()

	removed := make(map[string]int)
	for name, c := range caches {
		if n := c.CleanExpired(); n > 0 {
			removed[name] = n
		}
	}
	return removed
}

// Stop ends the sweep loop and waits for it. Safe without StartCleanup and
// safe to repeat.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
