// Package session keeps one lifecycle controller per visitor and evicts idle ones.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jnst/lifetime-analyzer/internal/lifecycle"
	"github.com/jnst/lifetime-analyzer/internal/model"
)

// ErrNotFound is returned for unknown or evicted session IDs.
var ErrNotFound = errors.New("session not found")

// Factory builds the controller for a new session.
type Factory func(id string) *lifecycle.Controller

type entry struct {
	controller *lifecycle.Controller
	lastSeen   time.Time
}

// Manager is a concurrency-safe registry of sessions.
type Manager struct {
	factory Factory
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewManager creates a registry. A zero ttl disables eviction.
func NewManager(factory Factory, ttl time.Duration) *Manager {
	return &Manager{
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Create registers a fresh idle session.
func (m *Manager) Create() (string, *lifecycle.Controller) {
	id := uuid.NewString()
	c := m.factory(id)

	m.mu.Lock()
	m.sessions[id] = &entry{controller: c, lastSeen: m.now()}
	m.mu.Unlock()

	slog.Debug("session created", slog.String("session_id", id))

	return id, c
}

// Get looks up a session and marks it as recently used.
func (m *Manager) Get(id string) (*lifecycle.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	e.lastSeen = m.now()

	return e.controller, nil
}

// Touch marks a session as recently used. Unknown IDs are ignored.
func (m *Manager) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[id]; ok {
		e.lastSeen = m.now()
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

// Sweep closes and removes sessions unused for longer than the TTL.
// Sessions with a generation in flight or an open event stream are kept.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}

	cutoff := m.now().Add(-m.ttl)

	var expired []*lifecycle.Controller

	m.mu.Lock()
	for id, e := range m.sessions {
		if e.lastSeen.After(cutoff) {
			continue
		}

		if e.controller.State().Phase == model.PhaseLoading || e.controller.Subscribers() > 0 {
			continue
		}

		expired = append(expired, e.controller)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}

	if len(expired) > 0 {
		slog.Info("evicted idle sessions", slog.Int("count", len(expired)))
	}

	return len(expired)
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close shuts down every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range sessions {
		e.controller.Close()
	}
}
