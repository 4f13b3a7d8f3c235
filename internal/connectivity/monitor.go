// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package connectivity reacts to online/offline transitions reported by an
// external network-status collaborator. It implements no network detection
// of its own: the host feeds Signal, and subscribers (typically the sync
// queue's drain) run once per transition to online.
package connectivity

import (
	"sync"
	"time"

	"github.com/MKhiriev/go-health-vault/internal/logger"
)

// Monitor collapses connectivity signals into at most one callback fire per
// offline→online transition. Repeat "online" signals while already online
// are ignored, and transitions inside the cooldown window after a fire are
// collapsed, so flapping links cannot trigger a storm of drains.
type Monitor struct {
	logger *logger.Logger

	mu       sync.Mutex
	online   bool
	cooldown time.Duration
	lastFire time.Time
	now      func() time.Time
	subs     map[int]func()
	nextID   int
}

// NewMonitor constructs a Monitor with the given initial state. cooldown is
// the window in which repeated transitions are collapsed; zero disables the
// collapse beyond plain edge detection.
func NewMonitor(initialOnline bool, cooldown time.Duration, logger *logger.Logger) *Monitor {
	return &Monitor{
		logger:   logger,
		online:   initialOnline,
		cooldown: cooldown,
		now:      time.Now,
		subs:     make(map[int]func()),
	}
}

// IsOnline returns the most recently signalled connectivity state. It is a
// point-in-time snapshot, not a guarantee.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnOnline subscribes fn to offline→online transitions and returns its
// cancellation handle. Callbacks run synchronously on the goroutine calling
// Signal; long-running work should be handed off by the subscriber.
func (m *Monitor) OnOnline(fn func()) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Signal records the connectivity state reported by the external status
// source. Only an offline→online edge outside the cooldown window fires
// the subscribed callbacks, exactly once per transition.
func (m *Monitor) Signal(online bool) {
	m.mu.Lock()

	wasOnline := m.online
	m.online = online

	if !online || wasOnline {
		m.mu.Unlock()
		return
	}

	now := m.now()
	if m.cooldown > 0 && !m.lastFire.IsZero() && now.Sub(m.lastFire) < m.cooldown {
		m.mu.Unlock()
		m.logger.Debug().Msg("online transition inside cooldown window, collapsed")
		return
	}
	m.lastFire = now

	fns := make([]func(), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	m.logger.Info().Int("subscribers", len(fns)).Msg("connectivity restored")
	for _, fn := range fns {
		fn()
	}
}
