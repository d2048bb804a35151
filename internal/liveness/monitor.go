// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package liveness classifies connection health from the age of the last
// reading.
package liveness

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// State is the connection health shown on the dashboard.
type State int

const (
	Disconnected State = iota
	Connected
	Degraded
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Degraded:
		return "degraded"
	case Disconnected:
		return "disconnected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Config holds the monitor thresholds.
type Config struct {
	WarnAfter       time.Duration // Connected -> Degraded
	DisconnectAfter time.Duration // any -> Disconnected
	TickInterval    time.Duration
	// ReconcileEvery spaces reconciliation attempts while not connected.
	ReconcileEvery time.Duration
}

// DefaultConfig returns 5s/15s thresholds checked every second.
func DefaultConfig() Config {
	return Config{
		WarnAfter:       5 * time.Second,
		DisconnectAfter: 15 * time.Second,
		TickInterval:    time.Second,
		ReconcileEvery:  5 * time.Second,
	}
}

func (c Config) validate() error {
	if c.WarnAfter <= 0 {
		return fmt.Errorf("warn threshold must be positive, got %v", c.WarnAfter)
	}
	if c.DisconnectAfter <= c.WarnAfter {
		return fmt.Errorf("disconnect threshold %v must exceed warn threshold %v", c.DisconnectAfter, c.WarnAfter)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %v", c.TickInterval)
	}
	if c.ReconcileEvery <= 0 {
		return fmt.Errorf("reconcile interval must be positive, got %v", c.ReconcileEvery)
	}
	return nil
}

// Decision is the outcome of feeding the monitor an event or a tick.
type Decision struct {
	State   State
	Changed bool
	// Reconcile asks the owner to pull the current reading once.
	Reconcile bool
}

// Monitor is the three-state liveness machine. It is driven from one goroutine
// and holds no lock.
type Monitor struct {
	cfg           Config
	state         State
	last          time.Time
	seen          bool
	lastReconcile time.Time
}

// New returns a monitor in the Disconnected state; nothing has arrived yet.
func New(cfg Config) (*Monitor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Monitor{cfg: cfg, state: Disconnected}, nil
}

// Config returns the thresholds in use.
func (m *Monitor) Config() Config { return m.cfg }

// State returns the current state.
func (m *Monitor) State() State { return m.state }

// LastReading is the instant the clock was last reset.
func (m *Monitor) LastReading() time.Time { return m.last }

// Observe records a fresh reading: the clock restarts and the state is
// Connected whatever it was before.
func (m *Monitor) Observe(at time.Time) Decision {
	m.last = at
	m.seen = true
	m.lastReconcile = time.Time{}
	return m.set(Connected, false)
}

// Connect handles an explicit connect signal from the transport.
func (m *Monitor) Connect(at time.Time) Decision {
	return m.Observe(at)
}

// Disconnect handles an explicit disconnect signal; timers are bypassed.
func (m *Monitor) Disconnect() Decision {
	return m.set(Disconnected, false)
}

// Check classifies the age of the last reading at now. Thresholds are
// exclusive: exactly WarnAfter is still Connected. While nothing has arrived
// the state stays Disconnected and reconciliation is still requested.
func (m *Monitor) Check(now time.Time) Decision {
	if !m.seen {
		return m.set(m.state, m.reconcileDue(now))
	}
	elapsed := now.Sub(m.last)

	next := m.state
	switch {
	case elapsed > m.cfg.DisconnectAfter:
		next = Disconnected
	case elapsed > m.cfg.WarnAfter && m.state == Connected:
		next = Degraded
	}
	return m.set(next, next != Connected && m.reconcileDue(now))
}

// reconcileDue allows one attempt per ReconcileEvery.
func (m *Monitor) reconcileDue(now time.Time) bool {
	if !m.lastReconcile.IsZero() && now.Sub(m.lastReconcile) < m.cfg.ReconcileEvery {
		return false
	}
	m.lastReconcile = now
	return true
}

func (m *Monitor) set(s State, reconcile bool) Decision {
	changed := s != m.state
	m.state = s
	return Decision{State: s, Changed: changed, Reconcile: reconcile}
}

// Run calls tick on every TickInterval of clk until ctx is done.
func Run(ctx context.Context, clk clock.Clock, interval time.Duration, tick func(now time.Time)) {
	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			tick(now)
		}
	}
}
