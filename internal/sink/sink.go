// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sink holds the outputs a dashboard frame is rendered to.
package sink

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/relabs-tech/imu_dashboard/internal/present"
)

// Sink draws a frame.
type Sink interface {
	Render(f present.Frame) error
}

// Multi renders to every sink and joins their errors.
type Multi []Sink

func (m Multi) Render(f present.Frame) error {
	var errs []error
	for _, s := range m {
		if err := s.Render(f); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

// Printer is satisfied by *log.Logger.
type Printer interface {
	Printf(format string, v ...any)
}

// LogSink writes one line per frame.
type LogSink struct {
	Out Printer
}

func (l LogSink) Render(f present.Frame) error {
	var b strings.Builder
	fmt.Fprintf(&b, "status=%s", f.Status.Text)
	if f.LastUpdate != "" {
		fmt.Fprintf(&b, " last=%q", f.LastUpdate)
	}
	for _, g := range f.Gauges {
		fmt.Fprintf(&b, " %s=%s", g.Key, g.Text)
	}
	l.Out.Printf("frame: %s", b.String())
	return nil
}

// Latest keeps only the newest frame for a sink that redraws on its own
// schedule, such as a slow display.
type Latest struct {
	next Sink

	mu      sync.Mutex
	frame   present.Frame
	pending bool
}

// NewLatest wraps next.
func NewLatest(next Sink) *Latest {
	return &Latest{next: next}
}

func (l *Latest) Render(f present.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frame = f
	l.pending = true
	return nil
}

// Flush draws the newest frame if one arrived since the last flush.
func (l *Latest) Flush() error {
	l.mu.Lock()
	f, pending := l.frame, l.pending
	l.pending = false
	l.mu.Unlock()

	if !pending {
		return nil
	}
	return l.next.Render(f)
}
