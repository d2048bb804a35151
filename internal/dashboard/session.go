// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package dashboard owns the live view: it ingests pushed readings, keeps the
// history buffer and liveness monitor, reconciles when the push channel goes
// quiet, and renders frames to the sinks. All state is mutated on one event
// loop goroutine.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/relabs-tech/imu_dashboard/internal/history"
	"github.com/relabs-tech/imu_dashboard/internal/liveness"
	"github.com/relabs-tech/imu_dashboard/internal/present"
	"github.com/relabs-tech/imu_dashboard/internal/sink"
	"github.com/relabs-tech/imu_dashboard/internal/telemetry"
)

const eventQueue = 256

// EventSource is the push channel.
type EventSource interface {
	OnConnect(fn func(at time.Time))
	OnDisconnect(fn func(err error))
	OnReading(fn func(payload []byte, at time.Time))
}

// Fetcher pulls from the producer's endpoints.
type Fetcher interface {
	Current(ctx context.Context) (telemetry.Reading, error)
	History(ctx context.Context) ([]telemetry.Reading, error)
}

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

// Config selects the variant and timing of a session.
type Config struct {
	Variant         telemetry.Variant
	HistoryCapacity int
	Liveness        liveness.Config
	FetchTimeout    time.Duration
}

// Deps are the collaborators of a session. Source and Fetcher are required.
type Deps struct {
	Source  EventSource
	Fetcher Fetcher
	Sinks   []sink.Sink
	Clock   clock.Clock
	Logger  Logger
}

// Session is one running dashboard.
type Session struct {
	id      string
	cfg     Config
	fetcher Fetcher
	sinks   []sink.Sink
	clk     clock.Clock
	log     Logger

	events chan func()
	done   chan struct{}
	ctx    context.Context

	// loop state
	buf         *history.Buffer
	mon         *liveness.Monitor
	last        *telemetry.Reading
	lastArrival time.Time
	seq         uint64
	reconciling bool
	loadingHist bool

	frameMu sync.RWMutex
	frame   present.Frame
}

// NewSession validates cfg, builds the buffer and monitor and registers the
// push handlers on deps.Source.
func NewSession(cfg Config, deps Deps) (*Session, error) {
	if deps.Source == nil || deps.Fetcher == nil {
		return nil, errors.New("dashboard: source and fetcher are required")
	}
	chs, err := cfg.Variant.Channels()
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	if cfg.HistoryCapacity == 0 {
		cfg.HistoryCapacity = history.DefaultCapacity
	}
	buf, err := history.New(cfg.HistoryCapacity, chs)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	if cfg.Liveness == (liveness.Config{}) {
		cfg.Liveness = liveness.DefaultConfig()
	}
	mon, err := liveness.New(cfg.Liveness)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 3 * time.Second
	}

	id := uuid.NewString()
	s := &Session{
		id:      id,
		cfg:     cfg,
		fetcher: deps.Fetcher,
		sinks:   deps.Sinks,
		clk:     deps.Clock,
		log:     deps.Logger,
		events:  make(chan func(), eventQueue),
		done:    make(chan struct{}),
		ctx:     context.Background(),
		buf:     buf,
		mon:     mon,
	}
	if s.clk == nil {
		s.clk = clock.New()
	}
	if s.log == nil {
		s.log = log.New(log.Writer(), fmt.Sprintf("session %s: ", id[:8]), log.Flags())
	}

	deps.Source.OnConnect(func(at time.Time) {
		s.enqueue(func() { s.handleConnect(at) })
	})
	deps.Source.OnDisconnect(func(err error) {
		s.enqueue(func() { s.handleDisconnect(err) })
	})
	deps.Source.OnReading(func(payload []byte, at time.Time) {
		s.enqueue(func() { s.ingest(payload, at) })
	})
	return s, nil
}

// ID identifies the session in logs and frames.
func (s *Session) ID() string { return s.id }

// Frame returns the most recently rendered frame.
func (s *Session) Frame() present.Frame {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.frame
}

// LoadMore requests another historical load. It is safe to call from any
// goroutine; a load already in flight absorbs the request.
func (s *Session) LoadMore() {
	s.enqueue(func() { s.loadHistory() })
}

// Run loads history and processes events until ctx is done. It must be
// called once.
func (s *Session) Run(ctx context.Context) error {
	s.ctx = ctx
	defer close(s.done)

	go liveness.Run(ctx, s.clk, s.cfg.Liveness.TickInterval, func(now time.Time) {
		s.enqueue(func() { s.tick(now) })
	})

	s.log.Printf("started (variant %s, history %d)", s.cfg.Variant, s.buf.Cap())
	s.render(s.clk.Now(), true)
	s.loadHistory()
	for {
		select {
		case <-ctx.Done():
			s.log.Printf("stopped")
			return nil
		case fn := <-s.events:
			fn()
		}
	}
}

// enqueue blocks rather than drop so arrival order is kept.
func (s *Session) enqueue(fn func()) {
	select {
	case s.events <- fn:
	case <-s.done:
	}
}

func (s *Session) handleConnect(at time.Time) {
	s.mon.Connect(at)
	s.log.Printf("push channel connected")
	s.render(s.clk.Now(), true)
	s.loadHistory()
}

func (s *Session) handleDisconnect(err error) {
	s.mon.Disconnect()
	s.log.Printf("push channel disconnected: %v", err)
	s.render(s.clk.Now(), true)
}

func (s *Session) ingest(payload []byte, at time.Time) {
	r, err := telemetry.DecodeReading(payload, at)
	if err != nil {
		s.log.Printf("dropping reading: %v", err)
		return
	}
	if err := s.buf.Append(r); err != nil {
		s.log.Printf("dropping reading: %v", err)
		return
	}
	s.seq++
	s.apply(r, at)
}

// apply makes r the displayed reading. The reading is already in the buffer.
func (s *Session) apply(r telemetry.Reading, at time.Time) {
	s.last = &r
	s.lastArrival = at
	s.mon.Observe(at)
	s.render(at, true)
}

func (s *Session) tick(now time.Time) {
	d := s.mon.Check(now)
	if d.Changed {
		s.log.Printf("liveness: %s", d.State)
	}
	if d.Reconcile {
		s.reconcile()
	}
	s.render(now, d.Changed)
}

// reconcile pulls the current reading once. The result is dropped if a push
// reading arrived meanwhile or if it is not newer than the displayed one.
func (s *Session) reconcile() {
	if s.reconciling {
		return
	}
	s.reconciling = true
	issued := s.seq

	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.FetchTimeout)
		defer cancel()
		r, err := s.fetcher.Current(ctx)
		s.enqueue(func() { s.reconciled(issued, r, err) })
	}()
}

func (s *Session) reconciled(issued uint64, r telemetry.Reading, err error) {
	s.reconciling = false
	if err != nil {
		s.log.Printf("reconcile failed: %v", err)
		return
	}
	if issued != s.seq {
		s.log.Printf("reconcile superseded by pushed reading")
		return
	}
	if newest, ok := s.buf.Newest(); ok && !r.Timestamp.After(newest) {
		s.log.Printf("reconcile: nothing newer than %s", newest.Format(time.RFC3339))
		return
	}
	if err := s.buf.Append(r); err != nil {
		s.log.Printf("reconcile: %v", err)
		return
	}
	s.seq++
	s.log.Printf("reconciled reading from %s", r.Timestamp.Format(time.RFC3339))
	s.apply(r, s.clk.Now())
}

func (s *Session) loadHistory() {
	if s.loadingHist {
		return
	}
	s.loadingHist = true

	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.FetchTimeout)
		defer cancel()
		rs, err := s.fetcher.History(ctx)
		s.enqueue(func() { s.historyLoaded(rs, err) })
	}()
}

func (s *Session) historyLoaded(rs []telemetry.Reading, err error) {
	s.loadingHist = false
	if err != nil {
		s.log.Printf("history load failed: %v", err)
		return
	}
	n := s.buf.Backfill(rs)
	s.log.Printf("history load: %d of %d records applied", n, len(rs))
	if n > 0 {
		s.render(s.clk.Now(), true)
	}
}

// render builds a frame and hands it to every sink. Unforced renders are
// skipped when neither the status nor the relative time label moved.
func (s *Session) render(now time.Time, force bool) {
	f := present.BuildFrame(s.last, s.mon.State(), s.lastArrival, now, s.buf.Snapshot())
	f.Session = s.id

	s.frameMu.Lock()
	prev := s.frame
	s.frame = f
	s.frameMu.Unlock()

	if !force && prev.Status == f.Status && prev.LastUpdate == f.LastUpdate {
		return
	}
	for _, sk := range s.sinks {
		if err := sk.Render(f); err != nil {
			s.log.Printf("sink %T: %v", sk, err)
		}
	}
}
