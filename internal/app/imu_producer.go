// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/imu_dashboard/internal/config"
	"github.com/relabs-tech/imu_dashboard/internal/env"
	"github.com/relabs-tech/imu_dashboard/internal/history"
	"github.com/relabs-tech/imu_dashboard/internal/orientation"
	"github.com/relabs-tech/imu_dashboard/internal/sensors"
	"github.com/relabs-tech/imu_dashboard/internal/telemetry"
	"github.com/relabs-tech/imu_dashboard/internal/transport"
)

// Publisher sends readings on the push channel.
type Publisher interface {
	Publish(r telemetry.Reading) error
}

// Producer samples a source, publishes every reading and keeps a short
// history for the pull endpoints. The history tracks the channels the first
// reading carries.
type Producer struct {
	src       orientation.Source
	pub       Publisher
	clk       clock.Clock
	capacity  int
	usingMock bool

	mu   sync.RWMutex
	buf  *history.Buffer
	last *telemetry.Reading
}

// NewProducer keeps capacity readings for /api/history.
func NewProducer(src orientation.Source, pub Publisher, clk clock.Clock, capacity int, usingMock bool) (*Producer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("producer: history capacity must be positive, got %d", capacity)
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Producer{src: src, pub: pub, clk: clk, capacity: capacity, usingMock: usingMock}, nil
}

// Run samples every interval until ctx is done.
func (p *Producer) Run(ctx context.Context, interval time.Duration) {
	ticker := p.clk.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sample()
		}
	}
}

func (p *Producer) sample() {
	r, err := p.src.Next()
	if err != nil {
		log.Printf("producer: error from source: %v", err)
		return
	}

	p.mu.Lock()
	if p.buf == nil {
		chs := r.Channels()
		if p.buf, err = history.New(p.capacity, chs); err != nil {
			log.Printf("producer: history: %v", err)
		} else {
			log.Printf("producer: history tracks %v", chs)
		}
	}
	if p.buf != nil {
		if err := p.buf.Append(r); err != nil {
			log.Printf("producer: history append: %v", err)
		}
	}
	p.last = &r
	p.mu.Unlock()

	if err := p.pub.Publish(r); err != nil {
		log.Printf("producer: publish: %v", err)
	}
}

// historyLen is the number of buffered readings.
func (p *Producer) historyLen() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.buf == nil {
		return 0
	}
	return p.buf.Len()
}

// Handler serves /api/current, /api/history and /api/status.
func (p *Producer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/current", p.handleCurrent)
	mux.HandleFunc("/api/history", p.handleHistory)
	mux.HandleFunc("/api/status", p.handleStatus)
	return mux
}

func (p *Producer) handleCurrent(w http.ResponseWriter, _ *http.Request) {
	p.mu.RLock()
	last := p.last
	p.mu.RUnlock()

	if last == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no data available"})
		return
	}
	payload, err := telemetry.EncodeReading(*last)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// handleHistory returns flat records, newest first. ?limit=N trims the list.
func (p *Producer) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := -1
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid limit %q", s)})
			return
		}
		limit = n
	}

	var snap history.Snapshot
	p.mu.RLock()
	if p.buf != nil {
		snap = p.buf.Snapshot()
	}
	p.mu.RUnlock()

	records := make([]telemetry.Record, 0, snap.Len())
	for i := snap.Len() - 1; i >= 0; i-- {
		if limit >= 0 && len(records) == limit {
			break
		}
		rec := telemetry.Record{Timestamp: snap.Timestamps[i]}
		for _, ch := range snap.Channels {
			rec.Set(ch, snap.Values[ch][i])
		}
		records = append(records, rec)
	}
	writeJSON(w, http.StatusOK, records)
}

func (p *Producer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	now := p.clk.Now()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "running",
		"using_mock": p.usingMock,
		"timestamp":  float64(now.UnixMilli()) / 1000,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// openSource picks the mock or the configured sensors. The returned closers
// release the hardware.
func openSource(cfg *config.Config) (orientation.Source, []io.Closer, error) {
	if cfg.UseMock {
		log.Println("using mock orientation source")
		return orientation.NewMockSource(nil), nil, nil
	}

	var closers []io.Closer
	raw, err := sensors.OpenIMU(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open IMU: %w", err)
	}
	if c, ok := raw.(io.Closer); ok {
		closers = append(closers, c)
	}

	var envSrc env.Source
	if cfg.BMPSPIDevice != "" {
		bmp, err := sensors.OpenBMP(cfg.BMPSPIDevice)
		if err != nil {
			log.Printf("WARNING: BMP not available, using IMU temperature: %v", err)
		} else {
			envSrc = bmp
			closers = append(closers, bmp)
		}
	}
	return orientation.NewIMUSource(raw, envSrc, nil), closers, nil
}

// RunProducer samples the IMU, publishes readings to MQTT and serves the pull
// endpoints until ctx is done.
func RunProducer(ctx context.Context) error {
	cfg := config.Get()

	src, closers, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Printf("producer: close: %v", err)
			}
		}
	}()

	pub, err := transport.NewPublisher(cfg.MQTTBroker, cfg.MQTTClientIDProducer, cfg.TopicReadings)
	if err != nil {
		return err
	}
	defer pub.Close()

	p, err := NewProducer(src, pub, nil, cfg.ProducerHistoryCapacity, cfg.UseMock)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ProducerPort),
		Handler: p.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	go p.Run(ctx, time.Duration(cfg.IMUSampleInterval)*time.Millisecond)
	log.Printf("producer: publishing to %s every %dms, API on %s", cfg.TopicReadings, cfg.IMUSampleInterval, srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
