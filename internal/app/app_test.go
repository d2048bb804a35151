// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/imu_dashboard/internal/config"
	"github.com/relabs-tech/imu_dashboard/internal/dashboard"
	"github.com/relabs-tech/imu_dashboard/internal/history"
	"github.com/relabs-tech/imu_dashboard/internal/orientation"
	"github.com/relabs-tech/imu_dashboard/internal/sink"
	"github.com/relabs-tech/imu_dashboard/internal/telemetry"
	"github.com/relabs-tech/imu_dashboard/internal/transport"
)

type fakePublisher struct {
	got []telemetry.Reading
	err error
}

func (p *fakePublisher) Publish(r telemetry.Reading) error {
	p.got = append(p.got, r)
	return p.err
}

func newTestProducer(t *testing.T, capacity int) (*Producer, *fakePublisher, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.Unix(1_700_000_000, 0))
	pub := &fakePublisher{}
	p, err := NewProducer(orientation.NewMockSource(clk), pub, clk, capacity, true)
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	return p, pub, clk
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestProducer_CurrentBeforeAndAfterSample(t *testing.T) {
	p, pub, _ := newTestProducer(t, 5)
	h := p.Handler()

	rec := get(t, h, "/api/current")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first sample; got %d", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil || payload["error"] == "" {
		t.Fatalf("expected error payload; got %q", rec.Body.String())
	}

	p.sample()
	if len(pub.got) != 1 {
		t.Fatalf("expected one published reading; got %d", len(pub.got))
	}

	rec = get(t, h, "/api/current")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200; got %d", rec.Code)
	}
	r, err := telemetry.DecodeReading(rec.Body.Bytes(), time.Time{})
	if err != nil {
		t.Fatalf("DecodeReading: %v", err)
	}
	if r.Gyroscope == nil || r.Orientation == nil || r.Temperature == nil {
		t.Fatalf("expected a full reading; got %+v", r)
	}
	if r.Accelerometer != pub.got[0].Accelerometer {
		t.Fatalf("expected current to match published reading")
	}
}

func TestProducer_PublishErrorKeepsReading(t *testing.T) {
	p, pub, _ := newTestProducer(t, 5)
	pub.err = errors.New("broker down")

	p.sample()
	if rec := get(t, p.Handler(), "/api/current"); rec.Code != http.StatusOK {
		t.Fatalf("expected current to be served despite publish error; got %d", rec.Code)
	}
}

func TestProducer_HistoryNewestFirstAndBounded(t *testing.T) {
	p, _, clk := newTestProducer(t, 3)
	for i := 0; i < 5; i++ {
		clk.Add(time.Second)
		p.sample()
	}

	rec := get(t, p.Handler(), "/api/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200; got %d", rec.Code)
	}
	var records []telemetry.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected capacity 3 records; got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if !records[i].Timestamp.Before(records[i-1].Timestamp) {
			t.Fatalf("expected newest first: %v then %v", records[i-1].Timestamp, records[i].Timestamp)
		}
	}
	if !records[0].Timestamp.Equal(clk.Now()) {
		t.Fatalf("expected newest record at %v; got %v", clk.Now(), records[0].Timestamp)
	}
	full, _ := telemetry.VariantFull.Channels()
	for _, rec := range records {
		r, err := rec.Reading()
		if err != nil {
			t.Fatalf("record does not convert: %v", err)
		}
		if !r.Has(full) {
			t.Fatalf("expected every channel of the mock source in %+v", rec)
		}
	}
}

func TestProducer_HistoryEmptyBeforeSample(t *testing.T) {
	p, _, _ := newTestProducer(t, 3)
	rec := get(t, p.Handler(), "/api/history")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty list; got %d %q", rec.Code, rec.Body.String())
	}
}

func TestProducer_HistoryBackfillsFullVariant(t *testing.T) {
	p, _, clk := newTestProducer(t, 20)
	for i := 0; i < 5; i++ {
		clk.Add(time.Second)
		p.sample()
	}
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	rs, err := transport.NewClient(srv.URL, time.Second, clk, nil).History(context.Background())
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(rs) != 5 {
		t.Fatalf("expected 5 readings from the client; got %d", len(rs))
	}

	full, _ := telemetry.VariantFull.Channels()
	buf, err := history.New(history.DefaultCapacity, full)
	if err != nil {
		t.Fatalf("history.New: %v", err)
	}
	if n := buf.Backfill(rs); n != 5 {
		t.Fatalf("expected a full-variant buffer to take all 5 records; took %d", n)
	}
}

func TestNewProducer_RejectsCapacity(t *testing.T) {
	if _, err := NewProducer(orientation.NewMockSource(nil), &fakePublisher{}, nil, 0, true); err == nil {
		t.Fatalf("expected error for zero capacity")
	}
}

func TestProducer_HistoryLimit(t *testing.T) {
	p, _, clk := newTestProducer(t, 10)
	for i := 0; i < 4; i++ {
		clk.Add(time.Second)
		p.sample()
	}
	h := p.Handler()

	rec := get(t, h, "/api/history?limit=2")
	var records []telemetry.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records; got %d", len(records))
	}

	for _, bad := range []string{"-1", "abc"} {
		if rec := get(t, h, "/api/history?limit="+bad); rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400; got %d", bad, rec.Code)
		}
	}
}

func TestProducer_Status(t *testing.T) {
	p, _, clk := newTestProducer(t, 1)
	rec := get(t, p.Handler(), "/api/status")

	var status struct {
		Status    string  `json:"status"`
		UsingMock bool    `json:"using_mock"`
		Timestamp float64 `json:"timestamp"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != "running" || !status.UsingMock {
		t.Fatalf("unexpected status %+v", status)
	}
	if int64(status.Timestamp) != clk.Now().Unix() {
		t.Fatalf("expected timestamp %d; got %v", clk.Now().Unix(), status.Timestamp)
	}
}

func TestProducer_RunSamplesOnTicks(t *testing.T) {
	p, pub, clk := newTestProducer(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, 100*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		clk.Add(100 * time.Millisecond)
		if p.historyLen() >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("producer never sampled")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
	if len(pub.got) < 2 {
		t.Fatalf("expected published readings; got %d", len(pub.got))
	}
}

type nopSource struct{}

func (nopSource) OnConnect(func(time.Time))         {}
func (nopSource) OnDisconnect(func(error))          {}
func (nopSource) OnReading(func([]byte, time.Time)) {}

type nopFetcher struct{}

func (nopFetcher) Current(context.Context) (telemetry.Reading, error) {
	return telemetry.Reading{}, errors.New("offline")
}

func (nopFetcher) History(context.Context) ([]telemetry.Reading, error) {
	return nil, errors.New("offline")
}

func TestWebHandler(t *testing.T) {
	session, err := dashboard.NewSession(dashboard.Config{Variant: telemetry.VariantFull}, dashboard.Deps{
		Source:  nopSource{},
		Fetcher: nopFetcher{},
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	h := webHandler(session, sink.NewHub(), sink.NewChartRenderer(320, 200, "g"))

	rec := get(t, h, "/api/snapshot")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected snapshot response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	if rec := get(t, h, "/api/load-more"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET load-more; got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/load-more", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202; got %d", rec.Code)
	}

	if rec := get(t, h, "/chart.png"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 chart before data; got %d", rec.Code)
	}
}

func TestSessionConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sc := sessionConfig(cfg)
	if sc.Variant != cfg.Variant || sc.HistoryCapacity != cfg.HistoryCapacity {
		t.Fatalf("unexpected session config %+v", sc)
	}
	if sc.Liveness.WarnAfter != cfg.WarnAfter() || sc.Liveness.DisconnectAfter != cfg.DisconnectAfter() {
		t.Fatalf("liveness thresholds not mapped: %+v", sc.Liveness)
	}
	if sc.FetchTimeout != cfg.FetchTimeout() {
		t.Fatalf("fetch timeout not mapped")
	}
}
