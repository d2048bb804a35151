// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/imu_dashboard/internal/history"
	"github.com/relabs-tech/imu_dashboard/internal/liveness"
	"github.com/relabs-tech/imu_dashboard/internal/present"
	"github.com/relabs-tech/imu_dashboard/internal/telemetry"
)

var t0 = time.Unix(1_700_000_000, 0)

// frame builds a frame from n simple readings.
func frame(t *testing.T, n int) present.Frame {
	t.Helper()
	chs, _ := telemetry.VariantFull.Channels()
	buf, err := history.New(history.DefaultCapacity, chs)
	if err != nil {
		t.Fatalf("history.New: %v", err)
	}
	var last *telemetry.Reading
	for i := 0; i < n; i++ {
		r := telemetry.Reading{
			Timestamp:     t0.Add(time.Duration(i) * time.Second),
			Accelerometer: telemetry.Vector3{X: 0.1 * float64(i), Y: -0.5, Z: 0.98},
			Gyroscope:     &telemetry.Vector3{X: 1, Y: 2, Z: 3},
			Orientation:   &telemetry.Orientation{Roll: 10, Pitch: -5},
			Temperature:   telemetry.Float(36.5),
		}
		if err := buf.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
		last = &r
	}
	var at time.Time
	if last != nil {
		at = last.Timestamp
	}
	return present.BuildFrame(last, liveness.Connected, at, at, buf.Snapshot())
}

type recorder struct {
	frames []present.Frame
	err    error
}

func (r *recorder) Render(f present.Frame) error {
	r.frames = append(r.frames, f)
	return r.err
}

func TestMulti_RendersAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a, b, c := &recorder{}, &recorder{err: boom}, &recorder{}

	err := Multi{a, b, c}.Render(frame(t, 1))
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to wrap boom; got %v", err)
	}
	for i, r := range []*recorder{a, b, c} {
		if len(r.frames) != 1 {
			t.Fatalf("sink %d: expected 1 frame; got %d", i, len(r.frames))
		}
	}
	if err := (Multi{a}).Render(frame(t, 1)); err != nil {
		t.Fatalf("expected nil error; got %v", err)
	}
}

type lines struct{ out []string }

func (l *lines) Printf(format string, v ...any) {
	l.out = append(l.out, fmt.Sprintf(format, v...))
}

func TestLogSink(t *testing.T) {
	var l lines
	if err := (LogSink{Out: &l}).Render(frame(t, 2)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(l.out) != 1 {
		t.Fatalf("expected one line; got %d", len(l.out))
	}
	for _, want := range []string{"status=Connected", "acc_x=0.100", `last="just now"`} {
		if !strings.Contains(l.out[0], want) {
			t.Errorf("expected %q in %q", want, l.out[0])
		}
	}
}

func TestHub_BroadcastsAndReplaysLatest(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	first := frame(t, 1)
	first.Session = "first"
	if err := hub.Render(first); err != nil {
		t.Fatalf("Render: %v", err)
	}

	// the hub may not have processed the frame yet; poll until a new client
	// gets it on join
	var conn *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		c, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		c.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		_, msg, err := c.ReadMessage()
		if err == nil {
			var got present.Frame
			if err := json.Unmarshal(msg, &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Session != "first" {
				t.Fatalf("expected replayed frame; got session %q", got.Session)
			}
			conn = c
			break
		}
		c.Close()
		if time.Now().After(deadline) {
			t.Fatalf("latest frame never replayed")
		}
	}
	defer conn.Close()

	second := frame(t, 2)
	second.Session = "second"
	if err := hub.Render(second); err != nil {
		t.Fatalf("Render: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got present.Frame
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Session != "second" || len(got.Gauges) == 0 {
		t.Fatalf("unexpected broadcast %+v", got)
	}
}

func TestChartRenderer(t *testing.T) {
	c := NewChartRenderer(480, 240, "g")

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chart.png", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before data; got %d", rec.Code)
	}

	for _, n := range []int{1, 20} {
		if err := c.Render(frame(t, n)); err != nil {
			t.Fatalf("Render: %v", err)
		}
		img, err := c.PNG()
		if err != nil {
			t.Fatalf("PNG with %d points: %v", n, err)
		}
		if !bytes.HasPrefix(img, []byte("\x89PNG")) {
			t.Fatalf("expected PNG signature")
		}
	}

	rec = httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chart.png", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("expected png response; got %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
}

func TestChartRenderer_FiltersUnit(t *testing.T) {
	c := NewChartRenderer(480, 240, "°/s")
	if err := c.Render(frame(t, 5)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.series) != 3 {
		t.Fatalf("expected 3 gyro series; got %d", len(c.series))
	}
}

type fakePanel struct {
	draws int
	lit   int
}

func (p *fakePanel) Bounds() image.Rectangle { return image.Rect(0, 0, oledWidth, oledHeight) }

func (p *fakePanel) Draw(r image.Rectangle, src image.Image, _ image.Point) error {
	p.draws++
	p.lit = 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if cr, _, _, _ := src.At(x, y).RGBA(); cr != 0 {
				p.lit++
			}
		}
	}
	return nil
}

func TestOLED_Render(t *testing.T) {
	p := &fakePanel{}
	o := NewOLED(p)
	if err := o.Render(frame(t, 3)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if p.draws != 1 || p.lit == 0 {
		t.Fatalf("expected one draw with lit pixels; got draws=%d lit=%d", p.draws, p.lit)
	}
	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOLEDLines(t *testing.T) {
	got := oledLines(frame(t, 2))
	want := []string{"Connected", "X:0.100 Y:-0.500", "Z:0.980 T:36.5", "R:10.0 P:-5.0"}
	if len(got) != len(want) {
		t.Fatalf("expected %q; got %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: expected %q; got %q", i, want[i], got[i])
		}
	}

	empty := present.BuildFrame(nil, liveness.Disconnected, time.Time{}, t0, history.Snapshot{})
	if got := oledLines(empty); len(got) != 2 || got[1] != "Waiting..." {
		t.Fatalf("unexpected waiting screen %q", got)
	}
}

func TestTerminalPanels(t *testing.T) {
	f := frame(t, 4)
	if got := valuesText(f); !strings.Contains(got, "Roll:  10.0°") || !strings.Contains(got, "36.5 °C") {
		t.Fatalf("unexpected values panel %q", got)
	}
	p := accelPlot(f)
	if p == nil || len(p.Data) != 3 {
		t.Fatalf("expected accelerometer plot with 3 lines")
	}
	for _, line := range p.Data {
		for _, v := range line {
			if v < 0 || v > 100 {
				t.Fatalf("plot value %v out of range", v)
			}
		}
	}
	if accelPlot(frame(t, 1)) != nil {
		t.Fatalf("expected no plot for a single sample")
	}
	if !strings.Contains(statusText(f), "(fg:green)") {
		t.Fatalf("expected green status; got %q", statusText(f))
	}
}

func TestLatest_FlushesNewestOnce(t *testing.T) {
	rec := &recorder{}
	l := NewLatest(rec)

	if err := l.Flush(); err != nil || len(rec.frames) != 0 {
		t.Fatalf("expected nothing to flush")
	}
	a, b := frame(t, 1), frame(t, 2)
	l.Render(a)
	l.Render(b)
	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(rec.frames) != 1 || len(rec.frames[0].Table) != 2 {
		t.Fatalf("expected only the newest frame once; got %d frames", len(rec.frames))
	}
}
