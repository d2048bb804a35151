// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/relabs-tech/imu_dashboard/internal/present"
)

var lineColors = []drawing.Color{
	chart.ColorRed,
	chart.ColorGreen,
	chart.ColorBlue,
	chart.ColorOrange,
	chart.ColorCyan,
	chart.ColorYellow,
}

// ChartRenderer keeps the series of the latest frame and draws them as a PNG
// line chart on request. Only series with the selected unit are drawn.
type ChartRenderer struct {
	Width  int
	Height int
	Unit   string

	mu     sync.RWMutex
	series []present.Series
}

// NewChartRenderer draws the series measured in unit (e.g. "g").
func NewChartRenderer(width, height int, unit string) *ChartRenderer {
	return &ChartRenderer{Width: width, Height: height, Unit: unit}
}

func (c *ChartRenderer) Render(f present.Frame) error {
	var keep []present.Series
	for _, s := range f.Series {
		if s.Unit == c.Unit {
			keep = append(keep, s)
		}
	}
	c.mu.Lock()
	c.series = keep
	c.mu.Unlock()
	return nil
}

// PNG draws the current series.
func (c *ChartRenderer) PNG() ([]byte, error) {
	c.mu.RLock()
	in := c.series
	c.mu.RUnlock()

	var series []chart.Series
	for i, s := range in {
		if len(s.Points) == 0 {
			continue
		}
		xs := make([]time.Time, len(s.Points))
		ys := make([]float64, len(s.Points))
		for j, p := range s.Points {
			xs[j], ys[j] = p.Time, p.Value
		}
		// a single sample has no x range; stretch it into a flat segment
		if len(xs) == 1 || xs[0].Equal(xs[len(xs)-1]) {
			xs = []time.Time{xs[0], xs[0].Add(time.Second)}
			ys = []float64{ys[0], ys[0]}
		}
		series = append(series, chart.TimeSeries{
			Name:    s.Label,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: lineColors[i%len(lineColors)],
				StrokeWidth: 2,
			},
		})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("chart: no %q series to draw", c.Unit)
	}

	ch := chart.Chart{
		Width:      c.Width,
		Height:     c.Height,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{ValueFormatter: chart.TimeValueFormatterWithFormat(time.TimeOnly)},
		YAxis:      chart.YAxis{Name: c.Unit, Range: yRange(in)},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart: render: %w", err)
	}
	return buf.Bytes(), nil
}

// yRange fixes the axis to the values seen, padded so a flat line still has
// a non-zero range.
func yRange(in []present.Series) *chart.ContinuousRange {
	first := true
	var lo, hi float64
	for _, s := range in {
		for _, p := range s.Points {
			if first {
				lo, hi, first = p.Value, p.Value, false
				continue
			}
			lo = min(lo, p.Value)
			hi = max(hi, p.Value)
		}
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 1
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// ServeHTTP writes the chart as image/png.
func (c *ChartRenderer) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	img, err := c.PNG()
	if err != nil {
		log.Printf("chart: %v", err)
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(img)
}
