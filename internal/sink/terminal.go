// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"context"
	"fmt"
	"strings"
	"sync"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/relabs-tech/imu_dashboard/internal/present"
)

const gaugeHeight = 3

var statusColors = map[string]ui.Color{
	"green":  ui.ColorGreen,
	"yellow": ui.ColorYellow,
	"red":    ui.ColorRed,
}

// Terminal draws frames with termui: a gauge per channel, a value panel and a
// plot of the accelerometer history.
type Terminal struct {
	mu   sync.Mutex
	last present.Frame
}

// NewTerminal takes over the terminal. Close must be called to restore it.
func NewTerminal() (*Terminal, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("termui init: %w", err)
	}
	return &Terminal{}, nil
}

// Close restores the terminal.
func (t *Terminal) Close() {
	ui.Close()
}

func (t *Terminal) Render(f present.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = f
	ui.Render(layout(f)...)
	return nil
}

// Run handles keyboard and resize events until ctx is done or the user quits;
// it returns true when the user asked to quit.
func (t *Terminal) Run(ctx context.Context) bool {
	events := ui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return false
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return true
			case "<Resize>":
				t.mu.Lock()
				ui.Clear()
				ui.Render(layout(t.last)...)
				t.mu.Unlock()
			}
		}
	}
}

func layout(f present.Frame) []ui.Drawable {
	width, height := ui.TerminalDimensions()
	half := width / 2

	header := widgets.NewParagraph()
	header.Title = "IMU Dashboard"
	header.Text = statusText(f)
	header.SetRect(0, 0, width, 3)
	if c, ok := statusColors[f.Status.Color]; ok {
		header.BorderStyle = ui.NewStyle(c)
	}

	items := []ui.Drawable{header}

	y := 3
	for _, g := range f.Gauges {
		if y+gaugeHeight > height {
			break
		}
		w := widgets.NewGauge()
		w.Title = g.Label
		w.Label = g.Text
		if g.Percent != nil {
			w.Percent = int(*g.Percent + 0.5)
		}
		w.BarColor = ui.ColorCyan
		w.SetRect(0, y, half, y+gaugeHeight)
		items = append(items, w)
		y += gaugeHeight
	}

	values := widgets.NewParagraph()
	values.Title = "Orientation"
	values.Text = valuesText(f)
	values.SetRect(half, 3, width, 8)
	items = append(items, values)

	if plot := accelPlot(f); plot != nil && height > 9 {
		plot.SetRect(half, 8, width, height)
		items = append(items, plot)
	}
	return items
}

func statusText(f present.Frame) string {
	color := "white"
	if _, ok := statusColors[f.Status.Color]; ok {
		color = f.Status.Color
	}
	s := fmt.Sprintf("[%s](fg:%s)", f.Status.Text, color)
	if f.LastUpdate != "" {
		s += "  last update " + f.LastUpdate
	}
	return s
}

func valuesText(f present.Frame) string {
	if !f.HasReading {
		return "Waiting for data..."
	}
	var lines []string
	if f.Roll != "" {
		lines = append(lines, "Roll:  "+f.Roll, "Pitch: "+f.Pitch)
	}
	if f.Temperature != "" {
		lines = append(lines, "Temp:  "+f.Temperature+" °C")
	}
	if len(lines) == 0 {
		return "no orientation channels"
	}
	return strings.Join(lines, "\n")
}

// accelPlot draws gauge channels as percent of their range, so negative
// values stay on the chart.
func accelPlot(f present.Frame) *widgets.Plot {
	var data [][]float64
	var labels []string
	for _, s := range f.Series {
		m := s.Channel.MaxMagnitude()
		if s.Unit != "g" || m <= 0 || len(s.Points) < 2 {
			continue
		}
		line := make([]float64, len(s.Points))
		for i, p := range s.Points {
			line[i] = present.MustScaleToPercent(p.Value, m)
		}
		data = append(data, line)
		labels = append(labels, s.Label)
	}
	if len(data) == 0 {
		return nil
	}
	p := widgets.NewPlot()
	p.Title = strings.Join(labels, " / ") + " (% of range)"
	p.Data = data
	p.MaxVal = 100
	p.LineColors = []ui.Color{ui.ColorRed, ui.ColorGreen, ui.ColorBlue}
	p.AxesColor = ui.ColorWhite
	return p
}
