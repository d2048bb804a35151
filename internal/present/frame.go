// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package present

import (
	"math"
	"time"

	"github.com/relabs-tech/imu_dashboard/internal/history"
	"github.com/relabs-tech/imu_dashboard/internal/liveness"
	"github.com/relabs-tech/imu_dashboard/internal/telemetry"
)

const (
	axisDecimals  = 3
	angleDecimals = 1
	tempDecimals  = 1

	// MaxTableRows is how many readings the table shows, newest first.
	MaxTableRows = 10
)

// Status is the connection indicator.
type Status struct {
	State string `json:"state"`
	Text  string `json:"text"`
	Color string `json:"color"`
}

// StatusLabel maps a liveness state onto the indicator.
func StatusLabel(s liveness.State) Status {
	switch s {
	case liveness.Connected:
		return Status{State: s.String(), Text: "Connected", Color: "green"}
	case liveness.Degraded:
		return Status{State: s.String(), Text: "Connection issue", Color: "yellow"}
	}
	return Status{State: s.String(), Text: "Disconnected", Color: "red"}
}

// CubeRotation is the Euler assignment for the 3D orientation cube, in
// radians. The renderer resets the cube, rotates about X by pitch and then
// about Z by roll.
type CubeRotation struct {
	X     float64 `json:"x"`
	Z     float64 `json:"z"`
	Order string  `json:"order"`
}

// Rotation converts tilt angles to the cube rotation.
func Rotation(o telemetry.Orientation) CubeRotation {
	return CubeRotation{
		X:     o.Pitch * math.Pi / 180,
		Z:     o.Roll * math.Pi / 180,
		Order: "XZ",
	}
}

// Gauge is one numeric readout, with a bar width when the channel has a
// nominal range.
type Gauge struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Text    string   `json:"text"`
	Percent *float64 `json:"percent,omitempty"`
}

// TableRow is one line of the recent readings table.
type TableRow struct {
	Time string `json:"time"`
	X    string `json:"x"`
	Y    string `json:"y"`
	Z    string `json:"z"`
}

// Frame is everything a render sink needs to redraw.
type Frame struct {
	Session     string        `json:"session,omitempty"`
	Status      Status        `json:"status"`
	LastUpdate  string        `json:"last_update"`
	Gauges      []Gauge       `json:"gauges"`
	Roll        string        `json:"roll,omitempty"`
	Pitch       string        `json:"pitch,omitempty"`
	Temperature string        `json:"temperature,omitempty"`
	Rotation    *CubeRotation `json:"rotation,omitempty"`
	Series      []Series      `json:"series"`
	Table       []TableRow    `json:"table"`
	HasReading  bool          `json:"has_reading"`
}

// BuildFrame assembles the display for the latest reading r (nil before the
// first arrival), the connection state and the buffer snapshot.
func BuildFrame(r *telemetry.Reading, state liveness.State, lastUpdate, now time.Time, snap history.Snapshot) Frame {
	f := Frame{
		Status: StatusLabel(state),
		Series: ToChartSeries(snap),
		Table:  tableRows(snap),
	}
	if !lastUpdate.IsZero() {
		f.LastUpdate = RelativeTimeLabel(lastUpdate, now)
	}
	if r == nil {
		return f
	}

	f.HasReading = true
	for _, ch := range snap.Channels {
		v, ok := r.Value(ch)
		if !ok {
			continue
		}
		g := Gauge{Key: ch.Key(), Label: ch.Label()}
		switch ch {
		case telemetry.Roll, telemetry.Pitch:
			g.Text = FormatScalar(v, angleDecimals) + "°"
		case telemetry.Temperature:
			g.Text = FormatScalar(v, tempDecimals)
		default:
			g.Text = FormatScalar(v, axisDecimals)
		}
		if m := ch.MaxMagnitude(); m > 0 {
			pct := MustScaleToPercent(v, m)
			g.Percent = &pct
		}
		f.Gauges = append(f.Gauges, g)
	}

	if r.Orientation != nil {
		f.Roll = FormatScalar(r.Orientation.Roll, angleDecimals) + "°"
		f.Pitch = FormatScalar(r.Orientation.Pitch, angleDecimals) + "°"
		rot := Rotation(*r.Orientation)
		f.Rotation = &rot
	}
	if r.Temperature != nil {
		f.Temperature = FormatScalar(*r.Temperature, tempDecimals)
	}
	return f
}

func tableRows(s history.Snapshot) []TableRow {
	xs, ys, zs := s.Values[telemetry.AccX], s.Values[telemetry.AccY], s.Values[telemetry.AccZ]
	if xs == nil || ys == nil || zs == nil {
		return nil
	}
	n := s.Len()
	rows := make([]TableRow, 0, MaxTableRows)
	for i := n - 1; i >= 0 && len(rows) < MaxTableRows; i-- {
		rows = append(rows, TableRow{
			Time: s.Timestamps[i].Format(time.TimeOnly),
			X:    FormatScalar(xs[i], axisDecimals),
			Y:    FormatScalar(ys[i], axisDecimals),
			Z:    FormatScalar(zs[i], axisDecimals),
		})
	}
	return rows
}
