// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package present

import (
	"time"

	"github.com/relabs-tech/imu_dashboard/internal/history"
	"github.com/relabs-tech/imu_dashboard/internal/telemetry"
)

// Point is one chart sample.
type Point struct {
	Time  time.Time `json:"t"`
	Value float64   `json:"v"`
}

// Series is the chart line of one channel, oldest point first.
type Series struct {
	Channel telemetry.Channel `json:"-"`
	Key     string            `json:"key"`
	Label   string            `json:"label"`
	Unit    string            `json:"unit"`
	Points  []Point           `json:"points"`
}

// ToChartSeries pairs the snapshot's timestamps with each channel's values.
// Every series has the snapshot's length and keeps buffer order.
func ToChartSeries(s history.Snapshot) []Series {
	out := make([]Series, 0, len(s.Channels))
	for _, ch := range s.Channels {
		vs := s.Values[ch]
		pts := make([]Point, len(s.Timestamps))
		for i, ts := range s.Timestamps {
			pts[i] = Point{Time: ts, Value: vs[i]}
		}
		out = append(out, Series{
			Channel: ch,
			Key:     ch.Key(),
			Label:   ch.Label(),
			Unit:    ch.Unit(),
			Points:  pts,
		})
	}
	return out
}
