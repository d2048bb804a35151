// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/imu_dashboard/internal/telemetry"
)

type mockSource struct {
	clk   clock.Clock
	start time.Time
}

// NewMockSource creates a mock source that generates smoothly changing
// readings: the board slowly rocks about X and Y at room temperature.
func NewMockSource(clk clock.Clock) Source {
	if clk == nil {
		clk = clock.New()
	}
	return &mockSource{clk: clk, start: clk.Now()}
}

func (m *mockSource) Next() (telemetry.Reading, error) {
	now := m.clk.Now()
	elapsed := now.Sub(m.start).Seconds()

	rollRad := 20 * math.Pi / 180 * math.Sin(elapsed)
	pitchRad := 15 * math.Pi / 180 * math.Cos(elapsed*0.7)

	// gravity vector for that attitude, so FromAccel gives the angles back
	acc := telemetry.Vector3{
		X: -math.Sin(pitchRad),
		Y: math.Cos(pitchRad) * math.Sin(rollRad),
		Z: math.Cos(pitchRad) * math.Cos(rollRad),
	}
	// angular rates are the derivatives of the angles above, in °/s
	gyro := telemetry.Vector3{
		X: 20 * math.Cos(elapsed),
		Y: -15 * 0.7 * math.Sin(elapsed*0.7),
		Z: 0,
	}
	tilt := FromAccel(acc.X, acc.Y, acc.Z)

	return Rounded(telemetry.Reading{
		Timestamp:     now,
		Accelerometer: acc,
		Gyroscope:     &gyro,
		Orientation:   &tilt,
		Temperature:   telemetry.Float(24 + 0.5*math.Sin(elapsed/60)),
	}), nil
}
