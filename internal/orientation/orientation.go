// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/relabs-tech/imu_dashboard/internal/telemetry"
)

// Decimal places the producer publishes with.
const (
	axisPlaces  = 3
	anglePlaces = 2
)

// Source is anything that can provide readings over time: the mock source or
// a sensor-backed one.
type Source interface {
	Next() (telemetry.Reading, error)
}

// FromAccel computes roll and pitch in degrees from accelerometer data only.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func FromAccel(ax, ay, az float64) telemetry.Orientation {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return telemetry.Orientation{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// Rounded returns r with axes at 3 decimals and angles and temperature at 2.
func Rounded(r telemetry.Reading) telemetry.Reading {
	out := telemetry.Reading{
		Timestamp: r.Timestamp,
		Accelerometer: telemetry.Vector3{
			X: round(r.Accelerometer.X, axisPlaces),
			Y: round(r.Accelerometer.Y, axisPlaces),
			Z: round(r.Accelerometer.Z, axisPlaces),
		},
	}
	if r.Gyroscope != nil {
		out.Gyroscope = &telemetry.Vector3{
			X: round(r.Gyroscope.X, axisPlaces),
			Y: round(r.Gyroscope.Y, axisPlaces),
			Z: round(r.Gyroscope.Z, axisPlaces),
		}
	}
	if r.Orientation != nil {
		out.Orientation = &telemetry.Orientation{
			Roll:  round(r.Orientation.Roll, anglePlaces),
			Pitch: round(r.Orientation.Pitch, anglePlaces),
		}
	}
	if r.Temperature != nil {
		out.Temperature = telemetry.Float(round(*r.Temperature, anglePlaces))
	}
	return out
}
