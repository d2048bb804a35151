// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "github.com/relabs-tech/imu_dashboard/internal/telemetry"

// Full-scale factors for the default ranges (±2g, ±250°/s).
const (
	AccelLSBPerG   = 16384.0
	GyroLSBPerDPS  = 131.0
	tempLSBPerC    = 340.0
	tempOffsetDegC = 36.53
)

// IMURaw represents a single raw accelerometer and gyroscope sample.
type IMURaw struct {
	Source string `json:"source"` // "mpu6050", "mpu9250" or "mock"

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`

	// Temp is the die temperature register; only valid when HasTemp is set.
	Temp    int16 `json:"temp,omitempty"`
	HasTemp bool  `json:"-"`
}

type IMURawSource interface {
	NextRaw() (IMURaw, error)
}

// Accel returns the acceleration in g.
func (r IMURaw) Accel() telemetry.Vector3 {
	return telemetry.Vector3{
		X: float64(r.Ax) / AccelLSBPerG,
		Y: float64(r.Ay) / AccelLSBPerG,
		Z: float64(r.Az) / AccelLSBPerG,
	}
}

// Gyro returns the angular rate in °/s.
func (r IMURaw) Gyro() telemetry.Vector3 {
	return telemetry.Vector3{
		X: float64(r.Gx) / GyroLSBPerDPS,
		Y: float64(r.Gy) / GyroLSBPerDPS,
		Z: float64(r.Gz) / GyroLSBPerDPS,
	}
}

// Temperature converts the die temperature register to °C.
func (r IMURaw) Temperature() (float64, bool) {
	if !r.HasTemp {
		return 0, false
	}
	return float64(r.Temp)/tempLSBPerC + tempOffsetDegC, true
}
