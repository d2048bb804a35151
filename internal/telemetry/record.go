// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"fmt"
	"time"
)

// Record is one entry of the historical endpoint: a flat row, as stored by the
// producer. Optional channels are omitted when the producer does not have them.
type Record struct {
	Timestamp   time.Time `json:"timestamp"`
	AccX        *float64  `json:"acc_x"`
	AccY        *float64  `json:"acc_y"`
	AccZ        *float64  `json:"acc_z"`
	GyroX       *float64  `json:"gyro_x,omitempty"`
	GyroY       *float64  `json:"gyro_y,omitempty"`
	GyroZ       *float64  `json:"gyro_z,omitempty"`
	Roll        *float64  `json:"roll,omitempty"`
	Pitch       *float64  `json:"pitch,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Reading converts the record. Timestamp and all accelerometer axes are required;
// partial gyroscope or orientation groups are rejected.
func (rec Record) Reading() (Reading, error) {
	if rec.Timestamp.IsZero() {
		return Reading{}, fmt.Errorf("%w: record timestamp missing", ErrMalformed)
	}
	if rec.AccX == nil || rec.AccY == nil || rec.AccZ == nil {
		return Reading{}, fmt.Errorf("%w: record at %s missing accelerometer axis", ErrMalformed, rec.Timestamp.Format(time.RFC3339))
	}
	r := Reading{
		Timestamp:     rec.Timestamp,
		Accelerometer: Vector3{X: *rec.AccX, Y: *rec.AccY, Z: *rec.AccZ},
		Temperature:   rec.Temperature,
	}

	switch n := countSet(rec.GyroX, rec.GyroY, rec.GyroZ); n {
	case 0:
	case 3:
		r.Gyroscope = &Vector3{X: *rec.GyroX, Y: *rec.GyroY, Z: *rec.GyroZ}
	default:
		return Reading{}, fmt.Errorf("%w: record has %d of 3 gyroscope axes", ErrMalformed, n)
	}

	switch n := countSet(rec.Roll, rec.Pitch); n {
	case 0:
	case 2:
		r.Orientation = &Orientation{Roll: *rec.Roll, Pitch: *rec.Pitch}
	default:
		return Reading{}, fmt.Errorf("%w: record orientation incomplete", ErrMalformed)
	}
	return r, nil
}

// RecordFromReading flattens r for the historical endpoint.
func RecordFromReading(r Reading) Record {
	rec := Record{
		Timestamp:   r.Timestamp,
		AccX:        Float(r.Accelerometer.X),
		AccY:        Float(r.Accelerometer.Y),
		AccZ:        Float(r.Accelerometer.Z),
		Temperature: r.Temperature,
	}
	if r.Gyroscope != nil {
		rec.GyroX = Float(r.Gyroscope.X)
		rec.GyroY = Float(r.Gyroscope.Y)
		rec.GyroZ = Float(r.Gyroscope.Z)
	}
	if r.Orientation != nil {
		rec.Roll = Float(r.Orientation.Roll)
		rec.Pitch = Float(r.Orientation.Pitch)
	}
	return rec
}

// Set fills the field of ch with v.
func (rec *Record) Set(ch Channel, v float64) {
	switch ch {
	case AccX:
		rec.AccX = Float(v)
	case AccY:
		rec.AccY = Float(v)
	case AccZ:
		rec.AccZ = Float(v)
	case GyroX:
		rec.GyroX = Float(v)
	case GyroY:
		rec.GyroY = Float(v)
	case GyroZ:
		rec.GyroZ = Float(v)
	case Roll:
		rec.Roll = Float(v)
	case Pitch:
		rec.Pitch = Float(v)
	case Temperature:
		rec.Temperature = Float(v)
	}
}

func countSet(vs ...*float64) int {
	n := 0
	for _, v := range vs {
		if v != nil {
			n++
		}
	}
	return n
}
