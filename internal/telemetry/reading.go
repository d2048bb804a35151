// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"errors"
	"time"
)

// ErrMalformed marks a reading or record that is missing a required field.
// Wrap it with fmt.Errorf to say which field.
var ErrMalformed = errors.New("malformed reading")

// Vector3 is a three-axis sample (accelerometer in g, gyroscope in °/s).
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Orientation holds tilt angles in degrees.
type Orientation struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// Reading is a single timestamped sensor sample. Optional parts are nil when the
// producing variant does not report them.
type Reading struct {
	Timestamp     time.Time
	Accelerometer Vector3
	Gyroscope     *Vector3
	Orientation   *Orientation
	Temperature   *float64
}

// Value returns the scalar for ch and whether the reading carries it.
func (r Reading) Value(ch Channel) (float64, bool) {
	switch ch {
	case AccX:
		return r.Accelerometer.X, true
	case AccY:
		return r.Accelerometer.Y, true
	case AccZ:
		return r.Accelerometer.Z, true
	case GyroX, GyroY, GyroZ:
		if r.Gyroscope == nil {
			return 0, false
		}
		switch ch {
		case GyroX:
			return r.Gyroscope.X, true
		case GyroY:
			return r.Gyroscope.Y, true
		}
		return r.Gyroscope.Z, true
	case Roll:
		if r.Orientation == nil {
			return 0, false
		}
		return r.Orientation.Roll, true
	case Pitch:
		if r.Orientation == nil {
			return 0, false
		}
		return r.Orientation.Pitch, true
	case Temperature:
		if r.Temperature == nil {
			return 0, false
		}
		return *r.Temperature, true
	}
	return 0, false
}

// Has reports whether every channel in chs is present.
func (r Reading) Has(chs []Channel) bool {
	for _, ch := range chs {
		if _, ok := r.Value(ch); !ok {
			return false
		}
	}
	return true
}

// Channels lists the channels r carries, in full-variant display order.
func (r Reading) Channels() []Channel {
	var chs []Channel
	for ch := AccX; ch <= Temperature; ch++ {
		if _, ok := r.Value(ch); ok {
			chs = append(chs, ch)
		}
	}
	return chs
}

// Float returns a pointer to v, for filling optional fields.
func Float(v float64) *float64 {
	return &v
}
