// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// wireReading is the JSON shape of a pushed reading and of the current-reading
// endpoint. Pointers distinguish an absent field from a zero value.
type wireReading struct {
	Timestamp     *float64    `json:"timestamp,omitempty"` // unix seconds
	Accelerometer *wireVector `json:"accelerometer,omitempty"`
	Gyroscope     *wireVector `json:"gyroscope,omitempty"`
	Orientation   *wireTilt   `json:"orientation,omitempty"`
	Temperature   *float64    `json:"temperature,omitempty"`
}

type wireVector struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type wireTilt struct {
	Roll  *float64 `json:"roll"`
	Pitch *float64 `json:"pitch"`
}

func (v *wireVector) vector(name string) (Vector3, error) {
	if v.X == nil || v.Y == nil || v.Z == nil {
		return Vector3{}, fmt.Errorf("%w: %s missing axis", ErrMalformed, name)
	}
	return Vector3{X: *v.X, Y: *v.Y, Z: *v.Z}, nil
}

// DecodeReading parses a pushed reading. The accelerometer is required; the other
// groups are optional but must be complete when present. A reading without a
// timestamp is stamped with receivedAt.
func DecodeReading(payload []byte, receivedAt time.Time) (Reading, error) {
	var w wireReading
	if err := json.Unmarshal(payload, &w); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return w.reading(receivedAt)
}

func (w wireReading) reading(receivedAt time.Time) (Reading, error) {
	if w.Accelerometer == nil {
		return Reading{}, fmt.Errorf("%w: accelerometer missing", ErrMalformed)
	}
	acc, err := w.Accelerometer.vector("accelerometer")
	if err != nil {
		return Reading{}, err
	}
	r := Reading{Timestamp: receivedAt, Accelerometer: acc}
	if w.Timestamp != nil && *w.Timestamp > 0 {
		r.Timestamp = unixSeconds(*w.Timestamp)
	}
	if w.Gyroscope != nil {
		g, err := w.Gyroscope.vector("gyroscope")
		if err != nil {
			return Reading{}, err
		}
		r.Gyroscope = &g
	}
	if w.Orientation != nil {
		if w.Orientation.Roll == nil || w.Orientation.Pitch == nil {
			return Reading{}, fmt.Errorf("%w: orientation incomplete", ErrMalformed)
		}
		r.Orientation = &Orientation{Roll: *w.Orientation.Roll, Pitch: *w.Orientation.Pitch}
	}
	if w.Temperature != nil {
		r.Temperature = Float(*w.Temperature)
	}
	return r, nil
}

// EncodeReading produces the push payload for r.
func EncodeReading(r Reading) ([]byte, error) {
	ts := float64(r.Timestamp.UnixNano()) / 1e9
	w := wireReading{
		Timestamp: &ts,
		Accelerometer: &wireVector{
			X: Float(r.Accelerometer.X),
			Y: Float(r.Accelerometer.Y),
			Z: Float(r.Accelerometer.Z),
		},
		Temperature: r.Temperature,
	}
	if r.Gyroscope != nil {
		w.Gyroscope = &wireVector{X: Float(r.Gyroscope.X), Y: Float(r.Gyroscope.Y), Z: Float(r.Gyroscope.Z)}
	}
	if r.Orientation != nil {
		w.Orientation = &wireTilt{Roll: Float(r.Orientation.Roll), Pitch: Float(r.Orientation.Pitch)}
	}
	return json.Marshal(w)
}

func unixSeconds(s float64) time.Time {
	sec, frac := math.Modf(s)
	// millisecond resolution is what producers send
	ms := math.Round(frac * 1000)
	return time.Unix(int64(sec), int64(ms)*int64(time.Millisecond))
}
