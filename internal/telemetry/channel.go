// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import "fmt"

// Channel identifies one scalar stream of a Reading.
type Channel int

const (
	AccX Channel = iota
	AccY
	AccZ
	GyroX
	GyroY
	GyroZ
	Roll
	Pitch
	Temperature
)

type channelInfo struct {
	key   string
	label string
	unit  string
	// max is the nominal magnitude used for bar gauges; 0 means no gauge.
	max float64
}

var channels = [...]channelInfo{
	AccX:        {"acc_x", "Accel X", "g", 2},
	AccY:        {"acc_y", "Accel Y", "g", 2},
	AccZ:        {"acc_z", "Accel Z", "g", 2},
	GyroX:       {"gyro_x", "Gyro X", "°/s", 250},
	GyroY:       {"gyro_y", "Gyro Y", "°/s", 250},
	GyroZ:       {"gyro_z", "Gyro Z", "°/s", 250},
	Roll:        {"roll", "Roll", "°", 0},
	Pitch:       {"pitch", "Pitch", "°", 0},
	Temperature: {"temperature", "Temperature", "°C", 0},
}

func (c Channel) valid() bool {
	return c >= AccX && c <= Temperature
}

// Key is the flat record field name, e.g. "acc_x".
func (c Channel) Key() string {
	if !c.valid() {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channels[c].key
}

func (c Channel) String() string { return c.Key() }

// Label is the human readable series name.
func (c Channel) Label() string {
	if !c.valid() {
		return c.Key()
	}
	return channels[c].label
}

// Unit of the channel values.
func (c Channel) Unit() string {
	if !c.valid() {
		return ""
	}
	return channels[c].unit
}

// MaxMagnitude is the nominal range used to scale bar gauges. Channels without
// a gauge return 0.
func (c Channel) MaxMagnitude() float64 {
	if !c.valid() {
		return 0
	}
	return channels[c].max
}

// Variant is the set of channels a deployment tracks.
type Variant string

const (
	VariantSimple Variant = "simple"
	VariantFull   Variant = "full"
)

// Channels returns the tracked channels of v in display order.
func (v Variant) Channels() ([]Channel, error) {
	switch v {
	case VariantSimple:
		return []Channel{AccX, AccY, AccZ}, nil
	case VariantFull:
		return []Channel{AccX, AccY, AccZ, GyroX, GyroY, GyroZ, Roll, Pitch, Temperature}, nil
	}
	return nil, fmt.Errorf("unknown variant %q (want %q or %q)", string(v), VariantSimple, VariantFull)
}
