// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

// Sample represents a single environmental measurement (BMP).
type Sample struct {
	Source string `json:"source"`

	Temperature float64 `json:"temp_c"`      // °C
	Pressure    float64 `json:"pressure_pa"` // Pa
}

// Source reads environmental samples.
type Source interface {
	ReadEnv() (Sample, error)
}
