// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"log"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/imu_dashboard/internal/env"
	"github.com/relabs-tech/imu_dashboard/internal/imu"
	"github.com/relabs-tech/imu_dashboard/internal/telemetry"
)

type imuSource struct {
	raw imu.IMURawSource
	env env.Source // optional
	clk clock.Clock
}

// NewIMUSource returns a Source that reads raw samples, scales them and
// derives roll and pitch from the accelerometer. When envSrc is set its
// temperature replaces the IMU die temperature.
func NewIMUSource(raw imu.IMURawSource, envSrc env.Source, clk clock.Clock) Source {
	if clk == nil {
		clk = clock.New()
	}
	return &imuSource{raw: raw, env: envSrc, clk: clk}
}

func (s *imuSource) Next() (telemetry.Reading, error) {
	raw, err := s.raw.NextRaw()
	if err != nil {
		return telemetry.Reading{}, fmt.Errorf("read IMU: %w", err)
	}

	acc := raw.Accel()
	gyro := raw.Gyro()
	tilt := FromAccel(acc.X, acc.Y, acc.Z)
	r := telemetry.Reading{
		Timestamp:     s.clk.Now(),
		Accelerometer: acc,
		Gyroscope:     &gyro,
		Orientation:   &tilt,
	}

	if t, ok := raw.Temperature(); ok {
		r.Temperature = telemetry.Float(t)
	}
	if s.env != nil {
		sample, err := s.env.ReadEnv()
		if err != nil {
			log.Printf("orientation: env read: %v", err)
		} else {
			r.Temperature = telemetry.Float(sample.Temperature)
		}
	}
	return Rounded(r), nil
}
