// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/relabs-tech/imu_dashboard/internal/config"
	"github.com/relabs-tech/imu_dashboard/internal/imu"
)

// OpenIMU opens the sensor selected by IMU_BUS: an MPU6050 on I2C or an
// MPU9250 on SPI.
func OpenIMU(cfg *config.Config) (imu.IMURawSource, error) {
	switch cfg.IMUBus {
	case "i2c":
		return OpenMPU6050(cfg.IMUI2CBus, cfg.IMUI2CAddr)
	case "spi":
		if cfg.IMUCSPin == "" {
			return nil, fmt.Errorf("IMU_CS_PIN is required for an SPI IMU")
		}
		return OpenMPU9250(cfg.IMUSPIDevice, cfg.IMUCSPin)
	}
	return nil, fmt.Errorf("unknown IMU bus %q", cfg.IMUBus)
}
