// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/imu_dashboard/internal/imu"
)

// MPU9250 reads accelerometer and gyroscope over SPI through the periph
// driver. It has no temperature channel; pair it with a BMP for one.
type MPU9250 struct {
	imu *mpu9250.MPU9250
}

// OpenMPU9250 initializes the sensor on spiDev with chip select csPin,
// self-tests and calibrates it.
func OpenMPU9250(spiDev, csPin string) (*MPU9250, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("MPU9250: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("MPU9250: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("MPU9250: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("MPU9250: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("MPU9250: initialization: %w", err)
	}

	// Self-test
	if _, err := dev.SelfTest(); err != nil {
		log.Printf("Warning: MPU9250 self-test failed: %v", err)
	} else {
		log.Printf("MPU9250 self-test passed")
	}

	// Calibration
	if err := dev.Calibrate(); err != nil {
		log.Printf("Warning: MPU9250 calibration failed: %v", err)
	} else {
		log.Printf("MPU9250 calibration complete")
	}

	// Scale factors in imu assume the ±2g and ±250°/s ranges.
	if err := dev.SetAccelRange(0); err != nil {
		return nil, fmt.Errorf("MPU9250: set accel range: %w", err)
	}
	if err := dev.SetGyroRange(0); err != nil {
		return nil, fmt.Errorf("MPU9250: set gyro range: %w", err)
	}

	return &MPU9250{imu: dev}, nil
}

// NextRaw reads accelerometer and gyroscope data.
func (s *MPU9250) NextRaw() (imu.IMURaw, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("MPU9250 accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("MPU9250 accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("MPU9250 accel Z: %w", err)
	}

	gx, err := s.imu.GetRotationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("MPU9250 gyro X: %w", err)
	}
	gy, err := s.imu.GetRotationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("MPU9250 gyro Y: %w", err)
	}
	gz, err := s.imu.GetRotationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("MPU9250 gyro Z: %w", err)
	}

	return imu.IMURaw{
		Source: "mpu9250",
		Ax:     ax,
		Ay:     ay,
		Az:     az,
		Gx:     gx,
		Gy:     gy,
		Gz:     gz,
	}, nil
}
