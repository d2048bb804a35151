// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/binary"
	"fmt"
	"log"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/imu_dashboard/internal/imu"
)

// MPU6050 register map (subset).
const (
	regGyroConfig  = 0x1B
	regAccelConfig = 0x1C
	regAccelXOutH  = 0x3B // ax, ay, az, temp, gx, gy, gz: 7 big-endian words
	regPwrMgmt1    = 0x6B
	regWhoAmI      = 0x75

	mpu6050ID    = 0x68
	burstLength  = 14
	rangeDefault = 0x00 // ±2g, ±250°/s
)

// MPU6050 reads an MPU6050 with raw register transfers on I2C.
type MPU6050 struct {
	dev *i2c.Dev
	bus i2c.BusCloser
}

// OpenMPU6050 initializes periph, opens busName and wakes the sensor at addr.
func OpenMPU6050(busName string, addr uint16) (*MPU6050, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("MPU6050: open I2C bus %q: %w", busName, err)
	}
	m, err := NewMPU6050(bus, addr)
	if err != nil {
		bus.Close()
		return nil, err
	}
	m.bus = bus
	return m, nil
}

// NewMPU6050 wakes the sensor at addr on bus and selects the ±2g and ±250°/s
// ranges.
func NewMPU6050(bus i2c.Bus, addr uint16) (*MPU6050, error) {
	m := &MPU6050{dev: &i2c.Dev{Bus: bus, Addr: addr}}

	id := make([]byte, 1)
	if err := m.dev.Tx([]byte{regWhoAmI}, id); err != nil {
		return nil, fmt.Errorf("MPU6050: read WHO_AM_I: %w", err)
	}
	if id[0] != mpu6050ID {
		log.Printf("MPU6050: unexpected WHO_AM_I 0x%02X at 0x%02X, continuing", id[0], addr)
	}

	for _, w := range [][]byte{
		{regPwrMgmt1, 0x00}, // leave sleep, internal oscillator
		{regAccelConfig, rangeDefault},
		{regGyroConfig, rangeDefault},
	} {
		if err := m.dev.Tx(w, nil); err != nil {
			return nil, fmt.Errorf("MPU6050: write register 0x%02X: %w", w[0], err)
		}
	}

	log.Printf("MPU6050: initialized at 0x%02X", addr)
	return m, nil
}

// NextRaw reads one accelerometer, temperature and gyroscope burst.
func (m *MPU6050) NextRaw() (imu.IMURaw, error) {
	buf := make([]byte, burstLength)
	if err := m.dev.Tx([]byte{regAccelXOutH}, buf); err != nil {
		return imu.IMURaw{}, fmt.Errorf("MPU6050: burst read: %w", err)
	}
	word := func(i int) int16 { return int16(binary.BigEndian.Uint16(buf[2*i:])) }

	return imu.IMURaw{
		Source:  "mpu6050",
		Ax:      word(0),
		Ay:      word(1),
		Az:      word(2),
		Temp:    word(3),
		HasTemp: true,
		Gx:      word(4),
		Gy:      word(5),
		Gz:      word(6),
	}, nil
}

// Close releases the bus when the sensor opened it.
func (m *MPU6050) Close() error {
	if m.bus == nil {
		return nil
	}
	return m.bus.Close()
}
