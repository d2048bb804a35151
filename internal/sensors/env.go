// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/imu_dashboard/internal/env"
)

// BMP is a BMP280/BME280 on SPI, used for the temperature channel.
type BMP struct {
	dev  *bmxx80.Dev
	port spi.PortCloser
}

// OpenBMP initializes the sensor on spiDevice (e.g. "/dev/spidev0.1").
func OpenBMP(spiDevice string) (*BMP, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	port, err := spireg.Open(spiDevice)
	if err != nil {
		return nil, fmt.Errorf("BMP SPI open %s: %w", spiDevice, err)
	}

	dev, err := bmxx80.NewSPI(port, &bmxx80.DefaultOpts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("BMP init: %w", err)
	}

	log.Printf("BMP: initialized on %s", spiDevice)
	return &BMP{dev: dev, port: port}, nil
}

// ReadEnv reads temperature and pressure.
func (b *BMP) ReadEnv() (env.Sample, error) {
	var e physic.Env
	if err := b.dev.Sense(&e); err != nil {
		return env.Sample{}, fmt.Errorf("BMP sense: %w", err)
	}

	return env.Sample{
		Source:      "bmp",
		Temperature: e.Temperature.Celsius(),
		Pressure:    float64(e.Pressure) / float64(physic.Pascal),
	}, nil
}

// Close halts the sensor and releases the port.
func (b *BMP) Close() error {
	if err := b.dev.Halt(); err != nil {
		log.Printf("BMP: halt: %v", err)
	}
	return b.port.Close()
}
