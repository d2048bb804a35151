// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

const addr = 0x68

func initOps() []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: addr, W: []byte{regWhoAmI}, R: []byte{mpu6050ID}},
		{Addr: addr, W: []byte{regPwrMgmt1, 0x00}},
		{Addr: addr, W: []byte{regAccelConfig, rangeDefault}},
		{Addr: addr, W: []byte{regGyroConfig, rangeDefault}},
	}
}

func TestMPU6050_InitAndRead(t *testing.T) {
	burst := []byte{
		0x40, 0x00, // ax = 16384 (1g)
		0xC0, 0x00, // ay = -16384
		0x00, 0x00, // az = 0
		0x00, 0x00, // temp = 0
		0x00, 0x83, // gx = 131 (1°/s)
		0xFF, 0x7D, // gy = -131
		0x00, 0x00, // gz = 0
	}
	bus := &i2ctest.Playback{
		Ops: append(initOps(), i2ctest.IO{Addr: addr, W: []byte{regAccelXOutH}, R: burst}),
	}
	defer func() {
		if err := bus.Close(); err != nil {
			t.Fatalf("unconsumed bus operations: %v", err)
		}
	}()

	m, err := NewMPU6050(bus, addr)
	if err != nil {
		t.Fatalf("NewMPU6050: %v", err)
	}
	raw, err := m.NextRaw()
	if err != nil {
		t.Fatalf("NextRaw: %v", err)
	}

	if raw.Ax != 16384 || raw.Ay != -16384 || raw.Az != 0 {
		t.Fatalf("unexpected accel words %+v", raw)
	}
	if raw.Gx != 131 || raw.Gy != -131 {
		t.Fatalf("unexpected gyro words %+v", raw)
	}
	acc := raw.Accel()
	if acc.X != 1 || acc.Y != -1 {
		t.Fatalf("expected ±1g; got %+v", acc)
	}
	if g := raw.Gyro(); g.X != 1 || g.Y != -1 {
		t.Fatalf("expected ±1°/s; got %+v", g)
	}
	temp, ok := raw.Temperature()
	if !ok || temp != 36.53 {
		t.Fatalf("expected 36.53°C from a zero register; got %v %v", temp, ok)
	}
}

func TestMPU6050_WhoAmIFailure(t *testing.T) {
	bus := &i2ctest.Playback{DontPanic: true}
	if _, err := NewMPU6050(bus, addr); err == nil {
		t.Fatalf("expected error when the sensor does not answer")
	}
}
