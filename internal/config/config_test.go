// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/relabs-tech/imu_dashboard/internal/telemetry"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dashboard_config.txt")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TopicReadings != "imu/readings" {
		t.Fatalf("expected default topic; got %q", cfg.TopicReadings)
	}
	if cfg.HistoryCapacity != 100 {
		t.Fatalf("expected capacity 100; got %d", cfg.HistoryCapacity)
	}
	if cfg.WarnAfter() != 5*time.Second || cfg.DisconnectAfter() != 15*time.Second {
		t.Fatalf("unexpected thresholds %v / %v", cfg.WarnAfter(), cfg.DisconnectAfter())
	}
	if cfg.IMUI2CAddr != 0x68 {
		t.Fatalf("expected 0x68; got %#x", cfg.IMUI2CAddr)
	}
	if cfg.Variant != telemetry.VariantFull {
		t.Fatalf("expected full variant; got %q", cfg.Variant)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"# dashboard settings",
		"MQTT_BROKER=tcp://broker.local:1883",
		"TOPIC_READINGS=lab/imu",
		"VARIANT=simple",
		"HISTORY_CAPACITY=50",
		"IMU_I2C_ADDR=0x69",
		"API_BASE_URL=http://pi.local:5000/",
		"USE_MOCK=true",
	}, "\n"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MQTTBroker != "tcp://broker.local:1883" {
		t.Fatalf("broker: got %q", cfg.MQTTBroker)
	}
	if cfg.TopicReadings != "lab/imu" {
		t.Fatalf("topic: got %q", cfg.TopicReadings)
	}
	if cfg.Variant != telemetry.VariantSimple {
		t.Fatalf("variant: got %q", cfg.Variant)
	}
	if cfg.HistoryCapacity != 50 {
		t.Fatalf("capacity: got %d", cfg.HistoryCapacity)
	}
	if cfg.IMUI2CAddr != 0x69 {
		t.Fatalf("addr: got %#x", cfg.IMUI2CAddr)
	}
	if cfg.APIBaseURL != "http://pi.local:5000" {
		t.Fatalf("expected trailing slash trimmed; got %q", cfg.APIBaseURL)
	}
	if !cfg.UseMock {
		t.Fatalf("expected USE_MOCK=true")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "TOPIC_READINGS=from/file\n")
	t.Setenv("TOPIC_READINGS", "from/env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TopicReadings != "from/env" {
		t.Fatalf("expected env override; got %q", cfg.TopicReadings)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":        "NOT_A_KEY=1\n",
		"bad variant":        "VARIANT=fancy\n",
		"zero capacity":      "HISTORY_CAPACITY=0\n",
		"thresholds swapped": "WARN_AFTER_MS=20000\nDISCONNECT_AFTER_MS=10000\n",
		"bad bus":            "IMU_BUS=uart\n",
		"bad address":        "IMU_I2C_ADDR=0xzz\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error for %q", body)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
