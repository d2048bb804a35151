// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/relabs-tech/imu_dashboard/internal/telemetry"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDWeb      string
	MQTTClientIDConsole  string
	MQTTClientIDDisplay  string

	// Topics
	TopicReadings string

	// Dashboard
	APIBaseURL        string // where /api/current and /api/history live
	Variant           telemetry.Variant
	HistoryCapacity   int
	WarnAfterMS       int
	DisconnectAfterMS int
	LivenessTickMS    int
	FetchTimeoutMS    int

	// Web Server
	WebServerPort           int
	ProducerPort            int
	ProducerHistoryCapacity int
	ChartWidth              int
	ChartHeight             int

	// IMU Hardware
	IMUBus       string // "i2c" (MPU6050) or "spi" (MPU9250)
	IMUI2CBus    string
	IMUI2CAddr   uint16
	IMUSPIDevice string
	IMUCSPin     string
	BMPSPIDevice string // optional; overrides the IMU die temperature
	UseMock      bool

	// Timing
	IMUSampleInterval int // milliseconds

	// Display
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds
}

// defaults for every key the file may set. A key missing here is unknown.
var defaults = map[string]any{
	"MQTT_BROKER":             "tcp://localhost:1883",
	"MQTT_CLIENT_ID_PRODUCER": "imu-dashboard-producer",
	"MQTT_CLIENT_ID_WEB":      "imu-dashboard-web",
	"MQTT_CLIENT_ID_CONSOLE":  "imu-dashboard-console",
	"MQTT_CLIENT_ID_DISPLAY":  "imu-dashboard-display",

	"TOPIC_READINGS": "imu/readings",

	"API_BASE_URL":        "http://localhost:5000",
	"VARIANT":             string(telemetry.VariantFull),
	"HISTORY_CAPACITY":    100,
	"WARN_AFTER_MS":       5000,
	"DISCONNECT_AFTER_MS": 15000,
	"LIVENESS_TICK_MS":    1000,
	"FETCH_TIMEOUT_MS":    3000,

	"WEB_SERVER_PORT":           8080,
	"PRODUCER_PORT":             5000,
	"PRODUCER_HISTORY_CAPACITY": 20,
	"CHART_WIDTH":               960,
	"CHART_HEIGHT":              360,

	"IMU_BUS":        "i2c",
	"IMU_I2C_BUS":    "1",
	"IMU_I2C_ADDR":   "0x68",
	"IMU_SPI_DEVICE": "/dev/spidev0.0",
	"IMU_CS_PIN":     "",
	"BMP_SPI_DEVICE": "",
	"USE_MOCK":       false,

	"IMU_SAMPLE_INTERVAL": 100,

	"DISPLAY_I2C_BUS":         "1",
	"DISPLAY_UPDATE_INTERVAL": 250,
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through Get().
//   - configOnce: InitGlobal() only loads once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the KEY=VALUE configuration file and returns a Config struct.
// Environment variables with the same key override the file. An empty path
// means defaults plus environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		for _, key := range v.AllKeys() {
			if _, ok := defaults[strings.ToUpper(key)]; !ok {
				return nil, fmt.Errorf("unknown config key: %q", strings.ToUpper(key))
			}
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	addr, err := parseAddr(v.GetString("IMU_I2C_ADDR"))
	if err != nil {
		return nil, fmt.Errorf("invalid IMU_I2C_ADDR %q: %w", v.GetString("IMU_I2C_ADDR"), err)
	}

	cfg := &Config{
		MQTTBroker:           v.GetString("MQTT_BROKER"),
		MQTTClientIDProducer: v.GetString("MQTT_CLIENT_ID_PRODUCER"),
		MQTTClientIDWeb:      v.GetString("MQTT_CLIENT_ID_WEB"),
		MQTTClientIDConsole:  v.GetString("MQTT_CLIENT_ID_CONSOLE"),
		MQTTClientIDDisplay:  v.GetString("MQTT_CLIENT_ID_DISPLAY"),

		TopicReadings: v.GetString("TOPIC_READINGS"),

		APIBaseURL:        strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		Variant:           telemetry.Variant(strings.ToLower(v.GetString("VARIANT"))),
		HistoryCapacity:   v.GetInt("HISTORY_CAPACITY"),
		WarnAfterMS:       v.GetInt("WARN_AFTER_MS"),
		DisconnectAfterMS: v.GetInt("DISCONNECT_AFTER_MS"),
		LivenessTickMS:    v.GetInt("LIVENESS_TICK_MS"),
		FetchTimeoutMS:    v.GetInt("FETCH_TIMEOUT_MS"),

		WebServerPort:           v.GetInt("WEB_SERVER_PORT"),
		ProducerPort:            v.GetInt("PRODUCER_PORT"),
		ProducerHistoryCapacity: v.GetInt("PRODUCER_HISTORY_CAPACITY"),
		ChartWidth:              v.GetInt("CHART_WIDTH"),
		ChartHeight:             v.GetInt("CHART_HEIGHT"),

		IMUBus:       strings.ToLower(v.GetString("IMU_BUS")),
		IMUI2CBus:    v.GetString("IMU_I2C_BUS"),
		IMUI2CAddr:   addr,
		IMUSPIDevice: v.GetString("IMU_SPI_DEVICE"),
		IMUCSPin:     v.GetString("IMU_CS_PIN"),
		BMPSPIDevice: v.GetString("BMP_SPI_DEVICE"),
		UseMock:      v.GetBool("USE_MOCK"),

		IMUSampleInterval: v.GetInt("IMU_SAMPLE_INTERVAL"),

		DisplayI2CBus:         v.GetString("DISPLAY_I2C_BUS"),
		DisplayUpdateInterval: v.GetInt("DISPLAY_UPDATE_INTERVAL"),
	}
	return cfg, nil
}

func parseAddr(s string) (uint16, error) {
	var addr uint16
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		_, err := fmt.Sscanf(s[2:], "%x", &addr)
		return addr, err
	}
	_, err := fmt.Sscanf(s, "%d", &addr)
	return addr, err
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicReadings == "" {
		return fmt.Errorf("TOPIC_READINGS is required")
	}
	if _, err := c.Variant.Channels(); err != nil {
		return fmt.Errorf("VARIANT: %w", err)
	}
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("HISTORY_CAPACITY must be positive, got %d", c.HistoryCapacity)
	}
	if c.ProducerHistoryCapacity <= 0 {
		return fmt.Errorf("PRODUCER_HISTORY_CAPACITY must be positive, got %d", c.ProducerHistoryCapacity)
	}
	if c.WarnAfterMS <= 0 || c.DisconnectAfterMS <= c.WarnAfterMS {
		return fmt.Errorf("DISCONNECT_AFTER_MS (%d) must exceed WARN_AFTER_MS (%d) > 0", c.DisconnectAfterMS, c.WarnAfterMS)
	}
	if c.LivenessTickMS <= 0 {
		return fmt.Errorf("LIVENESS_TICK_MS must be positive, got %d", c.LivenessTickMS)
	}
	if c.FetchTimeoutMS <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_MS must be positive, got %d", c.FetchTimeoutMS)
	}
	if c.IMUBus != "i2c" && c.IMUBus != "spi" {
		return fmt.Errorf("IMU_BUS must be i2c or spi, got %q", c.IMUBus)
	}
	if c.IMUSampleInterval <= 0 {
		return fmt.Errorf("IMU_SAMPLE_INTERVAL must be positive, got %d", c.IMUSampleInterval)
	}
	return nil
}

// WarnAfter is the degraded threshold as a duration.
func (c *Config) WarnAfter() time.Duration {
	return time.Duration(c.WarnAfterMS) * time.Millisecond
}

// DisconnectAfter is the disconnected threshold as a duration.
func (c *Config) DisconnectAfter() time.Duration {
	return time.Duration(c.DisconnectAfterMS) * time.Millisecond
}

// LivenessTick is how often the liveness monitor checks.
func (c *Config) LivenessTick() time.Duration {
	return time.Duration(c.LivenessTickMS) * time.Millisecond
}

// FetchTimeout bounds each pull request.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
