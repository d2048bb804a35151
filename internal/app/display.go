// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"log"
	"time"

	"github.com/relabs-tech/imu_dashboard/internal/config"
	"github.com/relabs-tech/imu_dashboard/internal/sink"
)

// RunDisplay mirrors the dashboard on the SSD1306 panel, redrawing at most
// every DISPLAY_UPDATE_INTERVAL.
func RunDisplay(ctx context.Context) error {
	cfg := config.Get()

	oled, err := sink.OpenOLED(cfg.DisplayI2CBus)
	if err != nil {
		return err
	}
	defer oled.Close()

	latest := sink.NewLatest(oled)
	_, closeSource, err := startSession(ctx, cfg, cfg.MQTTClientIDDisplay, latest)
	if err != nil {
		return err
	}
	defer closeSource()

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for {
		select {
		case <-ctx.Done():
			log.Println("display: shutting down")
			return nil
		case <-ticker.C:
			if err := latest.Flush(); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}
