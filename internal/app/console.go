// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/relabs-tech/imu_dashboard/internal/config"
	"github.com/relabs-tech/imu_dashboard/internal/sink"
)

// consoleLogFile receives log output while termui owns the terminal.
const consoleLogFile = "imu_console.log"

// RunConsole shows the dashboard in the terminal until ctx is done or the
// user presses q.
func RunConsole(ctx context.Context) error {
	cfg := config.Get()

	f, err := os.OpenFile(consoleLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open console log: %w", err)
	}
	defer f.Close()
	prev := log.Writer()
	log.SetOutput(f)
	defer log.SetOutput(prev)

	term, err := sink.NewTerminal()
	if err != nil {
		return err
	}
	defer term.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	_, closeSource, err := startSession(ctx, cfg, cfg.MQTTClientIDConsole, term)
	if err != nil {
		return err
	}
	defer closeSource()

	if term.Run(ctx) {
		log.Println("console: quit requested")
	}
	log.Println("console: shutting down")
	return nil
}
