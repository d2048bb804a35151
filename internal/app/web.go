// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/relabs-tech/imu_dashboard/internal/config"
	"github.com/relabs-tech/imu_dashboard/internal/dashboard"
	"github.com/relabs-tech/imu_dashboard/internal/liveness"
	"github.com/relabs-tech/imu_dashboard/internal/sink"
	"github.com/relabs-tech/imu_dashboard/internal/transport"
)

// sessionConfig maps the file configuration onto a dashboard session.
func sessionConfig(cfg *config.Config) dashboard.Config {
	lc := liveness.DefaultConfig()
	lc.WarnAfter = cfg.WarnAfter()
	lc.DisconnectAfter = cfg.DisconnectAfter()
	lc.TickInterval = cfg.LivenessTick()
	return dashboard.Config{
		Variant:         cfg.Variant,
		HistoryCapacity: cfg.HistoryCapacity,
		Liveness:        lc,
		FetchTimeout:    cfg.FetchTimeout(),
	}
}

// startSession wires the MQTT push channel and the pull client into a new
// session rendering to sinks, and runs it until ctx is done.
func startSession(ctx context.Context, cfg *config.Config, clientID string, sinks ...sink.Sink) (*dashboard.Session, func(), error) {
	src := transport.NewMQTTSource(cfg.MQTTBroker, clientID, cfg.TopicReadings, nil)
	client := transport.NewClient(cfg.APIBaseURL, cfg.FetchTimeout(), nil, nil)

	session, err := dashboard.NewSession(sessionConfig(cfg), dashboard.Deps{
		Source:  src,
		Fetcher: client,
		Sinks:   sinks,
	})
	if err != nil {
		return nil, nil, err
	}
	go session.Run(ctx)

	if err := src.Connect(); err != nil {
		return nil, nil, err
	}
	log.Printf("session %s: connecting to MQTT broker at %s, topic %s", session.ID(), cfg.MQTTBroker, cfg.TopicReadings)
	return session, src.Close, nil
}

// webHandler serves the dashboard: websocket frames, chart image, snapshot
// and load-more APIs, and the static page from ./web.
func webHandler(session *dashboard.Session, hub *sink.Hub, chart *sink.ChartRenderer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("/chart.png", chart)

	// JSON API endpoint: latest frame
	mux.HandleFunc("/api/snapshot", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, session.Frame())
	})

	mux.HandleFunc("/api/load-more", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		session.LoadMore()
		w.WriteHeader(http.StatusAccepted)
	})

	// Static files from ./web as the root
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

func RunWeb(ctx context.Context) error {
	cfg := config.Get()

	hub := sink.NewHub()
	go hub.Run(ctx)
	chart := sink.NewChartRenderer(cfg.ChartWidth, cfg.ChartHeight, "g")

	session, closeSource, err := startSession(ctx, cfg, cfg.MQTTClientIDWeb, hub, chart)
	if err != nil {
		return err
	}
	defer closeSource()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: webHandler(session, hub, chart),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("web server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
