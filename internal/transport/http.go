// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/imu_dashboard/internal/telemetry"
)

// ErrRemote is returned when an endpoint answers with an {"error": ...} body.
var ErrRemote = errors.New("remote error")

const maxBody = 1 << 20

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

// Client pulls from the producer's current-reading and history endpoints.
type Client struct {
	base string
	http *http.Client
	clk  clock.Clock
	log  Logger
}

// NewClient returns a client for the producer at baseURL. Every request is
// bounded by timeout. clk stamps readings that arrive without a timestamp;
// nil clk and logger fall back to the wall clock and the standard logger.
func NewClient(baseURL string, timeout time.Duration, clk clock.Clock, logger Logger) *Client {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		base: baseURL,
		http: &http.Client{Timeout: timeout},
		clk:  clk,
		log:  logger,
	}
}

// Current fetches the latest reading.
func (c *Client) Current(ctx context.Context) (telemetry.Reading, error) {
	body, err := c.get(ctx, "/api/current")
	if err != nil {
		return telemetry.Reading{}, err
	}
	if err := remoteError(body); err != nil {
		return telemetry.Reading{}, err
	}
	r, err := telemetry.DecodeReading(body, c.clk.Now())
	if err != nil {
		return telemetry.Reading{}, fmt.Errorf("current reading: %w", err)
	}
	return r, nil
}

// History fetches recent records. Records that do not convert are skipped,
// the rest are returned in server order.
func (c *Client) History(ctx context.Context) ([]telemetry.Reading, error) {
	body, err := c.get(ctx, "/api/history")
	if err != nil {
		return nil, err
	}
	if err := remoteError(body); err != nil {
		return nil, err
	}

	var records []telemetry.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("history: %w: %v", telemetry.ErrMalformed, err)
	}
	out := make([]telemetry.Reading, 0, len(records))
	for _, rec := range records {
		r, err := rec.Reading()
		if err != nil {
			c.log.Printf("transport: skipping history record: %v", err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", path, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		if err := remoteError(body); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("GET %s: unexpected status %s", path, resp.Status)
	}
	return body, nil
}

// remoteError reports an {"error": "..."} payload as ErrRemote.
func remoteError(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(trimmed, &e) != nil || e.Error == "" {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrRemote, e.Error)
}
