// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package history keeps a fixed-capacity sliding window of recent readings as
// parallel per-channel sequences.
package history

import (
	"fmt"
	"sort"
	"time"

	"github.com/relabs-tech/imu_dashboard/internal/telemetry"
)

// DefaultCapacity is the number of readings kept when none is configured.
const DefaultCapacity = 100

// Buffer holds one timestamp sequence plus one value sequence per tracked
// channel. All sequences always have the same length.
//
// Buffer is not safe for concurrent use; the owning session mutates it from a
// single goroutine.
type Buffer struct {
	capacity   int
	channels   []telemetry.Channel
	timestamps []time.Time
	values     [][]float64 // indexed like channels
}

// Snapshot is a copy of the buffer contents, oldest entry first.
type Snapshot struct {
	Channels   []telemetry.Channel
	Timestamps []time.Time
	Values     map[telemetry.Channel][]float64
}

// Len is the number of entries in the snapshot.
func (s Snapshot) Len() int { return len(s.Timestamps) }

// New creates an empty buffer tracking chs.
func New(capacity int, chs []telemetry.Channel) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("history capacity must be positive, got %d", capacity)
	}
	if len(chs) == 0 {
		return nil, fmt.Errorf("history needs at least one channel")
	}
	b := &Buffer{
		capacity:   capacity,
		channels:   append([]telemetry.Channel(nil), chs...),
		timestamps: make([]time.Time, 0, capacity+1),
		values:     make([][]float64, len(chs)),
	}
	for i := range b.values {
		b.values[i] = make([]float64, 0, capacity+1)
	}
	return b, nil
}

// Len returns the current number of entries.
func (b *Buffer) Len() int { return len(b.timestamps) }

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return b.capacity }

// Newest returns the timestamp of the latest entry, if any.
func (b *Buffer) Newest() (time.Time, bool) {
	if len(b.timestamps) == 0 {
		return time.Time{}, false
	}
	return b.timestamps[len(b.timestamps)-1], true
}

// Channels returns the tracked channels.
func (b *Buffer) Channels() []telemetry.Channel {
	return append([]telemetry.Channel(nil), b.channels...)
}

// Append pushes r onto the tail of every sequence and evicts the oldest entry
// once the capacity is exceeded. A reading that lacks a tracked channel is
// rejected and the buffer is left unchanged.
func (b *Buffer) Append(r telemetry.Reading) error {
	row, err := b.row(r)
	if err != nil {
		return err
	}
	b.timestamps = append(b.timestamps, r.Timestamp)
	for i, v := range row {
		b.values[i] = append(b.values[i], v)
	}
	if len(b.timestamps) > b.capacity {
		b.dropHead(1)
	}
	return nil
}

// Backfill merges historical readings in front of the live entries. Records are
// sorted by timestamp; only those strictly older than the oldest buffered entry
// are kept, so entries that arrived live are never replaced or reordered. When
// the result exceeds the capacity the oldest entries go. It returns how many
// records were applied.
func (b *Buffer) Backfill(records []telemetry.Reading) int {
	sorted := make([]telemetry.Reading, 0, len(records))
	for _, r := range records {
		if r.Has(b.channels) {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	if len(b.timestamps) > 0 {
		oldest := b.timestamps[0]
		n := sort.Search(len(sorted), func(i int) bool {
			return !sorted[i].Timestamp.Before(oldest)
		})
		sorted = sorted[:n]
	}
	sorted = dedupe(sorted)

	// only the newest free slots can survive the trim
	if room := b.capacity - len(b.timestamps); len(sorted) > room {
		if room <= 0 {
			return 0
		}
		sorted = sorted[len(sorted)-room:]
	}
	if len(sorted) == 0 {
		return 0
	}

	ts := make([]time.Time, 0, b.capacity+1)
	for _, r := range sorted {
		ts = append(ts, r.Timestamp)
	}
	b.timestamps = append(ts, b.timestamps...)
	for i, ch := range b.channels {
		vs := make([]float64, 0, b.capacity+1)
		for _, r := range sorted {
			v, _ := r.Value(ch)
			vs = append(vs, v)
		}
		b.values[i] = append(vs, b.values[i]...)
	}
	return len(sorted)
}

// Snapshot copies the current contents. Later appends never touch the copy.
func (b *Buffer) Snapshot() Snapshot {
	s := Snapshot{
		Channels:   b.Channels(),
		Timestamps: append([]time.Time(nil), b.timestamps...),
		Values:     make(map[telemetry.Channel][]float64, len(b.channels)),
	}
	for i, ch := range b.channels {
		s.Values[ch] = append([]float64(nil), b.values[i]...)
	}
	return s
}

func (b *Buffer) row(r telemetry.Reading) ([]float64, error) {
	row := make([]float64, len(b.channels))
	for i, ch := range b.channels {
		v, ok := r.Value(ch)
		if !ok {
			return nil, fmt.Errorf("%w: channel %s absent", telemetry.ErrMalformed, ch)
		}
		row[i] = v
	}
	return row, nil
}

// dropHead removes n entries from the head of every sequence in lock-step.
func (b *Buffer) dropHead(n int) {
	b.timestamps = append(b.timestamps[:0], b.timestamps[n:]...)
	for i := range b.values {
		b.values[i] = append(b.values[i][:0], b.values[i][n:]...)
	}
}

// dedupe drops consecutive records sharing a timestamp, keeping the first.
func dedupe(sorted []telemetry.Reading) []telemetry.Reading {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, r := range sorted[1:] {
		if !r.Timestamp.Equal(out[len(out)-1].Timestamp) {
			out = append(out, r)
		}
	}
	return out
}
