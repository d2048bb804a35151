// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package present maps readings and history into display primitives. Every
// function here is pure.
package present

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ErrInvalidMagnitude is returned for a non-positive gauge range. It means the
// gauge is misconfigured, not that the data is bad.
var ErrInvalidMagnitude = errors.New("gauge magnitude must be positive")

// ScaleToPercent maps value in [-maxMagnitude, maxMagnitude] linearly onto
// [0, 100]. Values outside the range saturate.
func ScaleToPercent(value, maxMagnitude float64) (float64, error) {
	if !(maxMagnitude > 0) || math.IsInf(maxMagnitude, 1) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidMagnitude, maxMagnitude)
	}
	if math.IsNaN(value) {
		return 50, nil
	}
	pct := (value + maxMagnitude) / (2 * maxMagnitude) * 100
	return math.Min(math.Max(pct, 0), 100), nil
}

// MustScaleToPercent is ScaleToPercent for gauges whose range is a constant.
// It panics on a bad range.
func MustScaleToPercent(value, maxMagnitude float64) float64 {
	pct, err := ScaleToPercent(value, maxMagnitude)
	if err != nil {
		panic(err)
	}
	return pct
}

// FormatScalar prints value with a fixed number of decimals. Halves round away
// from zero (2.5 -> "3", -0.0005 -> "-0.001"), and a result that rounds to zero
// prints without a sign.
func FormatScalar(value float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	rounded := roundHalfAway(value, decimals)
	if rounded == 0 {
		rounded = 0 // drop negative zero
	}
	return strconv.FormatFloat(rounded, 'f', decimals, 64)
}

// roundHalfAway rounds on the shortest decimal representation of value, so that
// 1.0005 (stored as 1.000499999...) still counts as a half.
func roundHalfAway(value float64, decimals int) float64 {
	s := strconv.FormatFloat(value, 'f', -1, 64)
	digits, neg := s, false
	if digits[0] == '-' {
		neg, digits = true, digits[1:]
	}
	intPart, frac := digits, ""
	for i := 0; i < len(digits); i++ {
		if digits[i] == '.' {
			intPart, frac = digits[:i], digits[i+1:]
			break
		}
	}
	if len(frac) <= decimals {
		return value
	}
	keep := intPart + frac[:decimals]
	n, err := strconv.ParseFloat(keep, 64)
	if err != nil {
		return math.Round(value*math.Pow10(decimals)) / math.Pow10(decimals)
	}
	if frac[decimals] >= '5' {
		n++
	}
	out := n / math.Pow10(decimals)
	if neg {
		out = -out
	}
	return out
}

// RelativeTimeLabel describes how long ago past was, seen from now. Buckets
// are half open: below one second is "just now", then whole seconds, minutes,
// and hours, each floored. The plural form is always used.
func RelativeTimeLabel(past, now time.Time) string {
	d := now.Sub(past)
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%d seconds ago", int64(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int64(d/time.Minute))
	}
	return fmt.Sprintf("%d hours ago", int64(d/time.Hour))
}
