/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package session

import (
	"math"
	"time"

	"github.com/friendsincode/huginn_dj/internal/models"
)

// schedule computes the party phase and energy target for a moment in the
// set. Both depend only on elapsed time and the configured peak hour, so a
// selection can never push the arc around.
func schedule(startedAt, now time.Time, s Settings) (models.Phase, float64) {
	progress := sessionProgress(startedAt, now, s)
	hour := now.Hour()

	phase := phaseFor(progress, hour, s.PeakHour)
	return phase, energyTargetFor(phase, progress)
}

func sessionProgress(startedAt, now time.Time, s Settings) float64 {
	expected := time.Duration(s.SessionLengthMinutes) * time.Minute
	if expected <= 0 {
		return 1
	}
	progress := float64(now.Sub(startedAt)) / float64(expected)
	if progress < 0 {
		return 0
	}
	return progress
}

// phaseFor applies the set-arc rules: warm up early or before the peak
// window opens, peak through the window while the set is young enough,
// then cool down.
func phaseFor(progress float64, hour, peakHour int) models.Phase {
	if progress < 0.25 || beforeHour(hour, peakHour-1) {
		return models.PhaseWarmup
	}
	if progress < 0.75 && withinPeakWindow(hour, peakHour) {
		return models.PhasePeak
	}
	return models.PhaseCooldown
}

// beforeHour compares clock hours on a 24 hour circle. An hour counts as
// "before" when it sits less than 12 hours behind the reference, so a
// 23:00 peak with a 21:00 clock reads as before, not eighteen hours after.
func beforeHour(hour, reference int) bool {
	reference = ((reference % 24) + 24) % 24
	diff := ((reference - hour) % 24 + 24) % 24
	return diff != 0 && diff < 12
}

// withinPeakWindow reports whether hour falls in [peakHour-1, peakHour+2],
// wrapping around midnight.
func withinPeakWindow(hour, peakHour int) bool {
	for off := -1; off <= 2; off++ {
		if hour == ((peakHour+off)%24+24)%24 {
			return true
		}
	}
	return false
}

// energyTargetFor shapes the arc: a warmup ramp from 0.4 toward 0.7, a
// sine oscillation between 0.7 and 0.9 through the peak, and a linear
// decay toward 0.3 on the way out.
func energyTargetFor(phase models.Phase, progress float64) float64 {
	switch phase {
	case models.PhasePeak:
		return 0.8 + 0.1*math.Sin(2*math.Pi*progress)
	case models.PhaseCooldown:
		tail := math.Max(0, progress-0.75) / 0.25
		target := 0.7 - 0.4*tail
		return math.Max(0.3, target)
	default:
		ramp := math.Min(progress/0.25, 1)
		return 0.4 + 0.3*ramp
	}
}
