/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package session

import (
	"time"

	"github.com/friendsincode/huginn_dj/internal/models"
)

// Stats summarizes a set for dashboards and the closing archive entry.
type Stats struct {
	TracksPlayed   int                  `json:"tracks_played"`
	ElapsedMinutes float64              `json:"elapsed_minutes"`
	AverageEnergy  float64              `json:"average_energy"`
	KeyChanges     int                  `json:"key_changes"`
	Skips          int                  `json:"skips"`
	Phase          models.Phase         `json:"phase"`
	EnergyTarget   float64              `json:"energy_target"`
	PhaseCounts    map[models.Phase]int `json:"phase_counts"`
}

func computeStats(sess *SessionState, now time.Time) Stats {
	end := now
	if sess.EndedAt != nil {
		end = *sess.EndedAt
	}

	stats := Stats{
		TracksPlayed:   len(sess.History),
		ElapsedMinutes: end.Sub(sess.StartedAt).Minutes(),
		Skips:          sess.Skips,
		Phase:          sess.Phase,
		EnergyTarget:   sess.EnergyTarget,
		PhaseCounts:    make(map[models.Phase]int, len(sess.PhaseCounts)),
	}
	for phase, n := range sess.PhaseCounts {
		stats.PhaseCounts[phase] = n
	}

	if len(sess.History) > 0 {
		total := 0.0
		for _, track := range sess.History {
			total += track.Features.Energy
		}
		stats.AverageEnergy = total / float64(len(sess.History))
	}

	for i := 1; i < len(sess.History); i++ {
		prev, cur := sess.History[i-1].Features, sess.History[i].Features
		if prev.Key != cur.Key || prev.Mode != cur.Mode {
			stats.KeyChanges++
		}
	}
	return stats
}

// RecordStats summarizes a closed session record.
func RecordStats(record SessionState) Stats {
	end := time.Now()
	if record.EndedAt != nil {
		end = *record.EndedAt
	}
	return computeStats(&record, end)
}
