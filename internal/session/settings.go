/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package session

import (
	"errors"
	"fmt"
	"math"
)

// Settings are the tunable knobs of a set. A Settings value is immutable
// once handed to the engine; UpdateSettings swaps in a merged copy.
type Settings struct {
	// EnergyTolerance and TempoTolerancePct are advisory hints surfaced to
	// hosts; the scoring formulas themselves use fixed DJ conventions.
	EnergyTolerance   float64 `json:"energy_tolerance" yaml:"energy_tolerance"`
	TempoTolerancePct float64 `json:"tempo_tolerance_pct" yaml:"tempo_tolerance_pct"`

	// CooldownMinutes is how long a played track stays ineligible.
	CooldownMinutes int `json:"cooldown_minutes" yaml:"cooldown_minutes"`
	// CrossfadeSeconds is passed through to the playback collaborator as a
	// suggestion only.
	CrossfadeSeconds int `json:"crossfade_seconds" yaml:"crossfade_seconds"`

	FavoriteGenres []string `json:"favorite_genres" yaml:"favorite_genres"`
	// MoodPreference in [0, 1] biases selection toward high-valence tracks.
	MoodPreference float64 `json:"mood_preference" yaml:"mood_preference"`
	// InstrumentalPreference is advisory, carried for hosts.
	InstrumentalPreference float64 `json:"instrumental_preference" yaml:"instrumental_preference"`

	// PeakHour is the local clock hour [0, 23] the set should peak around.
	PeakHour int `json:"peak_hour" yaml:"peak_hour"`
	// SessionLengthMinutes is the expected set length used for phase progress.
	SessionLengthMinutes int `json:"session_length_minutes" yaml:"session_length_minutes"`

	// SelectionWeights is the pick distribution over the re-ranked shortlist.
	// The stock [0.5 0.3 0.2] is a convention, not a law; it must still sum
	// to 1 over at most the shortlist size.
	SelectionWeights []float64 `json:"selection_weights" yaml:"selection_weights"`
}

// DefaultSettings returns the stock knobs for a four hour party set.
func DefaultSettings() Settings {
	return Settings{
		EnergyTolerance:      0.2,
		TempoTolerancePct:    5,
		CooldownMinutes:      60,
		CrossfadeSeconds:     10,
		MoodPreference:       0.5,
		PeakHour:             23,
		SessionLengthMinutes: 240,
		SelectionWeights:     []float64{0.5, 0.3, 0.2},
	}
}

// Validate rejects configurations the engine cannot run with. These are
// fail-fast errors, never silently corrected.
func (s Settings) Validate() error {
	if s.CooldownMinutes < 0 {
		return errors.New("cooldown minutes cannot be negative")
	}
	if s.CrossfadeSeconds < 0 {
		return errors.New("crossfade seconds cannot be negative")
	}
	if s.MoodPreference < 0 || s.MoodPreference > 1 {
		return fmt.Errorf("mood preference %v outside [0, 1]", s.MoodPreference)
	}
	if s.PeakHour < 0 || s.PeakHour > 23 {
		return fmt.Errorf("peak hour %d outside [0, 23]", s.PeakHour)
	}
	if s.SessionLengthMinutes <= 0 {
		return errors.New("session length must be positive")
	}
	if len(s.SelectionWeights) == 0 {
		return errors.New("selection weights cannot be empty")
	}
	sum := 0.0
	for _, w := range s.SelectionWeights {
		if w < 0 {
			return fmt.Errorf("selection weight %v cannot be negative", w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("selection weights sum to %v, want 1.0", sum)
	}
	return nil
}

// Patch carries a partial settings update. Nil fields leave the current
// value untouched; FavoriteGenres replaces wholesale when non-nil.
type Patch struct {
	EnergyTolerance        *float64  `json:"energy_tolerance,omitempty"`
	TempoTolerancePct      *float64  `json:"tempo_tolerance_pct,omitempty"`
	CooldownMinutes        *int      `json:"cooldown_minutes,omitempty"`
	CrossfadeSeconds       *int      `json:"crossfade_seconds,omitempty"`
	FavoriteGenres         []string  `json:"favorite_genres,omitempty"`
	MoodPreference         *float64  `json:"mood_preference,omitempty"`
	InstrumentalPreference *float64  `json:"instrumental_preference,omitempty"`
	PeakHour               *int      `json:"peak_hour,omitempty"`
	SessionLengthMinutes   *int      `json:"session_length_minutes,omitempty"`
	SelectionWeights       []float64 `json:"selection_weights,omitempty"`
}

// Merge applies the patch to a copy of s and validates the result.
func (s Settings) Merge(p Patch) (Settings, error) {
	out := s
	out.FavoriteGenres = append([]string(nil), s.FavoriteGenres...)
	out.SelectionWeights = append([]float64(nil), s.SelectionWeights...)

	if p.EnergyTolerance != nil {
		out.EnergyTolerance = *p.EnergyTolerance
	}
	if p.TempoTolerancePct != nil {
		out.TempoTolerancePct = *p.TempoTolerancePct
	}
	if p.CooldownMinutes != nil {
		out.CooldownMinutes = *p.CooldownMinutes
	}
	if p.CrossfadeSeconds != nil {
		out.CrossfadeSeconds = *p.CrossfadeSeconds
	}
	if p.FavoriteGenres != nil {
		out.FavoriteGenres = append([]string(nil), p.FavoriteGenres...)
	}
	if p.MoodPreference != nil {
		out.MoodPreference = *p.MoodPreference
	}
	if p.InstrumentalPreference != nil {
		out.InstrumentalPreference = *p.InstrumentalPreference
	}
	if p.PeakHour != nil {
		out.PeakHour = *p.PeakHour
	}
	if p.SessionLengthMinutes != nil {
		out.SessionLengthMinutes = *p.SessionLengthMinutes
	}
	if p.SelectionWeights != nil {
		out.SelectionWeights = append([]float64(nil), p.SelectionWeights...)
	}

	if err := out.Validate(); err != nil {
		return Settings{}, err
	}
	return out, nil
}
