/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package compat scores how well one track follows another. All functions
// are pure: a scorer holds only its weights, so scoring may run from any
// number of goroutines at once.
package compat

import (
	"errors"
	"math"
	"sort"

	"github.com/friendsincode/huginn_dj/internal/models"
)

// ErrBadWeights indicates mixing weights that do not sum to 1.
var ErrBadWeights = errors.New("mixing weights must sum to 1.0")

// Energy progression labels reported in score details.
const (
	EnergyBuilding    = "building"
	EnergyDropping    = "dropping"
	EnergyMaintaining = "maintaining"
)

// Weights blends the five sub-scores into an overall score.
type Weights struct {
	Tempo    float64 `json:"tempo" yaml:"tempo"`
	Energy   float64 `json:"energy" yaml:"energy"`
	Harmonic float64 `json:"harmonic" yaml:"harmonic"`
	Genre    float64 `json:"genre" yaml:"genre"`
	Mood     float64 `json:"mood" yaml:"mood"`
}

// DefaultWeights returns the stock blend. Tempo dominates because a
// clashing BPM is the one mistake a dance floor always notices.
func DefaultWeights() Weights {
	return Weights{
		Tempo:    0.30,
		Energy:   0.25,
		Harmonic: 0.20,
		Genre:    0.15,
		Mood:     0.10,
	}
}

// Score is the result of rating one (current, candidate) pair. Every
// sub-score and Overall lie in [0, 1].
type Score struct {
	Tempo    float64 `json:"tempo"`
	Energy   float64 `json:"energy"`
	Harmonic float64 `json:"harmonic"`
	Genre    float64 `json:"genre"`
	Mood     float64 `json:"mood"`
	Overall  float64 `json:"overall"`
	Detail   Detail  `json:"detail"`
}

// Detail carries the human-readable breakdown alongside the numbers.
type Detail struct {
	CurrentBPM      float64 `json:"current_bpm"`
	CandidateBPM    float64 `json:"candidate_bpm"`
	BPMDiff         float64 `json:"bpm_diff"`
	WithinTolerance bool    `json:"within_tolerance"`
	EnergyShift     string  `json:"energy_shift"`
	CurrentKey      string  `json:"current_key"`
	CandidateKey    string  `json:"candidate_key"`
	KeyDistance     float64 `json:"key_distance"`
}

// Ranked pairs a candidate track with its score for FindBest results.
type Ranked struct {
	Track models.Track `json:"track"`
	Score Score        `json:"score"`
}

// Scorer rates candidate tracks against the currently playing one.
type Scorer struct {
	weights Weights
}

// New builds a scorer, rejecting weights that do not sum to 1.
func New(w Weights) (*Scorer, error) {
	sum := w.Tempo + w.Energy + w.Harmonic + w.Genre + w.Mood
	if math.Abs(sum-1.0) > 0.001 {
		return nil, ErrBadWeights
	}
	return &Scorer{weights: w}, nil
}

// Weights returns the blend the scorer was built with.
func (s *Scorer) Weights() Weights { return s.weights }

// Score rates how well candidate would follow current in the given phase.
func (s *Scorer) Score(current, candidate models.AudioFeatures, phase models.Phase) Score {
	tempo := tempoScore(current.Tempo, candidate.Tempo)
	energy := energyScore(current.Energy, candidate.Energy, phase)
	harmonic := harmonicScore(current, candidate)
	genre := genreScore(current, candidate)
	mood := moodScore(current.Valence, candidate.Valence)

	overall := clamp01(tempo*s.weights.Tempo +
		energy*s.weights.Energy +
		harmonic*s.weights.Harmonic +
		genre*s.weights.Genre +
		mood*s.weights.Mood)

	return Score{
		Tempo:    tempo,
		Energy:   energy,
		Harmonic: harmonic,
		Genre:    genre,
		Mood:     mood,
		Overall:  overall,
		Detail: Detail{
			CurrentBPM:      current.Tempo,
			CandidateBPM:    candidate.Tempo,
			BPMDiff:         math.Abs(current.Tempo - candidate.Tempo),
			WithinTolerance: tempo >= 0.8,
			EnergyShift:     energyShift(current.Energy, candidate.Energy),
			CurrentKey:      KeyLabel(current),
			CandidateKey:    KeyLabel(candidate),
			KeyDistance:     harmonic,
		},
	}
}

// FindBest scores every candidate against current and returns at most
// limit results, best first. Ties keep input order.
func (s *Scorer) FindBest(current models.AudioFeatures, candidates []models.Track, phase models.Phase, limit int) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for _, cand := range candidates {
		ranked = append(ranked, Ranked{
			Track: cand,
			Score: s.Score(current, cand.Features, phase),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.Overall > ranked[j].Score.Overall
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// tempoScore is 1.0 inside the professional 5% BPM tolerance, then decays
// linearly to 0 at a 15% difference.
func tempoScore(currentBPM, candidateBPM float64) float64 {
	diff := math.Abs(currentBPM - candidateBPM)
	ref := math.Max(currentBPM, candidateBPM)
	if ref <= 0 {
		return 1.0
	}
	if diff <= 0.05*ref {
		return 1.0
	}
	return clamp01(1.0 - (diff-0.05*ref)/(0.10*ref))
}

// energyScore encodes set-arc conventions rather than plain distance:
// warmup wants energy flat or rising, peak wants it high and steady,
// cooldown wants it flat or falling.
func energyScore(current, candidate float64, phase models.Phase) float64 {
	delta := candidate - current
	switch phase {
	case models.PhasePeak:
		if candidate < 0.6 {
			return 0.2
		}
		return clamp01(1.0 - math.Abs(delta))
	case models.PhaseCooldown:
		if delta <= 0 {
			return clamp01(1.0 - math.Min(-delta, 1)*0.25)
		}
		return clamp01(1.0 - 2*delta)
	default: // warmup
		if delta >= 0 {
			return clamp01(1.0 - math.Min(delta, 1)*0.25)
		}
		return clamp01(1.0 + 2*delta)
	}
}

// genreScore is a weighted feature-space similarity standing in for genre,
// since no explicit genre reaches this layer. Loudness compares on a 20 dB
// scale, everything else on its native [0, 1] range.
func genreScore(current, candidate models.AudioFeatures) float64 {
	sim := func(a, b float64) float64 { return clamp01(1.0 - math.Abs(a-b)) }
	loudness := math.Max(0, 1.0-math.Abs(current.Loudness-candidate.Loudness)/20.0)

	total := 0.20*sim(current.Acousticness, candidate.Acousticness) +
		0.25*sim(current.Danceability, candidate.Danceability) +
		0.15*sim(current.Energy, candidate.Energy) +
		0.15*sim(current.Instrumentalness, candidate.Instrumentalness) +
		0.10*loudness +
		0.15*sim(current.Speechiness, candidate.Speechiness)
	return clamp01(total)
}

// moodScore rates valence closeness. Within 0.3 any pairing works, past
// that the score decays but never below 0.2 so mood alone cannot veto.
func moodScore(current, candidate float64) float64 {
	diff := math.Abs(current - candidate)
	if diff <= 0.3 {
		return 1.0
	}
	score := 1.0 - (diff-0.3)/0.7*0.8
	return math.Max(0.2, clamp01(score))
}

func energyShift(current, candidate float64) string {
	switch {
	case candidate > current:
		return EnergyBuilding
	case candidate < current:
		return EnergyDropping
	default:
		return EnergyMaintaining
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
