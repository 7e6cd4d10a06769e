/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package compat

import (
	"fmt"
	"testing"

	"github.com/friendsincode/huginn_dj/internal/models"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := New(DefaultWeights())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNewRejectsBadWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"defaults", DefaultWeights(), false},
		{"custom valid", Weights{Tempo: 0.5, Energy: 0.2, Harmonic: 0.1, Genre: 0.1, Mood: 0.1}, false},
		{"sums below one", Weights{Tempo: 0.3, Energy: 0.2, Harmonic: 0.2, Genre: 0.1, Mood: 0.1}, true},
		{"sums above one", Weights{Tempo: 0.5, Energy: 0.5, Harmonic: 0.5, Genre: 0.1, Mood: 0.1}, true},
		{"all zero", Weights{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.weights)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTempoScore(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		cand     float64
		expected float64
	}{
		{"identical", 120, 120, 1.0},
		{"inside tolerance", 120, 125, 1.0},
		{"at tolerance edge", 120, 126, 1.0},
		{"just past tolerance", 128, 120, 0.875},
		{"at fifteen percent", 120, 102, 0.0},
		{"far beyond", 120, 150, 0.0},
		{"zero bpm pair", 0, 0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tempoScore(tt.current, tt.cand)
			if diff := result - tt.expected; diff > 0.0001 || diff < -0.0001 {
				t.Errorf("tempoScore(%v, %v) = %v, want %v", tt.current, tt.cand, result, tt.expected)
			}
		})
	}
}

func TestTempoScoreStrictlyDecreasing(t *testing.T) {
	// Past the 5% band the score must fall monotonically until the 15% floor.
	const current = 120.0
	prev := tempoScore(current, current*1.051)
	for pct := 0.06; pct < 0.15; pct += 0.01 {
		score := tempoScore(current, current*(1+pct))
		if score >= prev {
			t.Fatalf("tempoScore at %+.0f%% = %v, not below previous %v", pct*100, score, prev)
		}
		prev = score
	}
}

func TestEnergyScorePeakFloorsLowCandidates(t *testing.T) {
	// Any candidate below 0.6 energy scores 0.2 at peak no matter the current track.
	for _, current := range []float64{0.0, 0.3, 0.5, 0.9, 1.0} {
		score := energyScore(current, 0.3, models.PhasePeak)
		if score > 0.2 {
			t.Errorf("energyScore(current=%v, candidate=0.3, peak) = %v, want <= 0.2", current, score)
		}
	}
}

func TestEnergyScorePhases(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		cand    float64
		phase   models.Phase
		check   func(float64) bool
		desc    string
	}{
		{"warmup rising beats dropping", 0.4, 0.5, models.PhaseWarmup,
			func(s float64) bool { return s > energyScore(0.4, 0.3, models.PhaseWarmup) }, "> drop score"},
		{"warmup flat is perfect", 0.4, 0.4, models.PhaseWarmup,
			func(s float64) bool { return s == 1.0 }, "== 1.0"},
		{"peak similar high energy", 0.8, 0.8, models.PhasePeak,
			func(s float64) bool { return s == 1.0 }, "== 1.0"},
		{"peak high but distant", 0.6, 1.0, models.PhasePeak,
			func(s float64) bool { return s > 0.2 && s < 1.0 }, "between 0.2 and 1.0"},
		{"cooldown falling beats rising", 0.7, 0.5, models.PhaseCooldown,
			func(s float64) bool { return s > energyScore(0.7, 0.9, models.PhaseCooldown) }, "> rise score"},
		{"cooldown flat is perfect", 0.5, 0.5, models.PhaseCooldown,
			func(s float64) bool { return s == 1.0 }, "== 1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := energyScore(tt.current, tt.cand, tt.phase)
			if !tt.check(score) {
				t.Errorf("energyScore(%v, %v, %s) = %v, want %s", tt.current, tt.cand, tt.phase, score, tt.desc)
			}
		})
	}
}

func TestMoodScore(t *testing.T) {
	tests := []struct {
		name     string
		a, b     float64
		expected float64
	}{
		{"identical", 0.5, 0.5, 1.0},
		{"within window", 0.5, 0.8, 1.0},
		{"maximum distance hits floor", 0.0, 1.0, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := moodScore(tt.a, tt.b)
			if diff := result - tt.expected; diff > 0.0001 || diff < -0.0001 {
				t.Errorf("moodScore(%v, %v) = %v, want %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}

	// Between the window edge and the floor the score decays but stays above 0.2.
	mid := moodScore(0.1, 0.75)
	if mid >= 1.0 || mid <= 0.2 {
		t.Errorf("moodScore(0.1, 0.75) = %v, want inside (0.2, 1.0)", mid)
	}
}

func TestGenreScoreIdenticalFeatures(t *testing.T) {
	f := models.AudioFeatures{
		Acousticness: 0.3, Danceability: 0.7, Energy: 0.8,
		Instrumentalness: 0.1, Loudness: -6, Speechiness: 0.05,
	}
	if got := genreScore(f, f); got != 1.0 {
		t.Errorf("genreScore(f, f) = %v, want 1.0", got)
	}
}

func TestScoreBoundsHoldUnderExtremes(t *testing.T) {
	s := newTestScorer(t)
	// Deliberately malformed vectors: the scorer clamps, never panics.
	vectors := []models.AudioFeatures{
		{},
		{Tempo: 128, Energy: 0.8, Danceability: 0.7, Valence: 0.6, Loudness: -7, Key: 4, Mode: 1},
		{Tempo: -50, Energy: 4.0, Valence: -2, Loudness: 40, Key: 99, Mode: 7},
		{Tempo: 1e9, Energy: 1, Valence: 1, Loudness: -300, Key: 11, Mode: 0},
		{Tempo: 60, Energy: 0.1, Valence: 0.9, Key: models.KeyUnknown, Mode: models.KeyUnknown},
	}

	phases := []models.Phase{models.PhaseWarmup, models.PhasePeak, models.PhaseCooldown}
	for _, cur := range vectors {
		for _, cand := range vectors {
			for _, phase := range phases {
				sc := s.Score(cur, cand, phase)
				for name, v := range map[string]float64{
					"tempo": sc.Tempo, "energy": sc.Energy, "harmonic": sc.Harmonic,
					"genre": sc.Genre, "mood": sc.Mood, "overall": sc.Overall,
				} {
					if v < 0 || v > 1 {
						t.Fatalf("%s score %v out of [0,1] for %+v vs %+v in %s", name, v, cur, cand, phase)
					}
				}
			}
		}
	}
}

func TestScoreDetail(t *testing.T) {
	s := newTestScorer(t)
	current := models.AudioFeatures{Tempo: 120, Energy: 0.5, Key: 0, Mode: 1}
	candidate := models.AudioFeatures{Tempo: 123, Energy: 0.7, Key: 9, Mode: 0}

	sc := s.Score(current, candidate, models.PhaseWarmup)

	if sc.Detail.CurrentBPM != 120 || sc.Detail.CandidateBPM != 123 {
		t.Errorf("detail BPMs = %v/%v, want 120/123", sc.Detail.CurrentBPM, sc.Detail.CandidateBPM)
	}
	if sc.Detail.BPMDiff != 3 {
		t.Errorf("detail BPMDiff = %v, want 3", sc.Detail.BPMDiff)
	}
	if !sc.Detail.WithinTolerance {
		t.Error("detail WithinTolerance = false, want true for a 3 BPM gap")
	}
	if sc.Detail.EnergyShift != EnergyBuilding {
		t.Errorf("detail EnergyShift = %q, want %q", sc.Detail.EnergyShift, EnergyBuilding)
	}
	if sc.Detail.CurrentKey != "8B (C major)" || sc.Detail.CandidateKey != "8A (A minor)" {
		t.Errorf("detail keys = %q/%q", sc.Detail.CurrentKey, sc.Detail.CandidateKey)
	}
	if sc.Detail.KeyDistance != sc.Harmonic {
		t.Errorf("detail KeyDistance = %v, want harmonic score %v", sc.Detail.KeyDistance, sc.Harmonic)
	}
}

func TestEnergyShiftLabels(t *testing.T) {
	if got := energyShift(0.5, 0.7); got != EnergyBuilding {
		t.Errorf("energyShift rising = %q, want %q", got, EnergyBuilding)
	}
	if got := energyShift(0.7, 0.5); got != EnergyDropping {
		t.Errorf("energyShift falling = %q, want %q", got, EnergyDropping)
	}
	if got := energyShift(0.5, 0.5); got != EnergyMaintaining {
		t.Errorf("energyShift flat = %q, want %q", got, EnergyMaintaining)
	}
}

func TestFindBestLimitAndOrder(t *testing.T) {
	s := newTestScorer(t)
	current := models.AudioFeatures{Tempo: 120, Energy: 0.6, Valence: 0.5, Key: 0, Mode: 1}

	candidates := make([]models.Track, 0, 8)
	for i := 0; i < 8; i++ {
		candidates = append(candidates, models.Track{
			ID: fmt.Sprintf("t%d", i),
			Features: models.AudioFeatures{
				Tempo: 110 + float64(i*4), Energy: 0.6, Valence: 0.5, Key: 0, Mode: 1,
			},
		})
	}

	ranked := s.FindBest(current, candidates, models.PhaseWarmup, 5)
	if len(ranked) != 5 {
		t.Fatalf("FindBest returned %d results, want 5", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score.Overall > ranked[i-1].Score.Overall {
			t.Fatalf("results not sorted: %v at %d above %v at %d",
				ranked[i].Score.Overall, i, ranked[i-1].Score.Overall, i-1)
		}
	}

	// With no limit every candidate comes back.
	all := s.FindBest(current, candidates, models.PhaseWarmup, 0)
	if len(all) != len(candidates) {
		t.Fatalf("FindBest without limit returned %d, want %d", len(all), len(candidates))
	}
}

func TestFindBestTiesKeepInputOrder(t *testing.T) {
	s := newTestScorer(t)
	current := models.AudioFeatures{Tempo: 120, Energy: 0.6, Valence: 0.5, Key: 0, Mode: 1}

	// Identical features produce identical scores.
	same := models.AudioFeatures{Tempo: 121, Energy: 0.6, Valence: 0.5, Key: 0, Mode: 1}
	candidates := []models.Track{
		{ID: "first", Features: same},
		{ID: "second", Features: same},
		{ID: "third", Features: same},
	}

	ranked := s.FindBest(current, candidates, models.PhaseWarmup, 3)
	for i, want := range []string{"first", "second", "third"} {
		if ranked[i].Track.ID != want {
			t.Errorf("ranked[%d] = %q, want %q", i, ranked[i].Track.ID, want)
		}
	}
}

func TestFindBestTempoScenario(t *testing.T) {
	s := newTestScorer(t)

	base := models.AudioFeatures{Energy: 0.7, Danceability: 0.7, Valence: 0.6, Loudness: -7, Key: 5, Mode: 1}
	mk := func(id string, bpm float64) models.Track {
		f := base
		f.Tempo = bpm
		return models.Track{ID: id, Features: f}
	}

	current := base
	current.Tempo = 120

	candidates := []models.Track{mk("a122", 122), mk("b150", 150), mk("c121", 121), mk("d119", 119)}
	ranked := s.FindBest(current, candidates, models.PhaseWarmup, 4)

	if last := ranked[len(ranked)-1]; last.Track.ID != "b150" {
		t.Fatalf("150 BPM track should rank last, got %q", last.Track.ID)
	}
	if sc := ranked[len(ranked)-1].Score; sc.Tempo > 0.001 {
		t.Errorf("150 BPM tempo sub-score = %v, want ~0", sc.Tempo)
	}
	gap := ranked[0].Score.Overall - ranked[len(ranked)-1].Score.Overall
	if gap < 0.25 {
		t.Errorf("overall gap between close and distant tempo = %v, want >= 0.25", gap)
	}
}
