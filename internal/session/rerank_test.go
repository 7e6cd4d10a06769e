package session

import (
	"math"
	"testing"

	"github.com/friendsincode/huginn_dj/internal/models"
)

func adjustDelta(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("adjustScore() = %v, want %v", got, want)
	}
}

func TestAdjustScoreRating(t *testing.T) {
	s := Settings{}
	aligned := models.AudioFeatures{Energy: 0.7}

	// Perfectly aligned energy contributes the full 0.1 in every case.
	adjustDelta(t, adjustScore(0.5, models.Track{Features: aligned, UserRating: 5}, s, 0.7), 0.8)
	adjustDelta(t, adjustScore(0.5, models.Track{Features: aligned, UserRating: 1}, s, 0.7), 0.4)
	adjustDelta(t, adjustScore(0.5, models.Track{Features: aligned, UserRating: 3}, s, 0.7), 0.6)
	adjustDelta(t, adjustScore(0.5, models.Track{Features: aligned}, s, 0.7), 0.6)
}

func TestAdjustScorePlayAndSkipPenalties(t *testing.T) {
	s := Settings{}
	aligned := models.AudioFeatures{Energy: 0.7}

	adjustDelta(t, adjustScore(0.5, models.Track{Features: aligned, PlayCount: 5}, s, 0.7), 0.55)
	// The play penalty caps at 0.1.
	adjustDelta(t, adjustScore(0.5, models.Track{Features: aligned, PlayCount: 50}, s, 0.7), 0.5)

	adjustDelta(t, adjustScore(0.5, models.Track{Features: aligned, SkipCount: 2}, s, 0.7), 0.5)
	// The skip penalty caps at 0.2.
	adjustDelta(t, adjustScore(0.5, models.Track{Features: aligned, SkipCount: 10}, s, 0.7), 0.4)
}

func TestAdjustScoreGenreBonusIsExactlyTenth(t *testing.T) {
	electronic := models.Track{Features: models.AudioFeatures{
		Energy: 0.8, Danceability: 0.75, Acousticness: 0.1,
	}}

	plain := Settings{}
	tuned := Settings{FavoriteGenres: []string{"electronic"}}

	base := adjustScore(0.5, electronic, plain, 0.8)
	boosted := adjustScore(0.5, electronic, tuned, 0.8)
	adjustDelta(t, boosted-base, 0.1)
}

func TestAdjustScoreEnergyAlignment(t *testing.T) {
	s := Settings{}

	near := adjustScore(0.5, models.Track{Features: models.AudioFeatures{Energy: 0.9}}, s, 0.9)
	far := adjustScore(0.5, models.Track{Features: models.AudioFeatures{Energy: 0.4}}, s, 0.9)
	adjustDelta(t, near, 0.6)
	adjustDelta(t, far, 0.55)
}

func TestAdjustScoreMoodPreference(t *testing.T) {
	happy := models.Track{Features: models.AudioFeatures{Energy: 0.7, Valence: 0.8}}

	neutral := adjustScore(0.5, happy, Settings{}, 0.7)
	biased := adjustScore(0.5, happy, Settings{MoodPreference: 1.0}, 0.7)
	adjustDelta(t, biased-neutral, 0.04)
}

func TestAdjustScoreClamps(t *testing.T) {
	s := Settings{}

	high := adjustScore(0.98, models.Track{
		Features: models.AudioFeatures{Energy: 0.8}, UserRating: 5,
	}, s, 0.8)
	if high != 1.0 {
		t.Errorf("adjustScore() high = %v, want clamp to 1.0", high)
	}

	low := adjustScore(0.05, models.Track{
		Features: models.AudioFeatures{Energy: 0.0}, SkipCount: 10, PlayCount: 50,
	}, s, 1.0)
	if low != 0.0 {
		t.Errorf("adjustScore() low = %v, want clamp to 0.0", low)
	}
}

func TestMatchesGenre(t *testing.T) {
	tests := []struct {
		name     string
		features models.AudioFeatures
		genre    string
		expected bool
	}{
		{"electronic match", models.AudioFeatures{Danceability: 0.7, Energy: 0.8, Acousticness: 0.1}, "electronic", true},
		{"electronic too acoustic", models.AudioFeatures{Danceability: 0.7, Energy: 0.8, Acousticness: 0.6}, "electronic", false},
		{"case insensitive", models.AudioFeatures{Danceability: 0.7, Energy: 0.8, Acousticness: 0.1}, "Electronic", true},
		{"house in tempo window", models.AudioFeatures{Danceability: 0.7, Tempo: 126}, "house", true},
		{"house too fast", models.AudioFeatures{Danceability: 0.7, Tempo: 160}, "house", false},
		{"hip hop variant spelling", models.AudioFeatures{Speechiness: 0.3, Danceability: 0.7}, "hip hop", true},
		{"acoustic", models.AudioFeatures{Acousticness: 0.8}, "folk", true},
		{"chill", models.AudioFeatures{Energy: 0.3, Acousticness: 0.5}, "ambient", true},
		{"unknown genre", models.AudioFeatures{Danceability: 0.9, Energy: 0.9}, "polka", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesGenre(tt.features, tt.genre); got != tt.expected {
				t.Errorf("matchesGenre(%q) = %v, want %v", tt.genre, got, tt.expected)
			}
		})
	}
}
