/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package session

import (
	"math"
	"strings"

	"github.com/friendsincode/huginn_dj/internal/models"
)

// adjustScore layers engine-level signals on top of the compatibility
// overall: user rating swings the score by up to 0.2 either way, play and
// skip counts subtract up to 0.1 and 0.2, a favorite-genre match adds 0.1,
// closeness to the energy target adds up to 0.1, and the mood preference
// adds up to 0.05. The result clamps to [0, 1].
func adjustScore(overall float64, track models.Track, s Settings, energyTarget float64) float64 {
	adjusted := overall

	if track.Rated() {
		adjusted += float64(track.UserRating-3) * 0.1
	}
	adjusted -= math.Min(float64(track.PlayCount)*0.01, 0.1)
	adjusted -= math.Min(float64(track.SkipCount)*0.05, 0.2)
	if matchesFavoriteGenre(track.Features, s.FavoriteGenres) {
		adjusted += 0.1
	}
	adjusted += (1 - math.Abs(track.Features.Energy-energyTarget)) * 0.1
	adjusted += track.Features.Valence * s.MoodPreference * 0.05

	if adjusted < 0 {
		return 0
	}
	if adjusted > 1 {
		return 1
	}
	return adjusted
}

// matchesFavoriteGenre checks a track against the configured genre hints.
// No explicit genre tags reach this layer, so each hint maps to feature
// thresholds that characterize the genre. One match earns the bonus.
func matchesFavoriteGenre(f models.AudioFeatures, genres []string) bool {
	for _, genre := range genres {
		if matchesGenre(f, genre) {
			return true
		}
	}
	return false
}

func matchesGenre(f models.AudioFeatures, genre string) bool {
	switch strings.ToLower(strings.TrimSpace(genre)) {
	case "electronic", "edm", "dance":
		return f.Danceability >= 0.6 && f.Energy >= 0.6 && f.Acousticness <= 0.4
	case "house":
		return f.Danceability >= 0.65 && f.Tempo >= 118 && f.Tempo <= 132
	case "techno":
		return f.Energy >= 0.7 && f.Tempo >= 120 && f.Tempo <= 150 && f.Instrumentalness >= 0.4
	case "pop":
		return f.Danceability >= 0.55 && f.Valence >= 0.5 && f.Speechiness <= 0.3
	case "rock":
		return f.Energy >= 0.6 && f.Acousticness <= 0.5 && f.Liveness >= 0.1
	case "hip-hop", "hip hop", "rap":
		return f.Speechiness >= 0.15 && f.Danceability >= 0.6
	case "latin":
		return f.Danceability >= 0.7 && f.Valence >= 0.6
	case "acoustic", "folk":
		return f.Acousticness >= 0.6
	case "jazz":
		return f.Acousticness >= 0.4 && f.Instrumentalness >= 0.4
	case "classical":
		return f.Acousticness >= 0.7 && f.Instrumentalness >= 0.7
	case "chill", "ambient", "lounge":
		return f.Energy <= 0.5 && f.Acousticness >= 0.3
	default:
		return false
	}
}
