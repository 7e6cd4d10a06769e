/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package session

import (
	"math"

	"github.com/friendsincode/huginn_dj/internal/models"
)

// Opening track filter bounds. A set opens mid-energy and danceable, with
// nothing too talky.
const (
	openingEnergyMin      = 0.3
	openingEnergyMax      = 0.6
	openingDanceabilityMin = 0.6
	openingValenceMin     = 0.4
	openingSpeechinessMax = 0.5
)

// pickOpening selects the first track of a set. There is no current track
// to score against yet, so a dedicated suitability heuristic ranks the
// pool; when nothing passes the filter the first pool track opens.
func pickOpening(pool []models.Track) models.Track {
	best := -1
	bestScore := 0.0
	for i, track := range pool {
		f := track.Features
		if f.Energy < openingEnergyMin || f.Energy > openingEnergyMax {
			continue
		}
		if f.Danceability < openingDanceabilityMin || f.Valence < openingValenceMin {
			continue
		}
		if f.Speechiness > openingSpeechinessMax {
			continue
		}

		score := openingScore(f)
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}

	if best == -1 {
		return pool[0]
	}
	return pool[best]
}

// openingScore rates opening suitability: energy near 0.45, strong
// danceability, positive valence, tempo near 125 BPM, little speech.
func openingScore(f models.AudioFeatures) float64 {
	energyFit := 1 - math.Abs(f.Energy-0.45)
	tempoFit := 1 - math.Min(math.Abs(f.Tempo-125)/50, 1)
	return 0.30*energyFit +
		0.25*f.Danceability +
		0.20*f.Valence +
		0.15*tempoFit +
		0.10*(1-f.Speechiness)
}
