/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package compat

import (
	"fmt"

	"github.com/friendsincode/huginn_dj/internal/models"
)

// Camelot wheel positions indexed by pitch class. Relative major/minor
// pairs land on the same number (8B = C major, 8A = A minor).
var (
	majorWheel = [12]int{8, 3, 10, 5, 12, 7, 2, 9, 4, 11, 6, 1}
	minorWheel = [12]int{5, 12, 7, 2, 9, 4, 11, 6, 1, 8, 3, 10}
)

var noteNames = [12]string{"C", "C#", "D", "Eb", "E", "F", "F#", "G", "Ab", "A", "Bb", "B"}

// wheelPosition maps (key, mode) onto the wheel. The boolean is true for
// the minor ring. Callers must check HasKey first.
func wheelPosition(key, mode int) (int, bool) {
	if mode == 1 {
		return majorWheel[key], false
	}
	return minorWheel[key], true
}

// wheelDistance is the circular distance between two positions, 0..6.
func wheelDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 6 {
		d = 12 - d
	}
	return d
}

// harmonicScore rates key compatibility on the wheel. Identical key and
// mode is a perfect mix, relative major/minor nearly so, neighbors on the
// same ring are the classic energy mix. A failed key detection on either
// side scores a neutral 0.5.
func harmonicScore(current, candidate models.AudioFeatures) float64 {
	if !current.HasKey() || !candidate.HasKey() {
		return 0.5
	}

	posA, minorA := wheelPosition(current.Key, current.Mode)
	posB, minorB := wheelPosition(candidate.Key, candidate.Mode)
	dist := wheelDistance(posA, posB)
	sameRing := minorA == minorB

	switch {
	case dist == 0 && sameRing:
		return 1.0
	case dist == 0:
		return 0.9
	case dist == 1 && sameRing:
		return 0.8
	case dist == 2 && sameRing:
		return 0.6
	case dist <= 3:
		return 0.4
	default:
		return 0.1
	}
}

// KeyLabel renders a feature vector's key as a Camelot code with the
// conventional note name, e.g. "8B (C major)". Unknown keys label as such.
func KeyLabel(f models.AudioFeatures) string {
	if !f.HasKey() {
		return "unknown"
	}
	pos, minor := wheelPosition(f.Key, f.Mode)
	letter := "B"
	quality := "major"
	if minor {
		letter = "A"
		quality = "minor"
	}
	return fmt.Sprintf("%d%s (%s %s)", pos, letter, noteNames[f.Key], quality)
}
