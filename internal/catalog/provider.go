/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog supplies (track, audio features) batches to the engine.
// Providers validate everything at this boundary: the core never sees a
// feature vector outside its documented ranges.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/friendsincode/huginn_dj/internal/models"
)

var (
	// ErrPlaylistNotFound indicates the referenced playlist does not exist
	// or is not visible to the configured credentials.
	ErrPlaylistNotFound = errors.New("playlist not found")
	// ErrNoUsableTracks indicates a source resolved but yielded no track
	// with valid audio features.
	ErrNoUsableTracks = errors.New("no usable tracks in source")
)

// Provider resolves track sources into pool-ready tracks. Implementations
// attach validated audio features to every returned track.
type Provider interface {
	// PlaylistTracks lists the tracks of a playlist reference (URL, URI or
	// bare id, provider-dependent) with features attached.
	PlaylistTracks(ctx context.Context, ref string) ([]models.Track, error)
	// Search finds up to limit tracks matching the free-text query.
	Search(ctx context.Context, query string, limit int) ([]models.Track, error)
}

// ValidateFeatures rejects feature vectors the scoring model cannot use.
// Unknown key/mode (-1) is valid; the harmonic scorer treats it as neutral.
func ValidateFeatures(f models.AudioFeatures) error {
	if f.Tempo <= 0 {
		return fmt.Errorf("tempo %v must be positive", f.Tempo)
	}
	unit := []struct {
		name  string
		value float64
	}{
		{"energy", f.Energy},
		{"danceability", f.Danceability},
		{"valence", f.Valence},
		{"acousticness", f.Acousticness},
		{"instrumentalness", f.Instrumentalness},
		{"liveness", f.Liveness},
		{"speechiness", f.Speechiness},
	}
	for _, field := range unit {
		if field.value < 0 || field.value > 1 {
			return fmt.Errorf("%s %v outside [0, 1]", field.name, field.value)
		}
	}
	if f.Key < models.KeyUnknown || f.Key > 11 {
		return fmt.Errorf("key %d outside [0, 11]", f.Key)
	}
	if f.Mode < models.KeyUnknown || f.Mode > 1 {
		return fmt.Errorf("mode %d must be 0, 1 or unknown", f.Mode)
	}
	return nil
}
