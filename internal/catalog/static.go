/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/friendsincode/huginn_dj/internal/models"
)

// StaticProvider serves a fixed track library from memory. It backs the
// file catalog, the simulate command and tests.
type StaticProvider struct {
	tracks []models.Track
	logger zerolog.Logger
}

// NewStaticProvider validates the supplied tracks and keeps the survivors.
func NewStaticProvider(tracks []models.Track, logger zerolog.Logger) *StaticProvider {
	log := logger.With().Str("component", "catalog_static").Logger()

	kept := make([]models.Track, 0, len(tracks))
	for _, track := range tracks {
		if track.ID == "" {
			continue
		}
		if err := ValidateFeatures(track.Features); err != nil {
			log.Warn().Str("track_id", track.ID).Err(err).Msg("dropping track with invalid features")
			continue
		}
		kept = append(kept, track)
	}

	return &StaticProvider{tracks: kept, logger: log}
}

// LoadFile reads a JSON track library. Both a bare array and an object
// with a "tracks" key are accepted.
func LoadFile(path string, logger zerolog.Logger) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var tracks []models.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		var wrapper struct {
			Tracks []models.Track `json:"tracks"`
		}
		if err2 := json.Unmarshal(data, &wrapper); err2 != nil {
			return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
		}
		tracks = wrapper.Tracks
	}

	provider := NewStaticProvider(tracks, logger)
	if len(provider.tracks) == 0 {
		return nil, ErrNoUsableTracks
	}
	return provider, nil
}

// PlaylistTracks returns the whole library; an empty or "all" reference is
// the usual call. Any other reference must prefix-match nothing, so it
// reports not found to mirror the remote provider contract.
func (p *StaticProvider) PlaylistTracks(ctx context.Context, ref string) ([]models.Track, error) {
	ref = strings.TrimSpace(ref)
	if ref != "" && !strings.EqualFold(ref, "all") {
		return nil, ErrPlaylistNotFound
	}
	if len(p.tracks) == 0 {
		return nil, ErrNoUsableTracks
	}
	return append([]models.Track(nil), p.tracks...), nil
}

// Search matches the query against track name and artist, case folded.
func (p *StaticProvider) Search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if limit <= 0 {
		limit = 20
	}
	needle := strings.ToLower(strings.TrimSpace(query))

	var out []models.Track
	for _, track := range p.tracks {
		if needle == "" ||
			strings.Contains(strings.ToLower(track.Name), needle) ||
			strings.Contains(strings.ToLower(track.Artist), needle) {
			out = append(out, track)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Size returns how many tracks the provider holds.
func (p *StaticProvider) Size() int { return len(p.tracks) }
