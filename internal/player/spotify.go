/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// SpotifyConfig configures the Spotify Connect controller. The token must
// carry the user-streaming scopes; client credentials cannot control
// playback.
type SpotifyConfig struct {
	// AccessToken is a user OAuth token with playback scopes.
	AccessToken string
	// DeviceID pins playback to one Connect device. Empty uses the active
	// device.
	DeviceID string
}

// SpotifyController controls playback through the Spotify Connect API.
type SpotifyController struct {
	client   *spotify.Client
	deviceID spotify.ID
	logger   zerolog.Logger
}

// NewSpotifyController builds the controller from a static user token.
func NewSpotifyController(cfg SpotifyConfig, logger zerolog.Logger) (*SpotifyController, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("spotify player access token is required")
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
	httpClient := oauth2.NewClient(context.Background(), source)

	return &SpotifyController{
		client:   spotify.New(httpClient),
		deviceID: spotify.ID(cfg.DeviceID),
		logger:   logger.With().Str("component", "player_spotify").Logger(),
	}, nil
}

func (c *SpotifyController) Play(ctx context.Context, trackID string) error {
	opts := &spotify.PlayOptions{
		URIs: []spotify.URI{trackURI(trackID)},
	}
	if c.deviceID != "" {
		opts.DeviceID = &c.deviceID
	}
	if err := c.client.PlayOpt(ctx, opts); err != nil {
		return fmt.Errorf("spotify play: %w", err)
	}
	c.logger.Info().Str("track_id", trackID).Msg("playback started")
	return nil
}

// Queue appends the track. Spotify Connect has no per-transition crossfade
// control, so the hint is logged and dropped.
func (c *SpotifyController) Queue(ctx context.Context, trackID string, crossfadeSec int) error {
	if err := c.client.QueueSong(ctx, spotify.ID(trackID)); err != nil {
		return fmt.Errorf("spotify queue: %w", err)
	}
	c.logger.Info().
		Str("track_id", trackID).
		Int("crossfade_sec", crossfadeSec).
		Msg("track queued")
	return nil
}

func (c *SpotifyController) Pause(ctx context.Context) error {
	if err := c.client.Pause(ctx); err != nil {
		return fmt.Errorf("spotify pause: %w", err)
	}
	return nil
}

func (c *SpotifyController) Skip(ctx context.Context) error {
	if err := c.client.Next(ctx); err != nil {
		return fmt.Errorf("spotify next: %w", err)
	}
	return nil
}

func (c *SpotifyController) TransferPlayback(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if err := c.client.TransferPlayback(ctx, spotify.ID(deviceID), true); err != nil {
		return fmt.Errorf("spotify transfer playback: %w", err)
	}
	c.deviceID = spotify.ID(deviceID)
	c.logger.Info().Str("device_id", deviceID).Msg("playback transferred")
	return nil
}

func trackURI(trackID string) spotify.URI {
	return spotify.URI("spotify:track:" + trackID)
}
