/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player pushes engine decisions to a playback device. The engine
// never blocks on playback: controller errors are logged and surfaced to
// the caller, the session keeps advancing either way.
package player

import (
	"context"

	"github.com/rs/zerolog"
)

// Controller drives an external playback device. CrossfadeSec is advisory;
// devices that cannot crossfade ignore it.
type Controller interface {
	// Play starts immediate playback of the track.
	Play(ctx context.Context, trackID string) error
	// Queue appends the track after the current one.
	Queue(ctx context.Context, trackID string, crossfadeSec int) error
	// Pause halts playback.
	Pause(ctx context.Context) error
	// Skip advances the device to its next queued track.
	Skip(ctx context.Context) error
	// TransferPlayback moves playback to the named device.
	TransferPlayback(ctx context.Context, deviceID string) error
}

// Nop is the controller used when no playback backend is configured. It
// records decisions in the log and succeeds.
type Nop struct {
	logger zerolog.Logger
}

// NewNop creates a logging no-op controller.
func NewNop(logger zerolog.Logger) *Nop {
	return &Nop{logger: logger.With().Str("component", "player_nop").Logger()}
}

func (n *Nop) Play(ctx context.Context, trackID string) error {
	n.logger.Debug().Str("track_id", trackID).Msg("play (no playback backend)")
	return nil
}

func (n *Nop) Queue(ctx context.Context, trackID string, crossfadeSec int) error {
	n.logger.Debug().Str("track_id", trackID).Int("crossfade_sec", crossfadeSec).Msg("queue (no playback backend)")
	return nil
}

func (n *Nop) Pause(ctx context.Context) error {
	n.logger.Debug().Msg("pause (no playback backend)")
	return nil
}

func (n *Nop) Skip(ctx context.Context) error {
	n.logger.Debug().Msg("skip (no playback backend)")
	return nil
}

func (n *Nop) TransferPlayback(ctx context.Context, deviceID string) error {
	n.logger.Debug().Str("device_id", deviceID).Msg("transfer (no playback backend)")
	return nil
}
