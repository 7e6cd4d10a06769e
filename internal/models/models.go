package models

import "time"

// Phase names a stage of a DJ set's energy arc.
type Phase string

const (
	PhaseWarmup   Phase = "warmup"
	PhasePeak     Phase = "peak"
	PhaseCooldown Phase = "cooldown"
)

// KeyUnknown marks a failed key or mode detection.
const KeyUnknown = -1

// AudioFeatures holds the per-track numeric descriptors supplied by the
// catalog provider. Values are immutable once attached to a track.
type AudioFeatures struct {
	// Tempo is the estimated tempo in beats per minute. Always > 0 for
	// a usable track.
	Tempo float64 `json:"tempo"`
	// Energy is a perceptual intensity measure in [0, 1].
	Energy float64 `json:"energy"`
	// Danceability in [0, 1], combining tempo stability and beat strength.
	Danceability float64 `json:"danceability"`
	// Valence is musical positivity in [0, 1]. High valence sounds happy.
	Valence float64 `json:"valence"`
	// Acousticness is a confidence in [0, 1] that the track is acoustic.
	Acousticness float64 `json:"acousticness"`
	// Instrumentalness predicts absence of vocals, in [0, 1].
	Instrumentalness float64 `json:"instrumentalness"`
	// Liveness is the probability of a live audience, in [0, 1].
	Liveness float64 `json:"liveness"`
	// Speechiness detects spoken words, in [0, 1].
	Speechiness float64 `json:"speechiness"`
	// Loudness is average level in dB, typically within [-60, 0].
	Loudness float64 `json:"loudness"`
	// Key is the pitch class 0=C .. 11=B, or -1 when detection failed.
	Key int `json:"key"`
	// Mode is 1 for major, 0 for minor, -1 when unknown.
	Mode int `json:"mode"`
	// TimeSignature is beats per bar, informational only.
	TimeSignature int `json:"time_signature"`
	// DurationMS is track length in milliseconds, informational only.
	DurationMS int `json:"duration_ms"`
}

// HasKey reports whether key detection produced a usable pitch class.
func (f AudioFeatures) HasKey() bool {
	return f.Key >= 0 && f.Key <= 11 && f.Mode >= 0
}

// Track is a pool entry: catalog identity plus engine-tracked play state.
// The engine mutates counts and LastPlayed; everything else is caller data.
type Track struct {
	ID       string        `json:"id"`
	Name     string        `json:"name,omitempty"`
	Artist   string        `json:"artist,omitempty"`
	Features AudioFeatures `json:"features"`

	PlayCount  int        `json:"play_count"`
	SkipCount  int        `json:"skip_count"`
	UserRating int        `json:"user_rating,omitempty"` // 1..5, 0 when unrated
	LastPlayed *time.Time `json:"last_played,omitempty"`
}

// Rated reports whether the track carries a user rating.
func (t Track) Rated() bool {
	return t.UserRating >= 1 && t.UserRating <= 5
}
