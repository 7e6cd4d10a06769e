/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package session drives one DJ set at a time: it owns the candidate pool,
// the play history and the phase schedule, and leans on the compat scorer
// to rank what should play next.
package session

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/huginn_dj/internal/compat"
	"github.com/friendsincode/huginn_dj/internal/models"
)

var (
	// ErrNoSession indicates an operation that needs an active session.
	ErrNoSession = errors.New("no active session")
	// ErrActiveSession indicates a start while a session is running.
	ErrActiveSession = errors.New("a session is already active")
	// ErrEmptyPool indicates a start without any candidate tracks.
	ErrEmptyPool = errors.New("track pool is empty")
	// ErrExhausted indicates every pool track is played out or cooling
	// down. Callers decide whether to end the set or relax the cooldown.
	ErrExhausted = errors.New("no eligible candidate remains")
	// ErrUnknownTrack indicates a track id absent from the pool.
	ErrUnknownTrack = errors.New("track not in pool")
)

// shortlist ranking depth fed into the weighted pick.
const rankDepth = 10

// SessionState is the mutable record of one set. The engine hands out
// copies only; a state with EndedAt set is a closed, immutable record.
type SessionState struct {
	ID           string               `json:"id"`
	StartedAt    time.Time            `json:"started_at"`
	EndedAt      *time.Time           `json:"ended_at,omitempty"`
	History      []models.Track       `json:"history"`
	PlayedIDs    map[string]struct{}  `json:"played_ids"`
	Phase        models.Phase         `json:"phase"`
	EnergyTarget float64              `json:"energy_target"`
	Skips        int                  `json:"skips"`
	PhaseCounts  map[models.Phase]int `json:"phase_counts"`
}

func (s *SessionState) clone() SessionState {
	out := *s
	out.History = append([]models.Track(nil), s.History...)
	out.PlayedIDs = make(map[string]struct{}, len(s.PlayedIDs))
	for id := range s.PlayedIDs {
		out.PlayedIDs[id] = struct{}{}
	}
	out.PhaseCounts = make(map[models.Phase]int, len(s.PhaseCounts))
	for phase, n := range s.PhaseCounts {
		out.PhaseCounts[phase] = n
	}
	return out
}

// Candidate is a shortlist entry after engine-level re-ranking.
type Candidate struct {
	Track    models.Track `json:"track"`
	Score    compat.Score `json:"score"`
	Adjusted float64      `json:"adjusted"`
}

// Selection is the outcome of one pick, echoed to the caller so it can
// queue the track and narrate the decision.
type Selection struct {
	Track        models.Track `json:"track"`
	Score        compat.Score `json:"score"`
	Phase        models.Phase `json:"phase"`
	EnergyTarget float64      `json:"energy_target"`
	Position     int          `json:"position"`
	CrossfadeSec int          `json:"crossfade_sec"`
	Shortlist    []Candidate  `json:"shortlist,omitempty"`
}

// Engine is the stateful controller of a set. One engine runs one session
// at a time; hosts running many parties own one engine each. All methods
// are safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	scorer   *compat.Scorer
	settings Settings
	rng      *rand.Rand
	now      func() time.Time
	logger   zerolog.Logger

	pool    []models.Track
	poolIdx map[string]int
	sess    *SessionState
}

// New creates an engine with a time-seeded random source.
func New(scorer *compat.Scorer, settings Settings, logger zerolog.Logger) (*Engine, error) {
	return NewSeeded(scorer, settings, time.Now().UnixNano(), logger)
}

// NewSeeded creates an engine whose weighted picks replay exactly for a
// given seed.
func NewSeeded(scorer *compat.Scorer, settings Settings, seed int64, logger zerolog.Logger) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		scorer:   scorer,
		settings: settings,
		rng:      rand.New(rand.NewSource(seed)),
		now:      time.Now,
		logger:   logger.With().Str("component", "session_engine").Logger(),
		poolIdx:  map[string]int{},
	}, nil
}

// Active reports whether a session is running.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess != nil
}

// Settings returns the engine's current settings.
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// SetSettings replaces the engine's settings wholesale, validating first.
// Used when a profile is applied; history is untouched.
func (e *Engine) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s
	return nil
}

// SetClock overrides the engine's time source. Offline simulation and
// tests use it to drive the phase schedule without waiting.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// UpdateSettings merges a partial update into the current settings. The
// merged result applies from the next selection on; history is untouched.
func (e *Engine) UpdateSettings(p Patch) (Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	merged, err := e.settings.Merge(p)
	if err != nil {
		return Settings{}, err
	}
	e.settings = merged
	e.logger.Info().Msg("settings updated")
	return merged, nil
}

// AddTracks appends new candidates to the pool, deduplicating by id.
// Tracks are selectable immediately. Returns how many were added.
func (e *Engine) AddTracks(tracks []models.Track) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addTracks(tracks)
}

func (e *Engine) addTracks(tracks []models.Track) int {
	added := 0
	for _, track := range tracks {
		if track.ID == "" {
			continue
		}
		if _, ok := e.poolIdx[track.ID]; ok {
			continue
		}
		e.poolIdx[track.ID] = len(e.pool)
		e.pool = append(e.pool, track)
		added++
	}
	if added > 0 {
		e.logger.Debug().Int("added", added).Int("pool", len(e.pool)).Msg("pool extended")
	}
	return added
}

// PoolSize returns the number of candidate tracks the engine holds.
func (e *Engine) PoolSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pool)
}

// Start opens a new set. A non-empty tracks argument replaces the pool;
// an empty one keeps whatever AddTracks accumulated. The opening track is
// chosen by a dedicated heuristic since there is nothing to mix from yet.
func (e *Engine) Start(tracks []models.Track) (Selection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess != nil {
		return Selection{}, ErrActiveSession
	}
	if len(tracks) > 0 {
		e.pool = nil
		e.poolIdx = map[string]int{}
		e.addTracks(tracks)
	}
	if len(e.pool) == 0 {
		return Selection{}, ErrEmptyPool
	}

	opening := pickOpening(e.pool)
	now := e.now()

	idx := e.poolIdx[opening.ID]
	e.pool[idx].PlayCount++
	e.pool[idx].LastPlayed = timePtr(now)
	played := e.pool[idx]

	e.sess = &SessionState{
		ID:           uuid.NewString(),
		StartedAt:    now,
		History:      []models.Track{played},
		PlayedIDs:    map[string]struct{}{played.ID: {}},
		Phase:        models.PhaseWarmup,
		EnergyTarget: 0.4,
		PhaseCounts:  map[models.Phase]int{models.PhaseWarmup: 1},
	}

	e.logger.Info().
		Str("session_id", e.sess.ID).
		Str("track_id", played.ID).
		Int("pool", len(e.pool)).
		Msg("session started")

	return Selection{
		Track:        played,
		Phase:        models.PhaseWarmup,
		EnergyTarget: 0.4,
		Position:     1,
		CrossfadeSec: e.settings.CrossfadeSeconds,
	}, nil
}

// Next picks the track to queue after the current one. The phase schedule
// is recomputed first, then the pool is filtered for repetition and
// cooldown, scored, re-ranked with listener signals, and the winner drawn
// from the shortlist by weighted randomization.
func (e *Engine) Next() (Selection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil || len(e.sess.History) == 0 {
		return Selection{}, ErrNoSession
	}

	now := e.now()
	phase, target := schedule(e.sess.StartedAt, now, e.settings)
	e.sess.Phase = phase
	e.sess.EnergyTarget = target

	current := e.sess.History[len(e.sess.History)-1]
	eligible := e.eligible(now)
	if len(eligible) == 0 {
		e.logger.Warn().
			Str("session_id", e.sess.ID).
			Int("pool", len(e.pool)).
			Msg("track pool exhausted")
		return Selection{}, ErrExhausted
	}

	ranked := e.scorer.FindBest(current.Features, eligible, phase, rankDepth)
	shortlist := e.rerank(ranked, target)

	pick := shortlist[pickWeighted(e.rng, e.settings.SelectionWeights, len(shortlist))]

	idx := e.poolIdx[pick.Track.ID]
	e.pool[idx].PlayCount++
	e.pool[idx].LastPlayed = timePtr(now)
	played := e.pool[idx]

	e.sess.History = append(e.sess.History, played)
	e.sess.PlayedIDs[played.ID] = struct{}{}
	e.sess.PhaseCounts[phase]++

	e.logger.Debug().
		Str("session_id", e.sess.ID).
		Str("track_id", played.ID).
		Str("phase", string(phase)).
		Float64("energy_target", target).
		Float64("score", pick.Score.Overall).
		Float64("adjusted", pick.Adjusted).
		Msg("track selected")

	return Selection{
		Track:        played,
		Score:        pick.Score,
		Phase:        phase,
		EnergyTarget: target,
		Position:     len(e.sess.History),
		CrossfadeSec: e.settings.CrossfadeSeconds,
		Shortlist:    shortlist,
	}, nil
}

// RecordSkip notes that the listener skipped a track. The count weighs
// against the track in later re-ranks.
func (e *Engine) RecordSkip(trackID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return ErrNoSession
	}
	idx, ok := e.poolIdx[trackID]
	if !ok {
		return ErrUnknownTrack
	}
	e.pool[idx].SkipCount++
	e.sess.Skips++

	e.logger.Debug().
		Str("session_id", e.sess.ID).
		Str("track_id", trackID).
		Int("skip_count", e.pool[idx].SkipCount).
		Msg("skip recorded")
	return nil
}

// End closes the set and hands back its record. The engine returns to the
// no-session state and keeps its pool for the next start.
func (e *Engine) End() (SessionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return SessionState{}, ErrNoSession
	}

	now := e.now()
	e.sess.EndedAt = timePtr(now)
	record := e.sess.clone()
	e.sess = nil

	e.logger.Info().
		Str("session_id", record.ID).
		Int("tracks_played", len(record.History)).
		Msg("session ended")
	return record, nil
}

// Snapshot returns a copy of the running session, if any.
func (e *Engine) Snapshot() (SessionState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return SessionState{}, false
	}
	return e.sess.clone(), true
}

// Current returns the track playing now, if a session is active.
func (e *Engine) Current() (models.Track, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil || len(e.sess.History) == 0 {
		return models.Track{}, false
	}
	return e.sess.History[len(e.sess.History)-1], true
}

// Stats summarizes the running session.
func (e *Engine) Stats() (Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return Stats{}, ErrNoSession
	}
	return computeStats(e.sess, e.now()), nil
}

// eligible filters the pool to tracks neither played this session nor
// inside the repetition cooldown window.
func (e *Engine) eligible(now time.Time) []models.Track {
	cooldown := time.Duration(e.settings.CooldownMinutes) * time.Minute

	out := make([]models.Track, 0, len(e.pool))
	for _, track := range e.pool {
		if _, played := e.sess.PlayedIDs[track.ID]; played {
			continue
		}
		if cooldown > 0 && track.LastPlayed != nil && now.Sub(*track.LastPlayed) < cooldown {
			continue
		}
		out = append(out, track)
	}
	return out
}

// rerank layers listener signals over the compatibility scores and trims
// to the shortlist the weighted pick draws from.
func (e *Engine) rerank(ranked []compat.Ranked, energyTarget float64) []Candidate {
	out := make([]Candidate, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, Candidate{
			Track:    r.Track,
			Score:    r.Score,
			Adjusted: adjustScore(r.Score.Overall, r.Track, e.settings, energyTarget),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Adjusted > out[j].Adjusted })

	size := len(e.settings.SelectionWeights)
	if size > len(out) {
		size = len(out)
	}
	return out[:size]
}

// pickWeighted draws an index from the cumulative weight distribution,
// falling back to the top candidate when rounding leaves no match.
func pickWeighted(rng *rand.Rand, weights []float64, n int) int {
	draw := rng.Float64()
	cum := 0.0
	for i := 0; i < n && i < len(weights); i++ {
		cum += weights[i]
		if draw < cum {
			return i
		}
	}
	return 0
}

func timePtr(t time.Time) *time.Time { return &t }
