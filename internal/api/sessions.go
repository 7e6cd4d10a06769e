/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/huginn_dj/internal/catalog"
	"github.com/friendsincode/huginn_dj/internal/events"
	"github.com/friendsincode/huginn_dj/internal/journal"
	"github.com/friendsincode/huginn_dj/internal/models"
	"github.com/friendsincode/huginn_dj/internal/session"
	"github.com/friendsincode/huginn_dj/internal/telemetry"
)

type sessionStartRequest struct {
	Profile  string         `json:"profile,omitempty"`
	Settings *session.Patch `json:"settings,omitempty"`
	Playlist string         `json:"playlist,omitempty"`
	Tracks   []models.Track `json:"tracks,omitempty"`
}

type tracksAddRequest struct {
	Playlist string         `json:"playlist,omitempty"`
	Tracks   []models.Track `json:"tracks,omitempty"`
}

type skipRequest struct {
	TrackID string `json:"track_id,omitempty"`
}

func (a *API) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	profileID := req.Profile
	if profileID == "" {
		profileID = a.defaultProfile
	}
	settings, ok := a.profiles.Get(profileID)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_profile")
		return
	}
	if req.Settings != nil {
		merged, err := settings.Merge(*req.Settings)
		if err != nil {
			a.logger.Warn().Err(err).Msg("invalid settings override")
			writeError(w, http.StatusBadRequest, "invalid_settings")
			return
		}
		settings = merged
	}
	if err := a.engine.SetSettings(settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_settings")
		return
	}

	tracks, err := a.resolveTracks(r, req.Playlist, req.Tracks)
	if err != nil {
		a.writeCatalogError(w, err)
		return
	}

	sel, err := a.engine.Start(tracks)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrActiveSession):
			writeError(w, http.StatusConflict, "session_active")
		case errors.Is(err, session.ErrEmptyPool):
			writeError(w, http.StatusBadRequest, "empty_pool")
		default:
			a.logger.Error().Err(err).Msg("session start failed")
			writeError(w, http.StatusInternalServerError, "start_failed")
		}
		return
	}

	snap, _ := a.engine.Snapshot()
	a.setSessionContext(profileID, sel.Phase)

	telemetry.SessionsStartedTotal.Inc()
	telemetry.SessionsActive.Set(1)
	telemetry.SelectionsTotal.WithLabelValues(string(sel.Phase)).Inc()
	telemetry.SessionEnergyTarget.Set(sel.EnergyTarget)
	telemetry.SessionPoolSize.Set(float64(a.engine.PoolSize()))

	a.bus.Publish(events.EventSessionStarted, events.Payload{
		"session_id": snap.ID,
		"profile":    profileID,
		"started_at": snap.StartedAt,
		"track_id":   sel.Track.ID,
		"position":   sel.Position,
		"phase":      string(sel.Phase),
		"energy":     sel.Track.Features.Energy,
		"tempo":      sel.Track.Features.Tempo,
		"played_at":  snap.StartedAt,
	})

	if err := a.player.Play(r.Context(), sel.Track.ID); err != nil {
		a.logger.Warn().Err(err).Str("track_id", sel.Track.ID).Msg("player play failed")
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": snap.ID,
		"started_at": snap.StartedAt,
		"profile":    profileID,
		"pool_size":  a.engine.PoolSize(),
		"selection":  sel,
	})
}

func (a *API) handleSessionCurrent(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.engine.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "no_active_session")
		return
	}
	current, _ := a.engine.Current()
	profileID, _ := a.sessionContext()

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":    snap.ID,
		"started_at":    snap.StartedAt,
		"profile":       profileID,
		"phase":         snap.Phase,
		"energy_target": snap.EnergyTarget,
		"position":      len(snap.History),
		"current":       current,
		"pool_size":     a.engine.PoolSize(),
	})
}

func (a *API) handleSessionNext(w http.ResponseWriter, r *http.Request) {
	previous, _ := a.engine.Current()

	sel, err := a.engine.Next()
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoSession):
			writeError(w, http.StatusNotFound, "no_active_session")
		case errors.Is(err, session.ErrExhausted):
			telemetry.SelectionExhaustedTotal.Inc()
			writeError(w, http.StatusConflict, "pool_exhausted")
		default:
			a.logger.Error().Err(err).Msg("selection failed")
			writeError(w, http.StatusInternalServerError, "selection_failed")
		}
		return
	}

	snap, _ := a.engine.Snapshot()

	telemetry.SelectionsTotal.WithLabelValues(string(sel.Phase)).Inc()
	telemetry.SelectionScore.Observe(sel.Score.Overall)
	telemetry.SessionEnergyTarget.Set(sel.EnergyTarget)

	if a.notePhase(sel.Phase) {
		a.bus.Publish(events.EventPhaseChanged, events.Payload{
			"session_id":    snap.ID,
			"phase":         string(sel.Phase),
			"energy_target": sel.EnergyTarget,
		})
	}

	shortlist := make([]models.ShortlistItem, 0, len(sel.Shortlist))
	for _, c := range sel.Shortlist {
		shortlist = append(shortlist, models.ShortlistItem{
			TrackID:  c.Track.ID,
			Name:     c.Track.Name,
			Score:    c.Score.Overall,
			Adjusted: c.Adjusted,
		})
	}

	a.bus.Publish(events.EventTrackSelected, events.Payload{
		"session_id": snap.ID,
		"track_id":   sel.Track.ID,
		"current_id": previous.ID,
		"position":   sel.Position,
		"phase":      string(sel.Phase),
		"energy":     sel.Track.Features.Energy,
		"tempo":      sel.Track.Features.Tempo,
		"played_at":  time.Now(),
		"candidates": len(sel.Shortlist),
		"shortlist":  shortlist,
	})

	if err := a.player.Queue(r.Context(), sel.Track.ID, sel.CrossfadeSec); err != nil {
		a.logger.Warn().Err(err).Str("track_id", sel.Track.ID).Msg("player queue failed")
	}

	writeJSON(w, http.StatusOK, sel)
}

func (a *API) handleSessionSkip(w http.ResponseWriter, r *http.Request) {
	var req skipRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
	}
	if req.TrackID == "" {
		current, ok := a.engine.Current()
		if !ok {
			writeError(w, http.StatusNotFound, "no_active_session")
			return
		}
		req.TrackID = current.ID
	}

	if err := a.engine.RecordSkip(req.TrackID); err != nil {
		switch {
		case errors.Is(err, session.ErrNoSession):
			writeError(w, http.StatusNotFound, "no_active_session")
		case errors.Is(err, session.ErrUnknownTrack):
			writeError(w, http.StatusNotFound, "unknown_track")
		default:
			writeError(w, http.StatusInternalServerError, "skip_failed")
		}
		return
	}

	snap, _ := a.engine.Snapshot()
	telemetry.SkipsTotal.Inc()
	a.bus.Publish(events.EventTrackSkipped, events.Payload{
		"session_id": snap.ID,
		"track_id":   req.TrackID,
	})

	if err := a.player.Skip(r.Context()); err != nil {
		a.logger.Warn().Err(err).Msg("player skip failed")
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "skipped", "track_id": req.TrackID})
}

func (a *API) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.engine.Settings())
}

func (a *API) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Profile string `json:"profile,omitempty"`
		session.Patch
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	// A profile switch rebases on the preset, then applies the patch on top.
	var settings session.Settings
	var err error
	if req.Profile != "" {
		base, ok := a.profiles.Get(req.Profile)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown_profile")
			return
		}
		settings, err = base.Merge(req.Patch)
		if err == nil {
			err = a.engine.SetSettings(settings)
		}
	} else {
		settings, err = a.engine.UpdateSettings(req.Patch)
	}
	if err != nil {
		a.logger.Warn().Err(err).Msg("settings update rejected")
		writeError(w, http.StatusBadRequest, "invalid_settings")
		return
	}
	if req.Profile != "" {
		_, phase := a.sessionContext()
		a.setSessionContext(req.Profile, phase)
	}

	snap, _ := a.engine.Snapshot()
	a.bus.Publish(events.EventSettingsUpdated, events.Payload{
		"session_id": snap.ID,
	})

	writeJSON(w, http.StatusOK, settings)
}

func (a *API) handleTracksAdd(w http.ResponseWriter, r *http.Request) {
	var req tracksAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	tracks, err := a.resolveTracks(r, req.Playlist, req.Tracks)
	if err != nil {
		a.writeCatalogError(w, err)
		return
	}
	if len(tracks) == 0 {
		writeError(w, http.StatusBadRequest, "no_tracks")
		return
	}

	added := a.engine.AddTracks(tracks)
	telemetry.SessionPoolSize.Set(float64(a.engine.PoolSize()))

	snap, _ := a.engine.Snapshot()
	a.bus.Publish(events.EventTracksAdded, events.Payload{
		"session_id": snap.ID,
		"count":      added,
	})

	writeJSON(w, http.StatusOK, map[string]int{
		"added":     added,
		"pool_size": a.engine.PoolSize(),
	})
}

func (a *API) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	record, err := a.engine.End()
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			writeError(w, http.StatusNotFound, "no_active_session")
			return
		}
		writeError(w, http.StatusInternalServerError, "end_failed")
		return
	}

	profileID, _ := a.sessionContext()
	a.setSessionContext("", "")
	telemetry.SessionsActive.Set(0)

	stats := session.RecordStats(record)
	a.bus.Publish(events.EventSessionEnded, events.Payload{
		"session_id":     record.ID,
		"ended_at":       *record.EndedAt,
		"tracks_played":  stats.TracksPlayed,
		"tracks_skipped": stats.Skips,
		"avg_energy":     stats.AverageEnergy,
	})

	var archiveKey string
	if a.archive != nil {
		key, err := a.archive.ArchiveSession(r.Context(), record, profileID)
		if err != nil {
			a.logger.Error().Err(err).Str("session_id", record.ID).Msg("session archive failed")
		} else {
			archiveKey = key
			a.bus.Publish(events.EventSessionArchived, events.Payload{
				"session_id":  record.ID,
				"archive_key": key,
			})
		}
	}

	if err := a.player.Pause(r.Context()); err != nil {
		a.logger.Warn().Err(err).Msg("player pause failed")
	}

	resp := map[string]any{
		"session": record,
		"stats":   stats,
	}
	if archiveKey != "" {
		resp["archive_key"] = archiveKey
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.engine.Stats()
	if err != nil {
		writeError(w, http.StatusNotFound, "no_active_session")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.engine.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "no_active_session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": snap.ID,
		"history":    snap.History,
	})
}

func (a *API) handleSessionsList(w http.ResponseWriter, r *http.Request) {
	filters := journal.QueryFilters{}

	if v := r.URL.Query().Get("profile"); v != "" {
		filters.Profile = &v
	}
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from")
			return
		}
		filters.StartTime = &parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to")
			return
		}
		filters.EndTime = &parsed
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			filters.Limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			filters.Offset = parsed
		}
	}

	records, total, err := a.journal.Sessions(r.Context(), filters)
	if err != nil {
		a.logger.Error().Err(err).Msg("session query failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": records,
		"total":    total,
	})
}

func (a *API) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id_required")
		return
	}

	record, err := a.journal.Session(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, journal.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	plays, err := a.journal.PlayEvents(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	selections, err := a.journal.Selections(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session":    record,
		"plays":      plays,
		"selections": selections,
	})
}

// resolveTracks combines catalog playlist resolution with inline tracks.
// Inline tracks are validated the same way provider tracks are.
func (a *API) resolveTracks(r *http.Request, playlist string, inline []models.Track) ([]models.Track, error) {
	var tracks []models.Track

	if playlist != "" {
		if a.catalog == nil {
			return nil, errNoCatalog
		}
		resolved, err := a.catalog.PlaylistTracks(r.Context(), playlist)
		if err != nil {
			return nil, err
		}
		tracks = resolved
	}

	for _, track := range inline {
		if track.ID == "" {
			continue
		}
		if err := catalog.ValidateFeatures(track.Features); err != nil {
			a.logger.Warn().Str("track_id", track.ID).Err(err).Msg("rejecting inline track")
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

var errNoCatalog = errors.New("no catalog backend configured")

func (a *API) writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNoCatalog):
		writeError(w, http.StatusBadRequest, "no_catalog_backend")
	case errors.Is(err, catalog.ErrPlaylistNotFound):
		writeError(w, http.StatusNotFound, "playlist_not_found")
	case errors.Is(err, catalog.ErrNoUsableTracks):
		writeError(w, http.StatusUnprocessableEntity, "no_usable_tracks")
	default:
		a.logger.Error().Err(err).Msg("catalog request failed")
		writeError(w, http.StatusBadGateway, "catalog_error")
	}
}
