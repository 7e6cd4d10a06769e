/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/friendsincode/huginn_dj/internal/catalog"
	"github.com/friendsincode/huginn_dj/internal/models"
)

type scoreRequest struct {
	Current   models.AudioFeatures `json:"current"`
	Candidate models.AudioFeatures `json:"candidate"`
	Phase     models.Phase         `json:"phase,omitempty"`
}

type rankRequest struct {
	Current    models.AudioFeatures `json:"current"`
	Candidates []models.Track       `json:"candidates"`
	Phase      models.Phase         `json:"phase,omitempty"`
	Limit      int                  `json:"limit,omitempty"`
}

// handleScorePair scores one transition without touching session state.
func (a *API) handleScorePair(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := catalog.ValidateFeatures(req.Current); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_current_features")
		return
	}
	if err := catalog.ValidateFeatures(req.Candidate); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_candidate_features")
		return
	}
	phase, ok := normalizePhase(req.Phase)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_phase")
		return
	}

	score := a.scorer.Score(req.Current, req.Candidate, phase)
	writeJSON(w, http.StatusOK, score)
}

// handleScoreRank ranks a candidate batch against a current track.
func (a *API) handleScoreRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := catalog.ValidateFeatures(req.Current); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_current_features")
		return
	}
	if len(req.Candidates) == 0 {
		writeError(w, http.StatusBadRequest, "candidates_required")
		return
	}
	phase, ok := normalizePhase(req.Phase)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_phase")
		return
	}

	candidates := make([]models.Track, 0, len(req.Candidates))
	for _, track := range req.Candidates {
		if track.ID == "" {
			continue
		}
		if err := catalog.ValidateFeatures(track.Features); err != nil {
			a.logger.Warn().Str("track_id", track.ID).Err(err).Msg("rejecting rank candidate")
			continue
		}
		candidates = append(candidates, track)
	}
	if len(candidates) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no_valid_candidates")
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	ranked := a.scorer.FindBest(req.Current, candidates, phase, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"phase":  phase,
		"ranked": ranked,
	})
}

// normalizePhase defaults an absent phase to peak and rejects unknown ones.
func normalizePhase(phase models.Phase) (models.Phase, bool) {
	switch phase {
	case "":
		return models.PhasePeak, true
	case models.PhaseWarmup, models.PhasePeak, models.PhaseCooldown:
		return phase, true
	default:
		return "", false
	}
}
