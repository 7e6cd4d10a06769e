/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/huginn_dj/internal/auth"
)

type apiKeyCreateRequest struct {
	Name          string `json:"name"`
	ExpiresInDays int    `json:"expires_in_days,omitempty"`
}

func (a *API) handleAPIKeysCreate(w http.ResponseWriter, r *http.Request) {
	var req apiKeyCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}
	if req.ExpiresInDays <= 0 {
		req.ExpiresInDays = 365
	}

	plaintext, key, err := auth.GenerateAPIKey(req.Name, time.Duration(req.ExpiresInDays)*24*time.Hour)
	if err != nil {
		a.logger.Error().Err(err).Msg("api key generation failed")
		writeError(w, http.StatusInternalServerError, "key_generation_failed")
		return
	}

	if err := a.db.WithContext(r.Context()).Create(key).Error; err != nil {
		a.logger.Error().Err(err).Msg("api key persist failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	// The plaintext key is shown exactly once.
	writeJSON(w, http.StatusCreated, map[string]any{
		"key":        plaintext,
		"id":         key.ID,
		"name":       key.Name,
		"expires_at": key.ExpiresAt,
	})
}

func (a *API) handleAPIKeysList(w http.ResponseWriter, r *http.Request) {
	keys, err := auth.ListAPIKeys(a.db.WithContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

func (a *API) handleAPIKeysRevoke(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "keyID")
	if keyID == "" {
		writeError(w, http.StatusBadRequest, "key_id_required")
		return
	}
	if err := auth.RevokeAPIKey(a.db.WithContext(r.Context()), keyID); err != nil {
		writeError(w, http.StatusInternalServerError, "revoke_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
