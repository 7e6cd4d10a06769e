/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
)

func (a *API) handleProfilesList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default":  a.defaultProfile,
		"profiles": a.profiles.All(),
	})
}

func (a *API) handleCatalogSearch(w http.ResponseWriter, r *http.Request) {
	if a.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "no_catalog_backend")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query_required")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	tracks, err := a.catalog.Search(r.Context(), query, limit)
	if err != nil {
		a.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}
