/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/huginn_dj/internal/archive"
	"github.com/friendsincode/huginn_dj/internal/auth"
	"github.com/friendsincode/huginn_dj/internal/catalog"
	"github.com/friendsincode/huginn_dj/internal/compat"
	"github.com/friendsincode/huginn_dj/internal/events"
	"github.com/friendsincode/huginn_dj/internal/journal"
	"github.com/friendsincode/huginn_dj/internal/models"
	"github.com/friendsincode/huginn_dj/internal/player"
	"github.com/friendsincode/huginn_dj/internal/profile"
	"github.com/friendsincode/huginn_dj/internal/session"
)

// API exposes HTTP handlers.
type API struct {
	db             *gorm.DB
	jwtSecret      []byte
	engine         *session.Engine
	scorer         *compat.Scorer
	catalog        catalog.Provider
	player         player.Controller
	archive        *archive.Service
	journal        *journal.Service
	profiles       *profile.Store
	bus            *events.Bus
	defaultProfile string
	logger         zerolog.Logger

	// mu guards per-session API state the engine does not track.
	mu        sync.Mutex
	profileID string
	lastPhase models.Phase
}

// New creates the API router wrapper. catalog and archive may be nil when
// no backend is configured; player must be non-nil (use player.Nop).
func New(db *gorm.DB, jwtSecret []byte, engine *session.Engine, scorer *compat.Scorer, cat catalog.Provider, ctrl player.Controller, arch *archive.Service, jrnl *journal.Service, profiles *profile.Store, bus *events.Bus, defaultProfile string, logger zerolog.Logger) *API {
	return &API{
		db:             db,
		jwtSecret:      jwtSecret,
		engine:         engine,
		scorer:         scorer,
		catalog:        cat,
		player:         ctrl,
		archive:        arch,
		journal:        jrnl,
		profiles:       profiles,
		bus:            bus,
		defaultProfile: defaultProfile,
		logger:         logger,
	}
}

// Routes mounts API routes on the provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware())

			pr.Route("/sessions", func(r chi.Router) {
				r.Post("/", a.handleSessionStart)
				r.Get("/", a.handleSessionsList)

				r.Route("/current", func(r chi.Router) {
					r.Get("/", a.handleSessionCurrent)
					r.Delete("/", a.handleSessionEnd)
					r.Post("/next", a.handleSessionNext)
					r.Post("/skip", a.handleSessionSkip)
					r.Patch("/settings", a.handleSettingsUpdate)
					r.Get("/settings", a.handleSettingsGet)
					r.Post("/tracks", a.handleTracksAdd)
					r.Get("/stats", a.handleSessionStats)
					r.Get("/history", a.handleSessionHistory)
				})

				r.Get("/{sessionID}", a.handleSessionGet)
			})

			pr.Post("/score", a.handleScorePair)
			pr.Post("/score/rank", a.handleScoreRank)

			pr.Get("/profiles", a.handleProfilesList)
			pr.Get("/catalog/search", a.handleCatalogSearch)

			pr.Route("/apikeys", func(r chi.Router) {
				r.Get("/", a.handleAPIKeysList)
				r.Post("/", a.handleAPIKeysCreate)
				r.Delete("/{keyID}", a.handleAPIKeysRevoke)
			})

			pr.Get("/events", a.handleEvents)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) authMiddleware() func(http.Handler) http.Handler {
	return auth.Middleware(a.db, a.jwtSecret)
}

// setSessionContext records the per-session state the engine does not own.
func (a *API) setSessionContext(profileID string, phase models.Phase) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.profileID = profileID
	a.lastPhase = phase
}

// sessionContext returns the active profile and last observed phase.
func (a *API) sessionContext() (string, models.Phase) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profileID, a.lastPhase
}

// notePhase updates the last observed phase, reporting whether it changed.
func (a *API) notePhase(phase models.Phase) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	changed := a.lastPhase != "" && a.lastPhase != phase
	a.lastPhase = phase
	return changed
}

func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		out = append(out, events.EventType(strings.TrimSpace(part)))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
