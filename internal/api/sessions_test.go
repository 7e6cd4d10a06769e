package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/huginn_dj/internal/auth"
	"github.com/friendsincode/huginn_dj/internal/compat"
	"github.com/friendsincode/huginn_dj/internal/events"
	"github.com/friendsincode/huginn_dj/internal/journal"
	"github.com/friendsincode/huginn_dj/internal/models"
	"github.com/friendsincode/huginn_dj/internal/player"
	"github.com/friendsincode/huginn_dj/internal/profile"
	"github.com/friendsincode/huginn_dj/internal/session"
)

var testSecret = []byte("test-secret")

func newTestAPI(t *testing.T) (*chi.Mux, string) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.APIKey{}, &models.SessionRecord{}, &models.PlayEvent{}, &models.SelectionEntry{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	scorer, err := compat.New(compat.DefaultWeights())
	if err != nil {
		t.Fatalf("new scorer: %v", err)
	}
	engine, err := session.NewSeeded(scorer, session.DefaultSettings(), 42, zerolog.Nop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	bus := events.NewBus()
	jrnl := journal.NewService(db, bus, zerolog.Nop())

	a := New(db, testSecret, engine, scorer, nil, player.NewNop(zerolog.Nop()), nil, jrnl, profile.NewStore(), bus, "club", zerolog.Nop())

	r := chi.NewRouter()
	a.Routes(r)

	token, err := auth.Issue(testSecret, auth.Claims{Name: "test"}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return r, token
}

func seedTracks(n int) []models.Track {
	tracks := make([]models.Track, 0, n)
	for i := 0; i < n; i++ {
		tracks = append(tracks, models.Track{
			ID:     fmt.Sprintf("track-%02d", i),
			Name:   fmt.Sprintf("Track %02d", i),
			Artist: "Tester",
			Features: models.AudioFeatures{
				Tempo:        118 + float64(i)*2,
				Energy:       0.3 + float64(i%7)*0.1,
				Danceability: 0.6,
				Valence:      0.5,
				Key:          i % 12,
				Mode:         i % 2,
				DurationMS:   210000,
			},
		})
	}
	return tracks
}

func doRequest(t *testing.T, r http.Handler, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestSessionLifecycle(t *testing.T) {
	r, token := newTestAPI(t)

	// Start with inline tracks.
	rr := doRequest(t, r, token, http.MethodPost, "/api/v1/sessions", map[string]any{
		"profile": "club",
		"tracks":  seedTracks(8),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var started struct {
		SessionID string            `json:"session_id"`
		PoolSize  int               `json:"pool_size"`
		Selection session.Selection `json:"selection"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if started.SessionID == "" || started.PoolSize != 8 {
		t.Fatalf("unexpected start response: %+v", started)
	}
	if started.Selection.Position != 1 {
		t.Errorf("opening position = %d, want 1", started.Selection.Position)
	}

	// Current session reflects the opening track.
	rr = doRequest(t, r, token, http.MethodGet, "/api/v1/sessions/current", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("current: expected 200, got %d", rr.Code)
	}

	// Advance twice.
	for want := 2; want <= 3; want++ {
		rr = doRequest(t, r, token, http.MethodPost, "/api/v1/sessions/current/next", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("next: expected 200, got %d body=%s", rr.Code, rr.Body.String())
		}
		var sel session.Selection
		if err := json.Unmarshal(rr.Body.Bytes(), &sel); err != nil {
			t.Fatalf("decode selection: %v", err)
		}
		if sel.Position != want {
			t.Errorf("position = %d, want %d", sel.Position, want)
		}
		if len(sel.Shortlist) == 0 {
			t.Error("selection carries no shortlist")
		}
	}

	// Skip the current track.
	rr = doRequest(t, r, token, http.MethodPost, "/api/v1/sessions/current/skip", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("skip: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	// Patch settings mid-set.
	rr = doRequest(t, r, token, http.MethodPatch, "/api/v1/sessions/current/settings", map[string]any{
		"cooldown_minutes": 30,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("settings: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var settings session.Settings
	if err := json.Unmarshal(rr.Body.Bytes(), &settings); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if settings.CooldownMinutes != 30 {
		t.Errorf("cooldown = %d, want 30", settings.CooldownMinutes)
	}

	// Stats and history are live.
	rr = doRequest(t, r, token, http.MethodGet, "/api/v1/sessions/current/stats", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", rr.Code)
	}
	var stats session.Stats
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TracksPlayed != 3 {
		t.Errorf("tracks played = %d, want 3", stats.TracksPlayed)
	}
	if stats.Skips != 1 {
		t.Errorf("skips = %d, want 1", stats.Skips)
	}

	rr = doRequest(t, r, token, http.MethodGet, "/api/v1/sessions/current/history", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", rr.Code)
	}

	// End the set.
	rr = doRequest(t, r, token, http.MethodDelete, "/api/v1/sessions/current", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("end: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var ended struct {
		Session session.SessionState `json:"session"`
		Stats   session.Stats        `json:"stats"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &ended); err != nil {
		t.Fatalf("decode end response: %v", err)
	}
	if ended.Session.EndedAt == nil {
		t.Error("ended session has no end time")
	}
	if ended.Stats.TracksPlayed != 3 {
		t.Errorf("final tracks played = %d, want 3", ended.Stats.TracksPlayed)
	}

	// Everything current-scoped is gone now.
	rr = doRequest(t, r, token, http.MethodGet, "/api/v1/sessions/current", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("current after end: expected 404, got %d", rr.Code)
	}
}

func TestSessionStartConflicts(t *testing.T) {
	r, token := newTestAPI(t)

	rr := doRequest(t, r, token, http.MethodPost, "/api/v1/sessions", map[string]any{
		"tracks": seedTracks(4),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d", rr.Code)
	}

	rr = doRequest(t, r, token, http.MethodPost, "/api/v1/sessions", map[string]any{
		"tracks": seedTracks(4),
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("second start: expected 409, got %d", rr.Code)
	}
}

func TestSessionStartValidation(t *testing.T) {
	r, token := newTestAPI(t)

	rr := doRequest(t, r, token, http.MethodPost, "/api/v1/sessions", map[string]any{
		"profile": "warehouse",
		"tracks":  seedTracks(4),
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown profile: expected 400, got %d", rr.Code)
	}

	rr = doRequest(t, r, token, http.MethodPost, "/api/v1/sessions", map[string]any{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty pool: expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, r, token, http.MethodPost, "/api/v1/sessions", map[string]any{
		"playlist": "spotify:playlist:abc",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("playlist without catalog: expected 400, got %d", rr.Code)
	}
}

func TestTracksAddExtendsPool(t *testing.T) {
	r, token := newTestAPI(t)

	rr := doRequest(t, r, token, http.MethodPost, "/api/v1/sessions", map[string]any{
		"tracks": seedTracks(4),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d", rr.Code)
	}

	more := seedTracks(8) // first 4 ids collide with the existing pool
	rr = doRequest(t, r, token, http.MethodPost, "/api/v1/sessions/current/tracks", map[string]any{
		"tracks": more,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("add tracks: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Added    int `json:"added"`
		PoolSize int `json:"pool_size"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode add response: %v", err)
	}
	if resp.Added != 4 || resp.PoolSize != 8 {
		t.Fatalf("added=%d pool=%d, want 4 and 8", resp.Added, resp.PoolSize)
	}
}

func TestSettingsProfileSwitch(t *testing.T) {
	r, token := newTestAPI(t)

	rr := doRequest(t, r, token, http.MethodPost, "/api/v1/sessions", map[string]any{
		"tracks": seedTracks(6),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d", rr.Code)
	}

	// Switch to the lounge preset with one override on top.
	rr = doRequest(t, r, token, http.MethodPatch, "/api/v1/sessions/current/settings", map[string]any{
		"profile":          "lounge",
		"cooldown_minutes": 45,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("profile switch: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var settings session.Settings
	if err := json.Unmarshal(rr.Body.Bytes(), &settings); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if settings.PeakHour != 21 {
		t.Errorf("peak hour = %d, want lounge's 21", settings.PeakHour)
	}
	if settings.CooldownMinutes != 45 {
		t.Errorf("cooldown = %d, want overridden 45", settings.CooldownMinutes)
	}

	rr = doRequest(t, r, token, http.MethodPatch, "/api/v1/sessions/current/settings", map[string]any{
		"profile": "warehouse",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown profile: expected 400, got %d", rr.Code)
	}
}

func TestEndpointsRequireAuth(t *testing.T) {
	r, _ := newTestAPI(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/sessions"},
		{http.MethodGet, "/api/v1/sessions/current"},
		{http.MethodPost, "/api/v1/sessions/current/next"},
		{http.MethodPost, "/api/v1/score"},
		{http.MethodGet, "/api/v1/profiles"},
	}
	for _, tt := range paths {
		rr := doRequest(t, r, "", tt.method, tt.path, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without auth: expected 401, got %d", tt.method, tt.path, rr.Code)
		}
	}

	// Health stays public.
	rr := doRequest(t, r, "", http.MethodGet, "/api/v1/health", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", rr.Code)
	}
}

func TestProfilesList(t *testing.T) {
	r, token := newTestAPI(t)

	rr := doRequest(t, r, token, http.MethodGet, "/api/v1/profiles", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("profiles: expected 200, got %d", rr.Code)
	}
	var resp struct {
		Default  string                      `json:"default"`
		Profiles map[string]session.Settings `json:"profiles"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode profiles: %v", err)
	}
	if resp.Default != "club" {
		t.Errorf("default profile = %q, want club", resp.Default)
	}
	if _, ok := resp.Profiles["wedding"]; !ok {
		t.Error("wedding profile missing")
	}
}
