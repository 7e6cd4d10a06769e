package archive

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/huginn_dj/internal/models"
	"github.com/friendsincode/huginn_dj/internal/session"
)

func testState() session.SessionState {
	started := time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)
	ended := started.Add(3 * time.Hour)
	return session.SessionState{
		ID:        "a1b2c3",
		StartedAt: started,
		EndedAt:   &ended,
		History: []models.Track{
			{ID: "t1", Name: "Opener", Features: models.AudioFeatures{Tempo: 120, Energy: 0.4}},
			{ID: "t2", Name: "Closer", Features: models.AudioFeatures{Tempo: 124, Energy: 0.6}},
		},
		PlayedIDs:   map[string]struct{}{"t1": {}, "t2": {}},
		Phase:       models.PhaseCooldown,
		Skips:       1,
		PhaseCounts: map[models.Phase]int{models.PhaseWarmup: 1, models.PhaseCooldown: 1},
	}
}

func TestArchiveSessionKeyLayout(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(store, "fs", zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 1, 30, 0, 0, time.UTC) }

	key, err := svc.ArchiveSession(context.Background(), testState(), "club")
	if err != nil {
		t.Fatalf("ArchiveSession: %v", err)
	}
	if key != "sessions/2026-03-14/a1b2c3.json" {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(store, "fs", zerolog.Nop())

	state := testState()
	key, err := svc.ArchiveSession(context.Background(), state, "wedding")
	if err != nil {
		t.Fatalf("ArchiveSession: %v", err)
	}

	doc, err := svc.Fetch(context.Background(), key)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc.Profile != "wedding" {
		t.Errorf("profile = %q, want wedding", doc.Profile)
	}
	if doc.Session.ID != state.ID {
		t.Errorf("session id = %q, want %q", doc.Session.ID, state.ID)
	}
	if len(doc.Session.History) != 2 {
		t.Errorf("history length = %d, want 2", len(doc.Session.History))
	}
	if doc.Stats.TracksPlayed != 2 {
		t.Errorf("stats tracks played = %d, want 2", doc.Stats.TracksPlayed)
	}
	if doc.Stats.Skips != 1 {
		t.Errorf("stats skips = %d, want 1", doc.Stats.Skips)
	}
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"../outside.json", "/etc/passwd", "a/../../b.json", "."} {
		if err := store.Put(context.Background(), key, []byte("x")); err == nil {
			t.Errorf("Put(%q) accepted an escaping key", key)
		} else if !strings.Contains(err.Error(), "invalid archive key") {
			t.Errorf("Put(%q) unexpected error: %v", key, err)
		}
	}
}

func TestFSStoreMissingObject(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(context.Background(), "sessions/2026-01-01/missing.json"); err == nil {
		t.Fatal("expected error for missing object")
	}
}
