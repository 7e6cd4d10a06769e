package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/huginn_dj/internal/models"
)

func testTrack(id, name, artist string, tempo, energy float64) models.Track {
	return models.Track{
		ID:     id,
		Name:   name,
		Artist: artist,
		Features: models.AudioFeatures{
			Tempo:  tempo,
			Energy: energy,
			Key:    models.KeyUnknown,
			Mode:   models.KeyUnknown,
		},
	}
}

func TestStaticProviderDropsInvalidTracks(t *testing.T) {
	tracks := []models.Track{
		testTrack("a", "Alpha", "Artist One", 120, 0.6),
		testTrack("", "No ID", "Artist Two", 120, 0.6),
		testTrack("c", "Bad Tempo", "Artist Three", 0, 0.6),
		testTrack("d", "Bad Energy", "Artist Four", 128, 1.5),
	}

	p := NewStaticProvider(tracks, zerolog.Nop())
	if p.Size() != 1 {
		t.Fatalf("expected 1 usable track, got %d", p.Size())
	}
}

func TestStaticProviderPlaylistTracks(t *testing.T) {
	p := NewStaticProvider([]models.Track{
		testTrack("a", "Alpha", "One", 120, 0.5),
		testTrack("b", "Beta", "Two", 126, 0.7),
	}, zerolog.Nop())

	for _, ref := range []string{"", "all", "ALL"} {
		got, err := p.PlaylistTracks(context.Background(), ref)
		if err != nil {
			t.Fatalf("PlaylistTracks(%q): %v", ref, err)
		}
		if len(got) != 2 {
			t.Fatalf("PlaylistTracks(%q) returned %d tracks, want 2", ref, len(got))
		}
	}

	if _, err := p.PlaylistTracks(context.Background(), "some-playlist"); !errors.Is(err, ErrPlaylistNotFound) {
		t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
	}
}

func TestStaticProviderSearch(t *testing.T) {
	p := NewStaticProvider([]models.Track{
		testTrack("a", "Midnight City", "M83", 105, 0.8),
		testTrack("b", "City Lights", "Someone", 122, 0.6),
		testTrack("c", "Quiet Hours", "M83", 90, 0.3),
	}, zerolog.Nop())

	tests := []struct {
		query string
		limit int
		want  int
	}{
		{"city", 10, 2},
		{"m83", 10, 2},
		{"m83", 1, 1},
		{"nothing", 10, 0},
		{"", 10, 3},
	}
	for _, tt := range tests {
		got, err := p.Search(context.Background(), tt.query, tt.limit)
		if err != nil {
			t.Fatalf("Search(%q): %v", tt.query, err)
		}
		if len(got) != tt.want {
			t.Errorf("Search(%q, %d) returned %d tracks, want %d", tt.query, tt.limit, len(got), tt.want)
		}
	}
}

func TestLoadFileFormats(t *testing.T) {
	dir := t.TempDir()
	tracks := []models.Track{
		testTrack("a", "Alpha", "One", 120, 0.5),
		testTrack("b", "Beta", "Two", 126, 0.7),
	}

	bare, err := json.Marshal(tracks)
	if err != nil {
		t.Fatal(err)
	}
	wrapped, err := json.Marshal(map[string]any{"tracks": tracks})
	if err != nil {
		t.Fatal(err)
	}

	for name, data := range map[string][]byte{"bare.json": bare, "wrapped.json": wrapped} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		p, err := LoadFile(path, zerolog.Nop())
		if err != nil {
			t.Fatalf("LoadFile(%s): %v", name, err)
		}
		if p.Size() != 2 {
			t.Fatalf("LoadFile(%s) loaded %d tracks, want 2", name, p.Size())
		}
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.json"), zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing file")
	}

	garbage := filepath.Join(dir, "garbage.json")
	if err := os.WriteFile(garbage, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(garbage, zerolog.Nop()); err == nil {
		t.Fatal("expected error for malformed file")
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(empty, zerolog.Nop()); !errors.Is(err, ErrNoUsableTracks) {
		t.Fatalf("expected ErrNoUsableTracks, got %v", err)
	}
}
