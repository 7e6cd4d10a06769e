package catalog

import (
	"testing"

	"github.com/friendsincode/huginn_dj/internal/models"
)

func validFeatures() models.AudioFeatures {
	return models.AudioFeatures{
		Tempo:        124,
		Energy:       0.7,
		Danceability: 0.8,
		Valence:      0.5,
		Key:          8,
		Mode:         1,
	}
}

func TestValidateFeatures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.AudioFeatures)
		wantErr bool
	}{
		{"valid", func(f *models.AudioFeatures) {}, false},
		{"unknown key and mode", func(f *models.AudioFeatures) {
			f.Key = models.KeyUnknown
			f.Mode = models.KeyUnknown
		}, false},
		{"zero tempo", func(f *models.AudioFeatures) { f.Tempo = 0 }, true},
		{"negative tempo", func(f *models.AudioFeatures) { f.Tempo = -90 }, true},
		{"energy above one", func(f *models.AudioFeatures) { f.Energy = 1.01 }, true},
		{"negative valence", func(f *models.AudioFeatures) { f.Valence = -0.1 }, true},
		{"key too high", func(f *models.AudioFeatures) { f.Key = 12 }, true},
		{"key too low", func(f *models.AudioFeatures) { f.Key = -2 }, true},
		{"bad mode", func(f *models.AudioFeatures) { f.Mode = 2 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFeatures()
			tt.mutate(&f)
			err := ValidateFeatures(f)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateFeatures() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{"37i9dQZF1DXcBWIGoYBM5M", "37i9dQZF1DXcBWIGoYBM5M", false},
		{"spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", "37i9dQZF1DXcBWIGoYBM5M", false},
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", "37i9dQZF1DXcBWIGoYBM5M", false},
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc123", "37i9dQZF1DXcBWIGoYBM5M", false},
		{"", "", true},
		{"https://open.spotify.com/playlist/", "", true},
		{"https://example.com/whatever", "", true},
	}
	for _, tt := range tests {
		got, err := extractPlaylistID(tt.ref)
		if (err != nil) != tt.wantErr {
			t.Errorf("extractPlaylistID(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("extractPlaylistID(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}
