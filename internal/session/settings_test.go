package session

import (
	"testing"
)

func TestDefaultSettingsValid(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("DefaultSettings().Validate() = %v, want nil", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	valid := DefaultSettings()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(s *Settings) {}, false},
		{"negative cooldown", func(s *Settings) { s.CooldownMinutes = -1 }, true},
		{"negative crossfade", func(s *Settings) { s.CrossfadeSeconds = -5 }, true},
		{"mood preference above one", func(s *Settings) { s.MoodPreference = 1.5 }, true},
		{"peak hour out of range", func(s *Settings) { s.PeakHour = 24 }, true},
		{"zero session length", func(s *Settings) { s.SessionLengthMinutes = 0 }, true},
		{"empty selection weights", func(s *Settings) { s.SelectionWeights = nil }, true},
		{"weights not summing to one", func(s *Settings) { s.SelectionWeights = []float64{0.5, 0.3} }, true},
		{"negative weight", func(s *Settings) { s.SelectionWeights = []float64{1.2, -0.2} }, true},
		{"single full weight", func(s *Settings) { s.SelectionWeights = []float64{1.0} }, false},
		{"zero cooldown allowed", func(s *Settings) { s.CooldownMinutes = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			s.SelectionWeights = append([]float64(nil), valid.SelectionWeights...)
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettingsMerge(t *testing.T) {
	base := DefaultSettings()

	cooldown := 30
	mood := 0.9
	merged, err := base.Merge(Patch{
		CooldownMinutes: &cooldown,
		MoodPreference:  &mood,
		FavoriteGenres:  []string{"electronic"},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if merged.CooldownMinutes != 30 {
		t.Errorf("merged cooldown = %d, want 30", merged.CooldownMinutes)
	}
	if merged.MoodPreference != 0.9 {
		t.Errorf("merged mood preference = %v, want 0.9", merged.MoodPreference)
	}
	if len(merged.FavoriteGenres) != 1 || merged.FavoriteGenres[0] != "electronic" {
		t.Errorf("merged favorite genres = %v", merged.FavoriteGenres)
	}

	// Untouched knobs keep their values.
	if merged.PeakHour != base.PeakHour || merged.CrossfadeSeconds != base.CrossfadeSeconds {
		t.Error("Merge() changed fields the patch did not name")
	}
	// The original is never mutated.
	if base.CooldownMinutes != 60 || base.FavoriteGenres != nil {
		t.Error("Merge() mutated the receiver")
	}
}

func TestSettingsMergeRejectsInvalid(t *testing.T) {
	base := DefaultSettings()

	bad := -10
	if _, err := base.Merge(Patch{CooldownMinutes: &bad}); err == nil {
		t.Fatal("Merge() with negative cooldown should fail")
	}

	if _, err := base.Merge(Patch{SelectionWeights: []float64{0.9, 0.3}}); err == nil {
		t.Fatal("Merge() with weights summing past 1 should fail")
	}
}

func TestSettingsMergeCopiesSlices(t *testing.T) {
	base := DefaultSettings()

	weights := []float64{0.6, 0.4}
	merged, err := base.Merge(Patch{SelectionWeights: weights})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	weights[0] = 99
	if merged.SelectionWeights[0] != 0.6 {
		t.Error("Merge() aliased the patch slice")
	}
}
