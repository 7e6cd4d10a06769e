/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package profile holds named settings presets. Built-ins cover the common
// venues; a YAML file can add or override profiles at startup.
package profile

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/huginn_dj/internal/session"
)

// Store maps profile names to settings presets.
type Store struct {
	profiles map[string]session.Settings
}

// NewStore returns a store seeded with the built-in profiles.
func NewStore() *Store {
	return &Store{profiles: builtins()}
}

// builtins are the stock venue presets. Every preset must pass
// session.Settings.Validate; TestBuiltinsValidate enforces that.
func builtins() map[string]session.Settings {
	club := session.DefaultSettings()
	club.FavoriteGenres = []string{"house", "techno", "electronic"}
	club.MoodPreference = 0.6
	club.PeakHour = 1
	club.SessionLengthMinutes = 300
	club.CrossfadeSeconds = 12

	lounge := session.DefaultSettings()
	lounge.FavoriteGenres = []string{"chill", "jazz", "acoustic"}
	lounge.MoodPreference = 0.4
	lounge.PeakHour = 21
	lounge.SessionLengthMinutes = 180
	lounge.CooldownMinutes = 90
	lounge.CrossfadeSeconds = 6

	wedding := session.DefaultSettings()
	wedding.FavoriteGenres = []string{"pop", "rock", "latin"}
	wedding.MoodPreference = 0.8
	wedding.PeakHour = 22
	wedding.SessionLengthMinutes = 240
	wedding.CooldownMinutes = 120

	return map[string]session.Settings{
		"club":    club,
		"lounge":  lounge,
		"wedding": wedding,
	}
}

// Get returns the named profile's settings.
func (s *Store) Get(name string) (session.Settings, bool) {
	settings, ok := s.profiles[name]
	return settings, ok
}

// Names returns all profile names, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns a copy of the full profile map.
func (s *Store) All() map[string]session.Settings {
	out := make(map[string]session.Settings, len(s.profiles))
	for name, settings := range s.profiles {
		out[name] = settings
	}
	return out
}

// LoadFile merges profiles from a YAML file into the store. File entries
// override built-ins of the same name; each entry is validated before it
// lands.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read profile file: %w", err)
	}

	var file struct {
		Profiles map[string]session.Settings `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse profile file %s: %w", path, err)
	}
	if len(file.Profiles) == 0 {
		return fmt.Errorf("profile file %s defines no profiles", path)
	}

	for name, settings := range file.Profiles {
		if err := settings.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		s.profiles[name] = settings
	}
	return nil
}
