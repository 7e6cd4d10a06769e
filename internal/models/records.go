/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// SessionRecord is the persisted summary of one DJ set.
type SessionRecord struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	Profile       string     `gorm:"type:varchar(64);index" json:"profile"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	TracksPlayed  int        `json:"tracks_played"`
	TracksSkipped int        `json:"tracks_skipped"`
	AvgEnergy     float64    `json:"avg_energy"`
	ArchiveKey    string     `gorm:"type:text" json:"archive_key,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// PlayEvent records one track transition within a session.
type PlayEvent struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID string    `gorm:"type:uuid;index" json:"session_id"`
	TrackID   string    `gorm:"index" json:"track_id"`
	Position  int       `json:"position"`
	Phase     Phase     `gorm:"type:varchar(16)" json:"phase"`
	Energy    float64   `json:"energy"`
	Tempo     float64   `json:"tempo"`
	Skipped   bool      `json:"skipped"`
	PlayedAt  time.Time `gorm:"index" json:"played_at"`
}

// ShortlistItem is one ranked candidate kept in the selection journal.
type ShortlistItem struct {
	TrackID  string  `json:"track_id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Adjusted float64 `json:"adjusted"`
}

// SelectionEntry journals one ranking decision for later inspection.
type SelectionEntry struct {
	ID         string          `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID  string          `gorm:"type:uuid;index" json:"session_id"`
	CurrentID  string          `json:"current_id"`
	ChosenID   string          `json:"chosen_id"`
	Phase      Phase           `gorm:"type:varchar(16)" json:"phase"`
	Candidates int             `json:"candidates"`
	Shortlist  []ShortlistItem `gorm:"type:jsonb;serializer:json" json:"shortlist,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
