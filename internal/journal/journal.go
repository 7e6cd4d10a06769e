/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package journal persists session records, play events and ranking
// decisions by following the event bus.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/huginn_dj/internal/events"
	"github.com/friendsincode/huginn_dj/internal/models"
)

// ErrSessionNotFound is returned when a session record doesn't exist.
var ErrSessionNotFound = errors.New("session record not found")

// Service subscribes to session events and writes the decision trail.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a new journal service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "journal").Logger(),
	}
}

// Start subscribes to session events and records them until ctx ends.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("journal service starting")

	started := s.bus.Subscribe(events.EventSessionStarted)
	selected := s.bus.Subscribe(events.EventTrackSelected)
	skipped := s.bus.Subscribe(events.EventTrackSkipped)
	ended := s.bus.Subscribe(events.EventSessionEnded)
	archived := s.bus.Subscribe(events.EventSessionArchived)

	defer func() {
		s.bus.Unsubscribe(events.EventSessionStarted, started)
		s.bus.Unsubscribe(events.EventTrackSelected, selected)
		s.bus.Unsubscribe(events.EventTrackSkipped, skipped)
		s.bus.Unsubscribe(events.EventSessionEnded, ended)
		s.bus.Unsubscribe(events.EventSessionArchived, archived)
	}()

	s.logger.Info().Msg("journal service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("journal service stopping")
			return

		case payload := <-started:
			s.recordSessionStart(ctx, payload)

		case payload := <-selected:
			s.recordSelection(ctx, payload)

		case payload := <-skipped:
			s.recordSkip(ctx, payload)

		case payload := <-ended:
			s.recordSessionEnd(ctx, payload)

		case payload := <-archived:
			s.recordArchiveKey(ctx, payload)
		}
	}
}

// recordSessionStart creates the session record and the opening play event.
func (s *Service) recordSessionStart(ctx context.Context, payload events.Payload) {
	record := &models.SessionRecord{
		ID:        stringField(payload, "session_id"),
		Profile:   stringField(payload, "profile"),
		StartedAt: timeField(payload, "started_at"),
	}
	if record.ID == "" {
		return
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		s.logger.Error().Err(err).Str("session_id", record.ID).Msg("failed to record session start")
		return
	}

	s.recordPlay(ctx, payload)
}

// recordSelection stores the play event and the ranking journal entry.
func (s *Service) recordSelection(ctx context.Context, payload events.Payload) {
	s.recordPlay(ctx, payload)

	entry := &models.SelectionEntry{
		ID:         uuid.NewString(),
		SessionID:  stringField(payload, "session_id"),
		CurrentID:  stringField(payload, "current_id"),
		ChosenID:   stringField(payload, "track_id"),
		Phase:      models.Phase(stringField(payload, "phase")),
		Candidates: intField(payload, "candidates"),
		CreatedAt:  time.Now(),
	}
	if entry.SessionID == "" || entry.ChosenID == "" {
		return
	}
	if list, ok := payload["shortlist"].([]models.ShortlistItem); ok {
		entry.Shortlist = list
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.logger.Error().Err(err).Str("session_id", entry.SessionID).Msg("failed to record selection entry")
	}
}

func (s *Service) recordPlay(ctx context.Context, payload events.Payload) {
	event := &models.PlayEvent{
		ID:        uuid.NewString(),
		SessionID: stringField(payload, "session_id"),
		TrackID:   stringField(payload, "track_id"),
		Position:  intField(payload, "position"),
		Phase:     models.Phase(stringField(payload, "phase")),
		Energy:    floatField(payload, "energy"),
		Tempo:     floatField(payload, "tempo"),
		PlayedAt:  timeField(payload, "played_at"),
	}
	if event.SessionID == "" || event.TrackID == "" {
		return
	}

	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		s.logger.Error().Err(err).
			Str("session_id", event.SessionID).
			Str("track_id", event.TrackID).
			Msg("failed to record play event")
	}
}

// recordSkip flags the most recent play of the track as skipped.
func (s *Service) recordSkip(ctx context.Context, payload events.Payload) {
	sessionID := stringField(payload, "session_id")
	trackID := stringField(payload, "track_id")
	if sessionID == "" || trackID == "" {
		return
	}

	var event models.PlayEvent
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND track_id = ?", sessionID, trackID).
		Order("position DESC").
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("track_id", trackID).Msg("failed to look up play event for skip")
		return
	}

	if err := s.db.WithContext(ctx).Model(&event).Update("skipped", true).Error; err != nil {
		s.logger.Error().Err(err).Str("track_id", trackID).Msg("failed to record skip")
	}
}

func (s *Service) recordSessionEnd(ctx context.Context, payload events.Payload) {
	sessionID := stringField(payload, "session_id")
	if sessionID == "" {
		return
	}

	updates := map[string]any{
		"ended_at":       timeField(payload, "ended_at"),
		"tracks_played":  intField(payload, "tracks_played"),
		"tracks_skipped": intField(payload, "tracks_skipped"),
		"avg_energy":     floatField(payload, "avg_energy"),
	}

	err := s.db.WithContext(ctx).
		Model(&models.SessionRecord{}).
		Where("id = ?", sessionID).
		Updates(updates).Error
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to record session end")
	}
}

func (s *Service) recordArchiveKey(ctx context.Context, payload events.Payload) {
	sessionID := stringField(payload, "session_id")
	key := stringField(payload, "archive_key")
	if sessionID == "" || key == "" {
		return
	}

	err := s.db.WithContext(ctx).
		Model(&models.SessionRecord{}).
		Where("id = ?", sessionID).
		Update("archive_key", key).Error
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to record archive key")
	}
}

// QueryFilters defines filters for querying session records.
type QueryFilters struct {
	Profile   *string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Sessions retrieves session records with filters, most recent first.
func (s *Service) Sessions(ctx context.Context, filters QueryFilters) ([]models.SessionRecord, int64, error) {
	var records []models.SessionRecord
	var total int64

	query := s.db.WithContext(ctx).Model(&models.SessionRecord{})

	if filters.Profile != nil {
		query = query.Where("profile = ?", *filters.Profile)
	}
	if filters.StartTime != nil {
		query = query.Where("started_at >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("started_at <= ?", *filters.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100) // Default limit
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("started_at DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// Session returns a single session record.
func (s *Service) Session(ctx context.Context, id string) (*models.SessionRecord, error) {
	var record models.SessionRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// PlayEvents returns the play events of one session in set order.
func (s *Service) PlayEvents(ctx context.Context, sessionID string) ([]models.PlayEvent, error) {
	var playEvents []models.PlayEvent
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("position ASC").
		Find(&playEvents).Error
	return playEvents, err
}

// Selections returns the ranking journal of one session.
func (s *Service) Selections(ctx context.Context, sessionID string) ([]models.SelectionEntry, error) {
	var entries []models.SelectionEntry
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

func stringField(p events.Payload, key string) string {
	v, _ := p[key].(string)
	return v
}

func intField(p events.Payload, key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func floatField(p events.Payload, key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func timeField(p events.Payload, key string) time.Time {
	if v, ok := p[key].(time.Time); ok {
		return v
	}
	return time.Now()
}
