/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package archive writes finished sessions to object storage as JSON
// documents, keyed by date and session id.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/huginn_dj/internal/session"
	"github.com/friendsincode/huginn_dj/internal/telemetry"
)

// ObjectStore abstracts object storage operations.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Document is the archived form of a finished session.
type Document struct {
	Session    session.SessionState `json:"session"`
	Profile    string               `json:"profile"`
	Stats      session.Stats        `json:"stats"`
	ArchivedAt time.Time            `json:"archived_at"`
}

// Service archives session records through an ObjectStore backend.
type Service struct {
	store   ObjectStore
	backend string
	now     func() time.Time
	logger  zerolog.Logger
}

// NewService wraps the store. backend names the implementation for logs
// and metrics ("s3", "fs").
func NewService(store ObjectStore, backend string, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		backend: backend,
		now:     time.Now,
		logger:  logger.With().Str("component", "archive").Str("backend", backend).Logger(),
	}
}

// ArchiveSession writes the session document and returns its storage key.
func (s *Service) ArchiveSession(ctx context.Context, record session.SessionState, profile string) (string, error) {
	doc := Document{
		Session:    record,
		Profile:    profile,
		Stats:      session.RecordStats(record),
		ArchivedAt: s.now(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal session document: %w", err)
	}

	key := s.keyFor(record)
	if err := s.store.Put(ctx, key, data); err != nil {
		telemetry.ArchiveWritesTotal.WithLabelValues(s.backend, "error").Inc()
		return "", fmt.Errorf("archive session %s: %w", record.ID, err)
	}

	telemetry.ArchiveWritesTotal.WithLabelValues(s.backend, "ok").Inc()
	s.logger.Info().
		Str("session_id", record.ID).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("session archived")
	return key, nil
}

// Fetch reads an archived session document back by key.
func (s *Service) Fetch(ctx context.Context, key string) (*Document, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch archive %s: %w", key, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse archive %s: %w", key, err)
	}
	return &doc, nil
}

// keyFor lays sessions out by start date so date-range listing stays a
// prefix scan.
func (s *Service) keyFor(record session.SessionState) string {
	return fmt.Sprintf("sessions/%s/%s.json", record.StartedAt.UTC().Format("2006-01-02"), record.ID)
}
