/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"
	"time"

	"github.com/friendsincode/huginn_dj/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.APIKey{},
		&models.SessionRecord{},
		&models.PlayEvent{},
		&models.SelectionEntry{},
	); err != nil {
		return err
	}

	if err := closeOrphanSessions(database); err != nil {
		return err
	}
	if err := applyPostgresActiveSessionGuard(database); err != nil {
		return err
	}

	return nil
}

// closeOrphanSessions marks sessions left open by a crash as ended. The
// engine state is in-memory only, so an open row after restart can never
// resume.
func closeOrphanSessions(database *gorm.DB) error {
	result := database.Model(&models.SessionRecord{}).
		Where("ended_at IS NULL").
		Update("ended_at", time.Now().UTC())
	if result.Error != nil {
		return fmt.Errorf("close orphan sessions: %w", result.Error)
	}
	return nil
}

// applyPostgresActiveSessionGuard enforces at most one open session row.
func applyPostgresActiveSessionGuard(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	stmt := `
CREATE UNIQUE INDEX IF NOT EXISTS idx_session_records_single_active
ON session_records ((true))
WHERE ended_at IS NULL;
`
	if err := database.Exec(stmt).Error; err != nil {
		return fmt.Errorf("apply postgres active session guard: %w", err)
	}

	return nil
}
