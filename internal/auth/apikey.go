/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/friendsincode/huginn_dj/internal/models"
)

// API key constants
const (
	APIKeyPrefix      = "hd_"
	APIKeyRandomBytes = 24 // 192 bits of entropy
)

// ErrAPIKeyNotFound is returned when an API key doesn't exist.
var ErrAPIKeyNotFound = errors.New("api key not found")

// ErrAPIKeyExpired is returned when an API key has expired.
var ErrAPIKeyExpired = errors.New("api key expired")

// ErrAPIKeyRevoked is returned when an API key has been revoked.
var ErrAPIKeyRevoked = errors.New("api key revoked")

// GenerateAPIKey creates a new API key.
// Returns the plaintext key (shown to the caller once) and the model to store.
func GenerateAPIKey(name string, expiresIn time.Duration) (string, *models.APIKey, error) {
	randomBytes := make([]byte, APIKeyRandomBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", nil, err
	}

	// Key shape: hd_<hex encoded random bytes>
	randomHex := hex.EncodeToString(randomBytes)
	plaintextKey := APIKeyPrefix + randomHex

	// Only the hash is stored.
	hash := sha256.Sum256([]byte(plaintextKey))
	keyHash := hex.EncodeToString(hash[:])

	// Prefix for display: "hd_" + first 8 hex chars
	keyPrefix := plaintextKey[:11]

	apiKey := &models.APIKey{
		ID:        uuid.NewString(),
		Name:      name,
		KeyHash:   keyHash,
		KeyPrefix: keyPrefix,
		ExpiresAt: time.Now().Add(expiresIn),
	}

	return plaintextKey, apiKey, nil
}

// ValidateAPIKey validates an API key and returns claims if valid.
// Also updates the LastUsedAt timestamp.
func ValidateAPIKey(db *gorm.DB, plaintextKey string) (*Claims, error) {
	hash := sha256.Sum256([]byte(plaintextKey))
	keyHash := hex.EncodeToString(hash[:])

	var apiKey models.APIKey
	result := db.Where("key_hash = ?", keyHash).First(&apiKey)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrAPIKeyNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}

	if apiKey.IsRevoked() {
		return nil, ErrAPIKeyRevoked
	}
	if apiKey.IsExpired() {
		return nil, ErrAPIKeyExpired
	}

	// Fire and forget; losing a last-used update is harmless.
	now := time.Now()
	go db.Model(&apiKey).Update("last_used_at", now)

	return &Claims{
		Name:             apiKey.Name,
		RegisteredClaims: jwt.RegisteredClaims{Subject: apiKey.ID},
	}, nil
}

// RevokeAPIKey revokes an API key.
func RevokeAPIKey(db *gorm.DB, keyID string) error {
	now := time.Now()
	result := db.Model(&models.APIKey{}).
		Where("id = ?", keyID).
		Update("revoked_at", now)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAPIKeyNotFound
	}

	return nil
}

// ListAPIKeys returns all API keys (without the hash material exposed to callers).
func ListAPIKeys(db *gorm.DB) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := db.Order("created_at DESC").Find(&keys).Error
	return keys, err
}

// DeleteAPIKey permanently deletes an API key. Use RevokeAPIKey for soft delete.
func DeleteAPIKey(db *gorm.DB, keyID string) error {
	result := db.Where("id = ?", keyID).Delete(&models.APIKey{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAPIKeyNotFound
	}

	return nil
}
