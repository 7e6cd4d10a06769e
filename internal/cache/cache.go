/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for frequently accessed data.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/huginn_dj/internal/models"
	"github.com/friendsincode/huginn_dj/internal/telemetry"
)

// Default TTL values for different cache types
const (
	// Audio features never change for a given track; the TTL only bounds
	// memory on the Redis side.
	DefaultFeaturesTTL = 24 * time.Hour
	DefaultPlaylistTTL = 15 * time.Minute
)

// Key prefixes for Redis cache
const (
	KeyTrackFeatures = "huginn:cache:features:" // + track_id
	KeyPlaylist      = "huginn:cache:playlist:" // + playlist_id
	KeyClientToken   = "huginn:cache:token:spotify"
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	FeaturesTTL time.Duration
	PlaylistTTL time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		FeaturesTTL:    DefaultFeaturesTTL,
		PlaylistTTL:    DefaultPlaylistTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// delete removes a key from cache.
func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// deletePattern deletes all keys matching a pattern.
func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	// Use SCAN to find keys (safer than KEYS for production)
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete_batch")
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}

// Track feature caching methods

// GetTrackFeatures retrieves cached audio features for a track.
func (c *Cache) GetTrackFeatures(ctx context.Context, trackID string) (*models.AudioFeatures, bool) {
	var features models.AudioFeatures
	found, err := c.get(ctx, KeyTrackFeatures+trackID, &features)
	if err != nil || !found {
		telemetry.CacheMissesTotal.WithLabelValues("features").Inc()
		return nil, false
	}
	telemetry.CacheHitsTotal.WithLabelValues("features").Inc()
	c.logger.Debug().Str("track_id", trackID).Msg("track features cache hit")
	return &features, true
}

// SetTrackFeatures caches audio features for a track.
func (c *Cache) SetTrackFeatures(ctx context.Context, trackID string, features models.AudioFeatures) error {
	return c.set(ctx, KeyTrackFeatures+trackID, features, c.config.FeaturesTTL)
}

// InvalidateTrackFeatures removes a track's features from cache.
func (c *Cache) InvalidateTrackFeatures(ctx context.Context, trackID string) error {
	c.logger.Debug().Str("track_id", trackID).Msg("invalidating track features cache")
	return c.delete(ctx, KeyTrackFeatures+trackID)
}

// Playlist caching methods

// GetPlaylist retrieves a cached playlist track list.
func (c *Cache) GetPlaylist(ctx context.Context, playlistID string) ([]models.Track, bool) {
	var tracks []models.Track
	found, err := c.get(ctx, KeyPlaylist+playlistID, &tracks)
	if err != nil || !found {
		telemetry.CacheMissesTotal.WithLabelValues("playlist").Inc()
		return nil, false
	}
	telemetry.CacheHitsTotal.WithLabelValues("playlist").Inc()
	c.logger.Debug().Str("playlist_id", playlistID).Int("count", len(tracks)).Msg("playlist cache hit")
	return tracks, true
}

// SetPlaylist caches a playlist track list.
func (c *Cache) SetPlaylist(ctx context.Context, playlistID string, tracks []models.Track) error {
	c.logger.Debug().Str("playlist_id", playlistID).Int("count", len(tracks)).Msg("caching playlist")
	return c.set(ctx, KeyPlaylist+playlistID, tracks, c.config.PlaylistTTL)
}

// InvalidatePlaylist removes a playlist from cache.
func (c *Cache) InvalidatePlaylist(ctx context.Context, playlistID string) error {
	c.logger.Debug().Str("playlist_id", playlistID).Msg("invalidating playlist cache")
	return c.delete(ctx, KeyPlaylist+playlistID)
}

// Client token caching methods

// CachedToken mirrors the fields of an OAuth token worth keeping across restarts.
type CachedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expiry"`
}

// GetClientToken retrieves the cached Spotify client-credentials token.
func (c *Cache) GetClientToken(ctx context.Context) (*CachedToken, bool) {
	var token CachedToken
	found, err := c.get(ctx, KeyClientToken, &token)
	if err != nil || !found {
		telemetry.CacheMissesTotal.WithLabelValues("token").Inc()
		return nil, false
	}
	if !token.Expiry.After(time.Now()) {
		telemetry.CacheMissesTotal.WithLabelValues("token").Inc()
		return nil, false
	}
	telemetry.CacheHitsTotal.WithLabelValues("token").Inc()
	return &token, true
}

// SetClientToken caches the Spotify client-credentials token until it expires.
func (c *Cache) SetClientToken(ctx context.Context, token CachedToken) error {
	ttl := time.Until(token.Expiry) - time.Minute
	if ttl <= 0 {
		return nil
	}
	return c.set(ctx, KeyClientToken, token, ttl)
}

// FlushAll removes all cached data (use sparingly).
func (c *Cache) FlushAll(ctx context.Context) error {
	c.logger.Warn().Msg("flushing all cache data")
	return c.deletePattern(ctx, "huginn:cache:*")
}
