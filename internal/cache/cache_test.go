package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/huginn_dj/internal/models"
)

// disabledCache builds a cache in the tripped circuit-breaker state, as New
// returns when Redis is unreachable.
func disabledCache() *Cache {
	return &Cache{
		logger:   zerolog.Nop(),
		config:   DefaultConfig(),
		disabled: true,
	}
}

func TestDisabledCacheMissesWithoutError(t *testing.T) {
	c := disabledCache()
	ctx := context.Background()

	if c.IsAvailable() {
		t.Fatal("expected disabled cache to report unavailable")
	}

	if _, found := c.GetTrackFeatures(ctx, "t1"); found {
		t.Error("expected features lookup to miss on a disabled cache")
	}
	if _, found := c.GetPlaylist(ctx, "p1"); found {
		t.Error("expected playlist lookup to miss on a disabled cache")
	}
	if _, found := c.GetClientToken(ctx); found {
		t.Error("expected token lookup to miss on a disabled cache")
	}
}

func TestDisabledCacheWritesAreNoops(t *testing.T) {
	c := disabledCache()
	ctx := context.Background()

	if err := c.SetTrackFeatures(ctx, "t1", models.AudioFeatures{Tempo: 128}); err != nil {
		t.Errorf("SetTrackFeatures on disabled cache: %v", err)
	}
	if err := c.SetPlaylist(ctx, "p1", []models.Track{{ID: "t1"}}); err != nil {
		t.Errorf("SetPlaylist on disabled cache: %v", err)
	}
	if err := c.InvalidatePlaylist(ctx, "p1"); err != nil {
		t.Errorf("InvalidatePlaylist on disabled cache: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on disabled cache: %v", err)
	}
}

func TestSetClientTokenSkipsExpiredTokens(t *testing.T) {
	c := disabledCache()
	ctx := context.Background()

	expired := CachedToken{
		AccessToken: "stale",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(-time.Hour),
	}
	if err := c.SetClientToken(ctx, expired); err != nil {
		t.Errorf("SetClientToken with expired token: %v", err)
	}

	aboutToExpire := CachedToken{
		AccessToken: "short",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(30 * time.Second),
	}
	if err := c.SetClientToken(ctx, aboutToExpire); err != nil {
		t.Errorf("SetClientToken with nearly expired token: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.FeaturesTTL != DefaultFeaturesTTL {
		t.Errorf("FeaturesTTL = %v, want %v", cfg.FeaturesTTL, DefaultFeaturesTTL)
	}
	if cfg.PlaylistTTL != DefaultPlaylistTTL {
		t.Errorf("PlaylistTTL = %v, want %v", cfg.PlaylistTTL, DefaultPlaylistTTL)
	}
	if !cfg.DisableOnError {
		t.Error("expected DisableOnError to default to true")
	}
}
