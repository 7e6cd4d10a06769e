/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// CatalogBackend selects where the track library comes from.
type CatalogBackend string

const (
	CatalogSpotify CatalogBackend = "spotify"
	CatalogFile    CatalogBackend = "file"
	CatalogNone    CatalogBackend = "none"
)

// PlayerBackend selects the playback controller.
type PlayerBackend string

const (
	PlayerSpotify PlayerBackend = "spotify"
	PlayerNone    PlayerBackend = "none"
)

// ArchiveBackend selects where finished sessions are archived.
type ArchiveBackend string

const (
	ArchiveS3   ArchiveBackend = "s3"
	ArchiveFS   ArchiveBackend = "fs"
	ArchiveNone ArchiveBackend = "none"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	BaseURL       string // Public base URL (e.g., http://192.168.195.6:8080)
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	MetricsBind   string

	// Session defaults
	DefaultProfile string // Profile applied when a session starts without one
	ProfilePath    string // Optional YAML file overriding the built-in profiles

	// Catalog configuration
	Catalog             CatalogBackend
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyMarket       string // Optional market for track relinking (e.g., "US")
	CatalogFilePath     string // JSON track library for the file backend

	// Playback configuration
	Player             PlayerBackend
	SpotifyPlayerToken string // User-authorized OAuth token for Spotify Connect control
	SpotifyDeviceID    string // Optional target device; empty means the active device

	// Session archive configuration
	Archive    ArchiveBackend
	ArchiveDir string // Root directory for the fs backend

	// S3 Object Storage configuration
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	S3UsePathStyle    bool   // Required for MinIO

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Cache configuration
	CacheEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Event bridge configuration
	NATSEnabled       bool
	NATSURL           string
	NATSSubjectPrefix string

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnvAny([]string{"HUGINN_ENV"}, "development"),
		HTTPBind:      getEnvAny([]string{"HUGINN_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:      getEnvIntAny([]string{"HUGINN_HTTP_PORT"}, 8080),
		BaseURL:       getEnvAny([]string{"HUGINN_BASE_URL"}, ""),
		DBBackend:     DatabaseBackend(getEnvAny([]string{"HUGINN_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:         getEnvAny([]string{"HUGINN_DB_DSN"}, ""),
		JWTSigningKey: getEnvAny([]string{"HUGINN_JWT_SIGNING_KEY"}, ""),
		MetricsBind:   getEnvAny([]string{"HUGINN_METRICS_BIND"}, "127.0.0.1:9000"),

		// Session defaults
		DefaultProfile: getEnvAny([]string{"HUGINN_DEFAULT_PROFILE"}, "club"),
		ProfilePath:    getEnvAny([]string{"HUGINN_PROFILE_PATH"}, ""),

		// Catalog configuration
		Catalog:             CatalogBackend(getEnvAny([]string{"HUGINN_CATALOG"}, string(CatalogNone))),
		SpotifyClientID:     getEnvAny([]string{"HUGINN_SPOTIFY_CLIENT_ID", "SPOTIFY_ID"}, ""),
		SpotifyClientSecret: getEnvAny([]string{"HUGINN_SPOTIFY_CLIENT_SECRET", "SPOTIFY_SECRET"}, ""),
		SpotifyMarket:       getEnvAny([]string{"HUGINN_SPOTIFY_MARKET"}, ""),
		CatalogFilePath:     getEnvAny([]string{"HUGINN_CATALOG_FILE"}, ""),

		// Playback configuration
		Player:             PlayerBackend(getEnvAny([]string{"HUGINN_PLAYER"}, string(PlayerNone))),
		SpotifyPlayerToken: getEnvAny([]string{"HUGINN_SPOTIFY_PLAYER_TOKEN"}, ""),
		SpotifyDeviceID:    getEnvAny([]string{"HUGINN_SPOTIFY_DEVICE_ID"}, ""),

		// Session archive configuration
		Archive:    ArchiveBackend(getEnvAny([]string{"HUGINN_ARCHIVE"}, string(ArchiveNone))),
		ArchiveDir: getEnvAny([]string{"HUGINN_ARCHIVE_DIR"}, "./sessions"),

		// S3 Object Storage configuration
		S3AccessKeyID:     getEnvAny([]string{"HUGINN_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"HUGINN_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"HUGINN_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:          getEnvAny([]string{"HUGINN_S3_BUCKET", "S3_BUCKET"}, ""),
		S3Endpoint:        getEnvAny([]string{"HUGINN_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"HUGINN_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),

		// Tracing configuration
		TracingEnabled:    getEnvBoolAny([]string{"HUGINN_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"HUGINN_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"HUGINN_TRACING_SAMPLE_RATE"}, 1.0),

		// Cache configuration
		CacheEnabled:  getEnvBoolAny([]string{"HUGINN_CACHE_ENABLED"}, false),
		RedisAddr:     getEnvAny([]string{"HUGINN_REDIS_ADDR", "REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"HUGINN_REDIS_PASSWORD", "REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"HUGINN_REDIS_DB", "REDIS_DB"}, 0),

		// Event bridge configuration
		NATSEnabled:       getEnvBoolAny([]string{"HUGINN_NATS_ENABLED"}, false),
		NATSURL:           getEnvAny([]string{"HUGINN_NATS_URL", "NATS_URL"}, "nats://127.0.0.1:4222"),
		NATSSubjectPrefix: getEnvAny([]string{"HUGINN_NATS_SUBJECT_PREFIX"}, "huginn"),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		if cfg.DBBackend != DatabaseSQLite {
			return nil, fmt.Errorf("HUGINN_DB_DSN must be provided for the %s backend", cfg.DBBackend)
		}
		cfg.DBDSN = "huginndj.db"
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("HUGINN_JWT_SIGNING_KEY must be provided")
	}

	switch cfg.Catalog {
	case CatalogSpotify:
		if cfg.SpotifyClientID == "" || cfg.SpotifyClientSecret == "" {
			return nil, fmt.Errorf("HUGINN_SPOTIFY_CLIENT_ID and HUGINN_SPOTIFY_CLIENT_SECRET are required for the spotify catalog")
		}
	case CatalogFile:
		if cfg.CatalogFilePath == "" {
			return nil, fmt.Errorf("HUGINN_CATALOG_FILE must be provided for the file catalog")
		}
	case CatalogNone:
	default:
		return nil, fmt.Errorf("unsupported catalog backend %q", cfg.Catalog)
	}

	switch cfg.Player {
	case PlayerSpotify:
		if cfg.SpotifyPlayerToken == "" {
			return nil, fmt.Errorf("HUGINN_SPOTIFY_PLAYER_TOKEN must be provided for the spotify player")
		}
	case PlayerNone:
	default:
		return nil, fmt.Errorf("unsupported player backend %q", cfg.Player)
	}

	switch cfg.Archive {
	case ArchiveS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("HUGINN_S3_BUCKET or S3_BUCKET must be provided for the s3 archive")
		}
	case ArchiveFS, ArchiveNone:
	default:
		return nil, fmt.Errorf("unsupported archive backend %q", cfg.Archive)
	}

	if cfg.TracingSampleRate < 0 || cfg.TracingSampleRate > 1 {
		return nil, fmt.Errorf("HUGINN_TRACING_SAMPLE_RATE must be within [0,1]")
	}

	if strings.EqualFold(cfg.Environment, "production") {
		if strings.EqualFold(cfg.JWTSigningKey, "changeme") {
			return nil, fmt.Errorf("HUGINN_JWT_SIGNING_KEY must be set to a non-default value in production")
		}
	}
	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":         "use HUGINN_ENV",
		"JWT_SIGNING_KEY":     "use HUGINN_JWT_SIGNING_KEY",
		"TRACING_ENABLED":     "use HUGINN_TRACING_ENABLED",
		"OTLP_ENDPOINT":       "use HUGINN_OTLP_ENDPOINT",
		"TRACING_SAMPLE_RATE": "use HUGINN_TRACING_SAMPLE_RATE",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// Addr returns the HTTP listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
