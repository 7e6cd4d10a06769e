/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/huginn_dj/internal/api"
	"github.com/friendsincode/huginn_dj/internal/archive"
	"github.com/friendsincode/huginn_dj/internal/cache"
	"github.com/friendsincode/huginn_dj/internal/catalog"
	"github.com/friendsincode/huginn_dj/internal/compat"
	"github.com/friendsincode/huginn_dj/internal/config"
	"github.com/friendsincode/huginn_dj/internal/db"
	"github.com/friendsincode/huginn_dj/internal/eventbus"
	"github.com/friendsincode/huginn_dj/internal/events"
	"github.com/friendsincode/huginn_dj/internal/journal"
	"github.com/friendsincode/huginn_dj/internal/player"
	"github.com/friendsincode/huginn_dj/internal/profile"
	"github.com/friendsincode/huginn_dj/internal/session"
	"github.com/friendsincode/huginn_dj/internal/telemetry"
	"github.com/friendsincode/huginn_dj/internal/version"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	db         *gorm.DB
	cache      *cache.Cache
	bus        *events.Bus
	natsBridge *eventbus.Bridge
	engine     *session.Engine
	journal    *journal.Service
	api        *api.API

	updates *version.Checker

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("huginn-dj-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Skip timeout for websocket connections; everything else gets 60s.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.router,
		// Header deadline protects against slowloris; write timeout stays 0
		// so the events websocket is not cut off.
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	if cfg.MetricsBind != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", telemetry.Handler())
		srv.metricsServer = &http.Server{
			Addr:              cfg.MetricsBind,
			Handler:           metricsMux,
			ReadHeaderTimeout: 15 * time.Second,
		}
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	// Redis cache for track features and the Spotify client token
	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		trackCache, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
		} else {
			s.cache = trackCache
			s.DeferClose(func() error { return s.cache.Close() })
		}
	}

	// NATS bridge mirrors bus events onto the message broker
	if s.cfg.NATSEnabled {
		natsCfg := eventbus.DefaultConfig()
		natsCfg.URL = s.cfg.NATSURL
		natsCfg.SubjectPrefix = s.cfg.NATSSubjectPrefix
		bridge, err := eventbus.New(natsCfg, s.bus, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("nats bridge initialization failed, continuing without broker")
		} else {
			s.natsBridge = bridge
			s.DeferClose(func() error { return s.natsBridge.Close() })
		}
	}

	cat, err := s.buildCatalog()
	if err != nil {
		return err
	}

	ctrl, err := s.buildPlayer()
	if err != nil {
		return err
	}

	arch, err := s.buildArchive()
	if err != nil {
		return err
	}

	scorer, err := compat.New(compat.DefaultWeights())
	if err != nil {
		return err
	}

	profiles := profile.NewStore()
	if s.cfg.ProfilePath != "" {
		if err := profiles.LoadFile(s.cfg.ProfilePath); err != nil {
			return fmt.Errorf("load profiles: %w", err)
		}
		s.logger.Info().Str("path", s.cfg.ProfilePath).Msg("profile overrides loaded")
	}
	settings, ok := profiles.Get(s.cfg.DefaultProfile)
	if !ok {
		return fmt.Errorf("default profile %q is not defined", s.cfg.DefaultProfile)
	}

	s.engine, err = session.New(scorer, settings, s.logger)
	if err != nil {
		return err
	}

	s.journal = journal.NewService(database, s.bus, s.logger)

	s.api = api.New(database, []byte(s.cfg.JWTSigningKey), s.engine, scorer, cat, ctrl, arch, s.journal, profiles, s.bus, s.cfg.DefaultProfile, s.logger)
	return nil
}

func (s *Server) buildCatalog() (catalog.Provider, error) {
	switch s.cfg.Catalog {
	case config.CatalogSpotify:
		provider, err := catalog.NewSpotifyProvider(catalog.SpotifyConfig{
			ClientID:     s.cfg.SpotifyClientID,
			ClientSecret: s.cfg.SpotifyClientSecret,
			Market:       s.cfg.SpotifyMarket,
		}, s.cache, s.logger)
		if err != nil {
			return nil, fmt.Errorf("spotify catalog: %w", err)
		}
		s.logger.Info().Msg("spotify catalog enabled")
		return provider, nil
	case config.CatalogFile:
		provider, err := catalog.LoadFile(s.cfg.CatalogFilePath, s.logger)
		if err != nil {
			return nil, fmt.Errorf("file catalog: %w", err)
		}
		s.logger.Info().
			Str("path", s.cfg.CatalogFilePath).
			Int("tracks", provider.Size()).
			Msg("file catalog loaded")
		return provider, nil
	default:
		return nil, nil
	}
}

func (s *Server) buildPlayer() (player.Controller, error) {
	switch s.cfg.Player {
	case config.PlayerSpotify:
		ctrl, err := player.NewSpotifyController(player.SpotifyConfig{
			AccessToken: s.cfg.SpotifyPlayerToken,
			DeviceID:    s.cfg.SpotifyDeviceID,
		}, s.logger)
		if err != nil {
			return nil, fmt.Errorf("spotify player: %w", err)
		}
		s.logger.Info().Msg("spotify connect player enabled")
		return ctrl, nil
	default:
		return player.NewNop(s.logger), nil
	}
}

func (s *Server) buildArchive() (*archive.Service, error) {
	switch s.cfg.Archive {
	case config.ArchiveS3:
		store, err := archive.NewS3Store(context.Background(), archive.S3Config{
			AccessKeyID:     s.cfg.S3AccessKeyID,
			SecretAccessKey: s.cfg.S3SecretAccessKey,
			Region:          s.cfg.S3Region,
			Bucket:          s.cfg.S3Bucket,
			Endpoint:        s.cfg.S3Endpoint,
			UsePathStyle:    s.cfg.S3UsePathStyle,
		}, s.logger)
		if err != nil {
			return nil, fmt.Errorf("s3 archive: %w", err)
		}
		s.logger.Info().Str("bucket", s.cfg.S3Bucket).Msg("s3 archive enabled")
		return archive.NewService(store, "s3", s.logger), nil
	case config.ArchiveFS:
		store, err := archive.NewFSStore(s.cfg.ArchiveDir, s.logger)
		if err != nil {
			return nil, fmt.Errorf("fs archive: %w", err)
		}
		s.logger.Info().Str("dir", s.cfg.ArchiveDir).Msg("filesystem archive enabled")
		return archive.NewService(store, "fs", s.logger), nil
	default:
		return nil, nil
	}
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	// Journal follows the event bus and writes the decision trail.
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.journal.Start(ctx)
	}()

	// Database connection metrics updater.
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.db)
			}
		}
	}()

	if s.cfg.Environment == "production" {
		s.updates = version.NewChecker(s.logger)
		s.updates.Start(ctx)
		s.DeferClose(func() error {
			s.updates.Stop()
			return nil
		})
	}

	if s.metricsServer != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.logger.Info().Str("addr", s.metricsServer.Addr).Msg("metrics server listening")
			if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error().Err(err).Msg("metrics server exited")
			}
		}()
		s.DeferClose(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.metricsServer.Shutdown(ctx)
		})
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.api.Routes(s.router)
}
