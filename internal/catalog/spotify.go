/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/friendsincode/huginn_dj/internal/cache"
	"github.com/friendsincode/huginn_dj/internal/models"
	"github.com/friendsincode/huginn_dj/internal/telemetry"
)

// featuresChunkSize is the Spotify audio-features batch limit.
const featuresChunkSize = 100

// SpotifyConfig configures the Spotify catalog provider.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	// Market is an optional ISO country code for track relinking.
	Market string
}

// SpotifyProvider reads playlists and audio features from the Spotify Web
// API using the client-credentials flow. The OAuth token is held by an
// injected token source, optionally persisted through the cache layer, so
// no token ever lives in package-level state.
type SpotifyProvider struct {
	client *spotify.Client
	market string
	logger zerolog.Logger
}

// NewSpotifyProvider builds the provider. cache may be nil; when present
// the client-credentials token is persisted across restarts.
func NewSpotifyProvider(cfg SpotifyConfig, tokenCache *cache.Cache, logger zerolog.Logger) (*SpotifyProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("spotify client id and secret are required")
	}

	credentials := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	source := oauth2.TokenSource(credentials.TokenSource(context.Background()))
	if tokenCache != nil {
		source = &cachedTokenSource{next: source, cache: tokenCache}
	}
	httpClient := oauth2.NewClient(context.Background(), source)

	return &SpotifyProvider{
		client: spotify.New(httpClient),
		market: cfg.Market,
		logger: logger.With().Str("component", "catalog_spotify").Logger(),
	}, nil
}

// PlaylistTracks lists a playlist and attaches audio features, dropping
// episodes, local files and tracks whose features fail validation.
func (p *SpotifyProvider) PlaylistTracks(ctx context.Context, ref string) ([]models.Track, error) {
	playlistID, err := extractPlaylistID(ref)
	if err != nil {
		return nil, err
	}

	tracks, err := p.listPlaylistItems(ctx, playlistID)
	if err != nil {
		telemetry.CatalogRequestsTotal.WithLabelValues("playlist", "error").Inc()
		return nil, err
	}

	out, err := p.attachFeatures(ctx, tracks)
	if err != nil {
		telemetry.CatalogRequestsTotal.WithLabelValues("playlist", "error").Inc()
		return nil, err
	}
	if len(out) == 0 {
		telemetry.CatalogRequestsTotal.WithLabelValues("playlist", "empty").Inc()
		return nil, ErrNoUsableTracks
	}

	telemetry.CatalogRequestsTotal.WithLabelValues("playlist", "ok").Inc()
	p.logger.Info().
		Str("playlist_id", playlistID).
		Int("tracks", len(out)).
		Msg("playlist resolved")
	return out, nil
}

// Search finds tracks by free text and attaches features.
func (p *SpotifyProvider) Search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	opts := []spotify.RequestOption{spotify.Limit(limit)}
	if p.market != "" {
		opts = append(opts, spotify.Market(p.market))
	}

	result, err := p.client.Search(ctx, query, spotify.SearchTypeTrack, opts...)
	if err != nil {
		telemetry.CatalogRequestsTotal.WithLabelValues("search", "error").Inc()
		return nil, fmt.Errorf("spotify search: %w", err)
	}

	var tracks []models.Track
	if result.Tracks != nil {
		for _, full := range result.Tracks.Tracks {
			tracks = append(tracks, models.Track{
				ID:     string(full.ID),
				Name:   full.Name,
				Artist: firstArtist(full.Artists),
			})
		}
	}

	out, err := p.attachFeatures(ctx, tracks)
	if err != nil {
		telemetry.CatalogRequestsTotal.WithLabelValues("search", "error").Inc()
		return nil, err
	}
	telemetry.CatalogRequestsTotal.WithLabelValues("search", "ok").Inc()
	return out, nil
}

func (p *SpotifyProvider) listPlaylistItems(ctx context.Context, playlistID string) ([]models.Track, error) {
	var tracks []models.Track
	offset := 0

	for {
		opts := []spotify.RequestOption{spotify.Limit(featuresChunkSize), spotify.Offset(offset)}
		if p.market != "" {
			opts = append(opts, spotify.Market(p.market))
		}

		page, err := p.client.GetPlaylistItems(ctx, spotify.ID(playlistID), opts...)
		if err != nil {
			if isNotFound(err) {
				return nil, ErrPlaylistNotFound
			}
			return nil, fmt.Errorf("get playlist items at offset %d: %w", offset, err)
		}

		for _, item := range page.Items {
			// Episodes and local files carry no audio features.
			if item.Track.Track == nil || item.Track.Track.ID == "" {
				continue
			}
			tracks = append(tracks, models.Track{
				ID:     string(item.Track.Track.ID),
				Name:   item.Track.Track.Name,
				Artist: firstArtist(item.Track.Track.Artists),
			})
		}

		if offset+len(page.Items) >= int(page.Total) || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	return tracks, nil
}

// attachFeatures fetches audio features in API-sized chunks and keeps only
// tracks whose features pass validation.
func (p *SpotifyProvider) attachFeatures(ctx context.Context, tracks []models.Track) ([]models.Track, error) {
	out := make([]models.Track, 0, len(tracks))

	for start := 0; start < len(tracks); start += featuresChunkSize {
		end := start + featuresChunkSize
		if end > len(tracks) {
			end = len(tracks)
		}
		chunk := tracks[start:end]

		ids := make([]spotify.ID, 0, len(chunk))
		for _, track := range chunk {
			ids = append(ids, spotify.ID(track.ID))
		}

		features, err := p.client.GetAudioFeatures(ctx, ids...)
		if err != nil {
			return nil, fmt.Errorf("get audio features: %w", err)
		}

		for i, af := range features {
			if af == nil {
				continue
			}
			track := chunk[i]
			track.Features = mapAudioFeatures(af)
			if err := ValidateFeatures(track.Features); err != nil {
				p.logger.Warn().
					Str("track_id", track.ID).
					Err(err).
					Msg("dropping track with invalid features")
				continue
			}
			out = append(out, track)
		}
	}

	return out, nil
}

func mapAudioFeatures(af *spotify.AudioFeatures) models.AudioFeatures {
	return models.AudioFeatures{
		Tempo:            float64(af.Tempo),
		Energy:           float64(af.Energy),
		Danceability:     float64(af.Danceability),
		Valence:          float64(af.Valence),
		Acousticness:     float64(af.Acousticness),
		Instrumentalness: float64(af.Instrumentalness),
		Liveness:         float64(af.Liveness),
		Speechiness:      float64(af.Speechiness),
		Loudness:         float64(af.Loudness),
		Key:              int(af.Key),
		Mode:             int(af.Mode),
		TimeSignature:    int(af.TimeSignature),
		DurationMS:       int(af.Duration),
	}
}

func firstArtist(artists []spotify.SimpleArtist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}

// extractPlaylistID accepts open.spotify.com URLs, spotify: URIs and bare
// playlist ids.
func extractPlaylistID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty playlist reference")
	}

	if strings.HasPrefix(ref, "spotify:playlist:") {
		return strings.TrimPrefix(ref, "spotify:playlist:"), nil
	}
	if idx := strings.Index(ref, "open.spotify.com/playlist/"); idx >= 0 {
		id := ref[idx+len("open.spotify.com/playlist/"):]
		if q := strings.IndexByte(id, '?'); q >= 0 {
			id = id[:q]
		}
		id = strings.TrimSuffix(id, "/")
		if id == "" {
			return "", fmt.Errorf("malformed playlist URL %q", ref)
		}
		return id, nil
	}
	if strings.ContainsAny(ref, "/:? ") {
		return "", fmt.Errorf("unsupported playlist reference %q", ref)
	}
	return ref, nil
}

func isNotFound(err error) bool {
	var apiErr spotify.Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// cachedTokenSource persists client-credentials tokens through the cache
// so restarts reuse a still-valid token instead of re-authenticating.
type cachedTokenSource struct {
	mu    sync.Mutex
	next  oauth2.TokenSource
	cache *cache.Cache
}

func (s *cachedTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	if cached, ok := s.cache.GetClientToken(ctx); ok {
		return &oauth2.Token{
			AccessToken: cached.AccessToken,
			TokenType:   cached.TokenType,
			Expiry:      cached.Expiry,
		}, nil
	}

	token, err := s.next.Token()
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetClientToken(ctx, cache.CachedToken{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Expiry:      token.Expiry,
	})
	return token, nil
}
