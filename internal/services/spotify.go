// Spotify Web API client.
//
// Response types follow https://developer.spotify.com/documentation/web-api/reference/
// and carry only the fields the song notes consume.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicvault/internal/models"
	"github.com/desertthunder/musicvault/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	SpotifyAuthURL  = "https://accounts.spotify.com/authorize"
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
	SpotifyBaseURL  = "https://api.spotify.com/v1"

	// MaxArtistBatch is the provider limit of ids per /artists request.
	MaxArtistBatch = 50
)

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyArtist represents a Spotify artist. Genres are only present on full artist objects.
type SpotifyArtist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Genres       []string     `json:"genres"`
	ExternalURLs externalURLs `json:"external_urls"`
}

// SpotifyAlbum represents the simplified album embedded in a track.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
}

// SpotifyTrack represents a Spotify track. Optional numbers are pointers so absence is kept.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        *SpotifyAlbum   `json:"album"`
	DurationMS   *int            `json:"duration_ms"`
	Explicit     *bool           `json:"explicit"`
	Popularity   *int            `json:"popularity"`
	ExternalIDs  externalIDs     `json:"external_ids"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

// currentlyPlaying is the /me/player/currently-playing payload. Item stays raw
// because it may be an episode or null.
type currentlyPlaying struct {
	IsPlaying            bool            `json:"is_playing"`
	CurrentlyPlayingType string          `json:"currently_playing_type"`
	Item                 json.RawMessage `json:"item"`
}

var errDecode = errors.New("failed to decode response")

type severalArtists struct {
	Artists []*SpotifyArtist `json:"artists"`
}

// SpotifyOpts configures a [SpotifyClient]. Zero values select the production endpoints.
type SpotifyOpts struct {
	ClientID          string
	RedirectURI       string
	Scopes            []string
	AuthURL           string
	TokenURL          string
	BaseURL           string
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *log.Logger
}

// SpotifyClient talks to the token endpoint and the metadata API.
//
// It never holds a token: callers pass the bearer string to every metadata call
// and handle 401s themselves (see [IsUnauthorized]).
type SpotifyClient struct {
	config     *oauth2.Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewSpotifyClient creates a client for the public PKCE app described by opts.
func NewSpotifyClient(opts SpotifyOpts) *SpotifyClient {
	if opts.AuthURL == "" {
		opts.AuthURL = SpotifyAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = SpotifyTokenURL
	}
	if opts.BaseURL == "" {
		opts.BaseURL = SpotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &SpotifyClient{
		config: &oauth2.Config{
			ClientID:    opts.ClientID,
			RedirectURL: opts.RedirectURI,
			Scopes:      opts.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     opts.Logger,
	}
}

// AuthURL returns the authorization endpoint.
func (s *SpotifyClient) AuthURL() string {
	return s.config.Endpoint.AuthURL
}

// ExchangeCode trades an authorization code and its PKCE verifier for a token pair.
//
// The request carries no client secret; the verifier authenticates the client.
func (s *SpotifyClient) ExchangeCode(ctx context.Context, code, verifier string) (*models.TokenPair, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	token, err := s.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		s.logTokenError("authorization_code", err)
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExchangeFailed, redactTokenError(err))
	}
	return tokenPair(token), nil
}

// RefreshToken exchanges a refresh token for a new pair.
//
// When the provider does not rotate the refresh token, the old one is kept.
func (s *SpotifyClient) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	token, err := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		s.logTokenError("refresh_token", err)
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExchangeFailed, redactTokenError(err))
	}
	pair := tokenPair(token)
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}

func (s *SpotifyClient) logTokenError(grant string, err error) {
	status := 0
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		status = retrieveErr.Response.StatusCode
	}
	s.logger.Error("token request failed", "endpoint", s.config.Endpoint.TokenURL, "grant_type", grant, "status", status)
}

// redactTokenError drops the response body, which may echo credentials.
func redactTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		if retrieveErr.ErrorCode != "" {
			return fmt.Errorf("status %d: %s", retrieveErr.Response.StatusCode, retrieveErr.ErrorCode)
		}
		return fmt.Errorf("status %d", retrieveErr.Response.StatusCode)
	}
	return err
}

func tokenPair(token *oauth2.Token) *models.TokenPair {
	pair := &models.TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresIn:    token.ExpiresIn,
		ExpiresAt:    token.Expiry,
	}
	if scope, ok := token.Extra("scope").(string); ok {
		pair.Scope = scope
	}
	if pair.ExpiresIn == 0 && !token.Expiry.IsZero() {
		pair.ExpiresIn = int64(time.Until(token.Expiry).Round(time.Second).Seconds())
	}
	return pair
}

// doRequest performs a rate-limited, bearer-authenticated GET against the API and
// decodes a JSON body into result. It returns the response status.
//
// A 204 leaves result untouched.
func (s *SpotifyClient) doRequest(ctx context.Context, accessToken, endpoint string, result any) (int, error) {
	if accessToken == "" {
		return 0, shared.ErrNotAuthenticated
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("request failed", "endpoint", endpoint, "error", err)
		return 0, fmt.Errorf("%w: %s: %v", shared.ErrRemoteFetchFailed, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("spotify API error", "endpoint", endpoint, "status", resp.StatusCode)
		return resp.StatusCode, &APIError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	if resp.StatusCode == http.StatusNoContent || result == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %v", errDecode, err)
	}
	return resp.StatusCode, nil
}

// FetchCurrentlyPlaying returns the track the user is playing.
//
// The result is nil without error when nothing is playing, playback is paused,
// the item is not a track, or the payload cannot be parsed (parse failures are logged).
func (s *SpotifyClient) FetchCurrentlyPlaying(ctx context.Context, accessToken string) (*models.Song, error) {
	const endpoint = "/me/player/currently-playing"

	var payload currentlyPlaying
	status, err := s.doRequest(ctx, accessToken, endpoint, &payload)
	if errors.Is(err, errDecode) {
		s.logger.Warn("unparsable currently playing response", "endpoint", endpoint, "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || !payload.IsPlaying {
		return nil, nil
	}
	if payload.CurrentlyPlayingType != "" && payload.CurrentlyPlayingType != "track" {
		return nil, nil
	}
	if len(payload.Item) == 0 || string(payload.Item) == "null" {
		return nil, nil
	}

	var track SpotifyTrack
	if err := json.Unmarshal(payload.Item, &track); err != nil {
		s.logger.Warn("unparsable currently playing item", "endpoint", endpoint, "error", err)
		return nil, nil
	}
	if track.Type != "" && track.Type != "track" {
		return nil, nil
	}

	song, err := ParseTrack(track)
	if err != nil {
		s.logger.Warn("invalid currently playing item", "endpoint", endpoint, "error", err)
		return nil, nil
	}
	return song, nil
}

// FetchByID returns the track with the given id.
//
// The result is nil without error when the response is not a usable track.
func (s *SpotifyClient) FetchByID(ctx context.Context, accessToken, trackID string) (*models.Song, error) {
	endpoint := "/tracks/" + url.PathEscape(trackID)

	var track SpotifyTrack
	_, err := s.doRequest(ctx, accessToken, endpoint, &track)
	if errors.Is(err, errDecode) {
		s.logger.Warn("unparsable track response", "endpoint", endpoint, "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	song, err := ParseTrack(track)
	if err != nil {
		s.logger.Warn("invalid track response", "endpoint", endpoint, "error", err)
		return nil, nil
	}
	return song, nil
}

// FetchGenres looks up genres for artistIDs in batches of at most [MaxArtistBatch].
//
// Ids are deduplicated first. A failed batch is logged and contributes no entries;
// the other batches still land in the index.
func (s *SpotifyClient) FetchGenres(ctx context.Context, accessToken string, artistIDs []string) models.GenreIndex {
	index := make(models.GenreIndex)
	ids := dedupe(artistIDs)

	for start := 0; start < len(ids); start += MaxArtistBatch {
		end := min(start+MaxArtistBatch, len(ids))
		batch := ids[start:end]
		escaped := make([]string, len(batch))
		for i, id := range batch {
			escaped[i] = url.QueryEscape(id)
		}
		endpoint := "/artists?ids=" + strings.Join(escaped, ",")

		var payload severalArtists
		if _, err := s.doRequest(ctx, accessToken, endpoint, &payload); err != nil {
			s.logger.Warn("genre batch failed", "endpoint", "/artists", "batch_size", len(batch), "error", err)
			continue
		}

		for _, artist := range payload.Artists {
			if artist == nil || artist.ID == "" {
				continue
			}
			genres := artist.Genres
			if genres == nil {
				genres = []string{}
			}
			index[artist.ID] = genres
		}
	}
	return index
}

// ParseTrack converts a track payload into a [models.Song], filling defaults for
// every optional field.
func ParseTrack(track SpotifyTrack) (*models.Song, error) {
	if track.ID == "" {
		return nil, fmt.Errorf("track has no id")
	}
	if track.Name == "" {
		return nil, fmt.Errorf("track %s has no name", track.ID)
	}

	song := &models.Song{
		TrackID:    track.ID,
		Name:       track.Name,
		Link:       track.ExternalURLs.Spotify,
		ISRC:       track.ExternalIDs.ISRC,
		DurationMs: track.DurationMS,
		Explicit:   track.Explicit,
		Popularity: track.Popularity,
		Genres:     []string{},
	}
	if song.Link == "" {
		song.Link = "https://open.spotify.com/track/" + track.ID
	}

	for _, a := range track.Artists {
		song.Artists = append(song.Artists, models.Artist{
			ID:   a.ID,
			Name: a.Name,
			Link: a.ExternalURLs.Spotify,
		})
	}

	if track.Album != nil {
		song.Album = &models.Album{Name: track.Album.Name, ReleaseDate: track.Album.ReleaseDate}
	}
	return song, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
