package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/musicvault/internal/shared"
)

const trackJSON = `{
	"id": "4uLU6hMCjMI75M1A2tKUQC",
	"name": "Never Gonna Give You Up",
	"type": "track",
	"duration_ms": 213573,
	"explicit": false,
	"popularity": 77,
	"external_ids": {"isrc": "GBARL9300135"},
	"external_urls": {"spotify": "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"},
	"artists": [{"id": "0gxyHStUsqpMadRV0Di1Qt", "name": "Rick Astley", "external_urls": {"spotify": "https://open.spotify.com/artist/0gxyHStUsqpMadRV0Di1Qt"}}],
	"album": {"id": "6XhjNHCyCDyyGJRM5mg40G", "name": "Whenever You Need Somebody", "release_date": "1987-11-12"}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *SpotifyClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewSpotifyClient(SpotifyOpts{
		ClientID:    "test_client_id",
		RedirectURI: shared.DefaultRedirectURI,
		Scopes:      []string{"user-read-currently-playing"},
		TokenURL:    server.URL + "/api/token",
		BaseURL:     server.URL + "/v1",
		HTTPClient:  server.Client(),
	})
}

func TestSpotifyTokenEndpoint(t *testing.T) {
	t.Run("ExchangeCode", func(t *testing.T) {
		t.Run("posts PKCE grant and returns pair", func(t *testing.T) {
			srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/api/token" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if err := r.ParseForm(); err != nil {
					t.Fatalf("failed to parse form: %v", err)
				}
				want := map[string]string{
					"grant_type":    "authorization_code",
					"code":          "XYZ",
					"code_verifier": "V",
					"redirect_uri":  shared.DefaultRedirectURI,
					"client_id":     "test_client_id",
				}
				for k, v := range want {
					if got := r.PostForm.Get(k); got != v {
						t.Errorf("expected %s=%s, got %s", k, v, got)
					}
				}
				if r.PostForm.Has("client_secret") {
					t.Error("expected no client secret in PKCE exchange")
				}
				if _, _, ok := r.BasicAuth(); ok {
					t.Error("expected no basic auth header")
				}

				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"access_token":"t1","refresh_token":"r1","expires_in":3600,"token_type":"Bearer","scope":"user-read-currently-playing"}`)
			})

			pair, err := srv.ExchangeCode(context.Background(), "XYZ", "V")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if pair.AccessToken != "t1" || pair.RefreshToken != "r1" {
				t.Errorf("unexpected tokens %+v", pair)
			}
			if pair.ExpiresIn != 3600 {
				t.Errorf("expected expires_in 3600, got %d", pair.ExpiresIn)
			}
			if pair.Scope != "user-read-currently-playing" || pair.TokenType != "Bearer" {
				t.Errorf("unexpected scope/type %+v", pair)
			}
			if pair.ExpiresAt.IsZero() {
				t.Error("expected expiry to be computed")
			}
		})

		t.Run("non-2xx fails", func(t *testing.T) {
			srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error":"invalid_grant","error_description":"secret stuff"}`)
			})

			_, err := srv.ExchangeCode(context.Background(), "XYZ", "V")
			if !errors.Is(err, shared.ErrTokenExchangeFailed) {
				t.Fatalf("expected ErrTokenExchangeFailed, got %v", err)
			}
			if strings.Contains(err.Error(), "secret stuff") {
				t.Error("expected response body to be redacted")
			}
		})

		t.Run("unparsable body fails", func(t *testing.T) {
			srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{not json`)
			})

			if _, err := srv.ExchangeCode(context.Background(), "XYZ", "V"); !errors.Is(err, shared.ErrTokenExchangeFailed) {
				t.Errorf("expected ErrTokenExchangeFailed, got %v", err)
			}
		})

		t.Run("missing access token fails", func(t *testing.T) {
			srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"token_type":"Bearer"}`)
			})

			if _, err := srv.ExchangeCode(context.Background(), "XYZ", "V"); !errors.Is(err, shared.ErrTokenExchangeFailed) {
				t.Errorf("expected ErrTokenExchangeFailed, got %v", err)
			}
		})
	})

	t.Run("RefreshToken", func(t *testing.T) {
		t.Run("keeps refresh token when not rotated", func(t *testing.T) {
			srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				r.ParseForm()
				if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "r1" {
					t.Errorf("unexpected refresh form %v", r.PostForm)
				}
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"access_token":"t2","expires_in":3600,"token_type":"Bearer"}`)
			})

			pair, err := srv.RefreshToken(context.Background(), "r1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if pair.AccessToken != "t2" || pair.RefreshToken != "r1" {
				t.Errorf("unexpected pair %+v", pair)
			}
		})

		t.Run("uses rotated refresh token", func(t *testing.T) {
			srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"access_token":"t2","refresh_token":"r2","expires_in":3600}`)
			})

			pair, err := srv.RefreshToken(context.Background(), "r1")
			if err != nil || pair.RefreshToken != "r2" {
				t.Errorf("expected rotated refresh token, got %+v, %v", pair, err)
			}
		})

		t.Run("failure", func(t *testing.T) {
			srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			})

			if _, err := srv.RefreshToken(context.Background(), "r1"); !errors.Is(err, shared.ErrTokenExchangeFailed) {
				t.Errorf("expected ErrTokenExchangeFailed, got %v", err)
			}
		})
	})
}

func TestSpotifyMetadata(t *testing.T) {
	t.Run("FetchCurrentlyPlaying", func(t *testing.T) {
		respond := func(status int, body string) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/me/player/currently-playing" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer access" {
					t.Errorf("expected bearer header, got %q", got)
				}
				w.WriteHeader(status)
				fmt.Fprint(w, body)
			}
		}

		t.Run("playing track", func(t *testing.T) {
			srv := newTestClient(t, respond(http.StatusOK, `{"is_playing":true,"currently_playing_type":"track","item":`+trackJSON+`}`))

			song, err := srv.FetchCurrentlyPlaying(context.Background(), "access")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if song == nil || song.TrackID != "4uLU6hMCjMI75M1A2tKUQC" {
				t.Fatalf("unexpected song %+v", song)
			}
		})

		absent := map[string]struct {
			status int
			body   string
		}{
			"paused with item": {http.StatusOK, `{"is_playing":false,"currently_playing_type":"track","item":` + trackJSON + `}`},
			"no content":       {http.StatusNoContent, ``},
			"episode":          {http.StatusOK, `{"is_playing":true,"currently_playing_type":"episode","item":{"id":"e","name":"Pod","type":"episode"}}`},
			"null item":        {http.StatusOK, `{"is_playing":true,"currently_playing_type":"track","item":null}`},
			"malformed body":   {http.StatusOK, `{"is_playing":`},
			"malformed item":   {http.StatusOK, `{"is_playing":true,"item":{"id":5}}`},
			"item without id":  {http.StatusOK, `{"is_playing":true,"item":{"name":"x"}}`},
		}
		for name, tc := range absent {
			t.Run(name, func(t *testing.T) {
				srv := newTestClient(t, respond(tc.status, tc.body))

				song, err := srv.FetchCurrentlyPlaying(context.Background(), "access")
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if song != nil {
					t.Errorf("expected no song, got %+v", song)
				}
			})
		}

		t.Run("unauthorized", func(t *testing.T) {
			srv := newTestClient(t, respond(http.StatusUnauthorized, `{"error":{"status":401}}`))

			_, err := srv.FetchCurrentlyPlaying(context.Background(), "access")
			if !IsUnauthorized(err) {
				t.Errorf("expected unauthorized error, got %v", err)
			}
			if !errors.Is(err, shared.ErrRemoteFetchFailed) {
				t.Errorf("expected ErrRemoteFetchFailed, got %v", err)
			}
		})

		t.Run("missing token", func(t *testing.T) {
			srv := newTestClient(t, respond(http.StatusOK, `{}`))
			if _, err := srv.FetchCurrentlyPlaying(context.Background(), ""); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("FetchByID", func(t *testing.T) {
		t.Run("parses track", func(t *testing.T) {
			srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/tracks/4uLU6hMCjMI75M1A2tKUQC" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				fmt.Fprint(w, trackJSON)
			})

			song, err := srv.FetchByID(context.Background(), "access", "4uLU6hMCjMI75M1A2tKUQC")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if song.ISRC != "GBARL9300135" || *song.DurationMs != 213573 || *song.Popularity != 77 {
				t.Errorf("unexpected song %+v", song)
			}
			if song.Album == nil || song.Album.ReleaseDate != "1987-11-12" {
				t.Errorf("unexpected album %+v", song.Album)
			}
			if len(song.Artists) != 1 || song.Artists[0].Link == "" {
				t.Errorf("unexpected artists %+v", song.Artists)
			}
		})

		t.Run("not found", func(t *testing.T) {
			srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			})

			if _, err := srv.FetchByID(context.Background(), "access", "missing"); !errors.Is(err, shared.ErrRemoteFetchFailed) {
				t.Errorf("expected ErrRemoteFetchFailed, got %v", err)
			}
		})
	})

	t.Run("FetchGenres", func(t *testing.T) {
		t.Run("batches of fifty", func(t *testing.T) {
			var mu sync.Mutex
			var sizes []int
			srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/artists" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				ids := strings.Split(r.URL.Query().Get("ids"), ",")
				mu.Lock()
				sizes = append(sizes, len(ids))
				mu.Unlock()

				var payload severalArtists
				for _, id := range ids {
					payload.Artists = append(payload.Artists, &SpotifyArtist{ID: id, Genres: []string{"g-" + id}})
				}
				json.NewEncoder(w).Encode(payload)
			})

			var ids []string
			for i := range 120 {
				ids = append(ids, fmt.Sprintf("artist%03d", i))
			}
			ids = append(ids, ids[:10]...)

			index := srv.FetchGenres(context.Background(), "access", ids)
			if fmt.Sprint(sizes) != "[50 50 20]" {
				t.Errorf("expected batches [50 50 20], got %v", sizes)
			}
			if len(index) != 120 {
				t.Errorf("expected 120 entries, got %d", len(index))
			}
			if got := index["artist007"]; len(got) != 1 || got[0] != "g-artist007" {
				t.Errorf("unexpected genres %v", got)
			}
		})

		t.Run("ids are joined with literal commas", func(t *testing.T) {
			var rawQuery string
			srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				rawQuery = r.URL.RawQuery
				json.NewEncoder(w).Encode(severalArtists{})
			})

			srv.FetchGenres(context.Background(), "access", []string{"a", "b", "c"})
			if rawQuery != "ids=a,b,c" {
				t.Errorf("expected ids=a,b,c, got %q", rawQuery)
			}
		})

		t.Run("failed batch contributes nothing", func(t *testing.T) {
			calls := 0
			srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				if calls == 1 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				ids := strings.Split(r.URL.Query().Get("ids"), ",")
				var payload severalArtists
				for _, id := range ids {
					payload.Artists = append(payload.Artists, &SpotifyArtist{ID: id, Genres: []string{"rock"}})
				}
				payload.Artists = append(payload.Artists, nil)
				json.NewEncoder(w).Encode(payload)
			})

			var ids []string
			for i := range 60 {
				ids = append(ids, fmt.Sprintf("a%d", i))
			}

			index := srv.FetchGenres(context.Background(), "access", ids)
			if calls != 2 {
				t.Errorf("expected 2 requests, got %d", calls)
			}
			if len(index) != 10 {
				t.Errorf("expected only second batch entries, got %d", len(index))
			}
			if _, ok := index["a0"]; ok {
				t.Error("expected failed batch ids to be absent")
			}
		})

		t.Run("no ids", func(t *testing.T) {
			srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				t.Error("expected no request")
			})
			if index := srv.FetchGenres(context.Background(), "access", []string{"", ""}); len(index) != 0 {
				t.Errorf("expected empty index, got %v", index)
			}
		})
	})
}

func TestParseTrack(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		song, err := ParseTrack(SpotifyTrack{ID: "abc", Name: "Bare"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if song.Link != "https://open.spotify.com/track/abc" {
			t.Errorf("expected derived link, got %s", song.Link)
		}
		if song.DurationMs != nil || song.Explicit != nil || song.Popularity != nil || song.Album != nil {
			t.Errorf("expected absent optionals, got %+v", song)
		}
		if song.Genres == nil {
			t.Error("expected empty, non-nil genres")
		}
	})

	t.Run("rejects incomplete", func(t *testing.T) {
		if _, err := ParseTrack(SpotifyTrack{Name: "no id"}); err == nil {
			t.Error("expected error without id")
		}
		if _, err := ParseTrack(SpotifyTrack{ID: "x"}); err == nil {
			t.Error("expected error without name")
		}
	})
}

func TestParseTrackRef(t *testing.T) {
	const id = "4uLU6hMCjMI75M1A2tKUQC"
	valid := []string{
		id,
		"  " + id + "\n",
		"spotify:track:" + id,
		"https://open.spotify.com/track/" + id,
		"https://open.spotify.com/track/" + id + "?si=abcdef",
		"https://open.spotify.com/intl-de/track/" + id,
	}
	for _, ref := range valid {
		got, err := ParseTrackRef(ref)
		if err != nil || got != id {
			t.Errorf("%q: expected %s, got %q (%v)", ref, id, got, err)
		}
	}

	invalid := []string{
		"",
		"short",
		"spotify:album:" + id,
		"https://open.spotify.com/album/" + id,
		"../../etc/passwd",
	}
	for _, ref := range invalid {
		if _, err := ParseTrackRef(ref); err == nil {
			t.Errorf("%q: expected error", ref)
		}
	}
}
