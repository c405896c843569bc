// Package services talks to the Spotify accounts service and Web API.
//
// # Tokens
//
// [SpotifyClient] is a public PKCE client: [SpotifyClient.ExchangeCode] and
// [SpotifyClient.RefreshToken] go through [oauth2.Config] with the client id in
// the form body and no secret. Token bodies are never logged; failures are
// reported as [shared.ErrTokenExchangeFailed] with the status and error code only.
//
// # Metadata
//
// Metadata calls take the bearer token as an argument so the caller decides when
// to refresh. Every GET passes through a [rate.Limiter]. A non-2xx response is
// an [*APIError]; use [IsUnauthorized] to detect a rejected token.
//
//   - [SpotifyClient.FetchCurrentlyPlaying]: nil when nothing (or no track) is playing
//   - [SpotifyClient.FetchByID]: nil when the payload is not a usable track
//   - [SpotifyClient.FetchGenres]: batched /artists lookups, failed batches are skipped
//
// [ParseTrackRef] accepts bare ids, spotify:track: URIs and open.spotify.com links.
package services
