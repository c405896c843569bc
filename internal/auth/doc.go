// Package auth links musicvault to a Spotify account with the OAuth2 PKCE flow.
//
// # Flow
//
// A [Controller] drives one authorization attempt through the states
// Idle → AwaitingRedirect → ExchangingCode → Committed | Failed:
//
//  1. Build a [PKCESession] (random verifier, S256 challenge, anti-CSRF state)
//     and open its authorization URL on a [Surface].
//  2. Watch the surface's navigations. Anything that does not start with the
//     redirect URI is ignored. The first matching navigation ends observation.
//  3. Exchange the code and verifier for a token pair.
//  4. Commit the pair to the [TokenStore], close the surface, and call the
//     completion callback once. Failures close the surface and return an error.
//
// Starting a new attempt cancels the previous attempt's subscription, so a stale
// attempt can never complete.
//
// # Tokens
//
// [TokenStore] persists the pair as a single value in a host [KVStore], so a
// reader never sees half a pair. [Session] hands out bearer tokens and refreshes
// them when they expire.
package auth
