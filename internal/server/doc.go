// Package server provides the local HTTP relay that carries authorization redirects into a running login.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Navigation Relay
//
// Spotify redirects to obsidian://music-vault-callback, a custom scheme the browser hands to the OS rather
// than to us. While "musicvault auth login" waits, it serves a [NavigationRelay] on localhost. The
// OS-registered scheme handler runs "musicvault auth callback <url>", which POSTs the URL to /navigate.
// The relay forwards it to the login's authorization surface; the surface decides whether it is the callback.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
