// Package vault stores song notes as Markdown files under an Obsidian vault root.
//
// Paths handed to and returned from a [Store] are vault-relative and
// slash-separated ("Songs/Track.md"). Paths that would escape the root are
// rejected. Writes go through a temp file and rename so a crash never leaves a
// half-written note.
package vault
