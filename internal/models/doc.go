// Package models defines the song-note domain.
//
// A [Song] is the note-worthy metadata of one track, parsed from the provider's
// responses. It is treated as a value: [Song.Enrich] returns a copy with genres
// drawn from a [GenreIndex] instead of mutating the receiver.
//
// A [GenreIndex] maps artist ids to genres. It is built per sync operation from
// batched artist lookups and is never cached across operations.
package models
