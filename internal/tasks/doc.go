// Package tasks keeps song notes in a vault folder in sync with Spotify.
//
// # Core Operations
//
// [NoteEngine] exposes two operations:
//
//  1. [NoteEngine.LocateOrCreate] : find the note for a track or create one
//     - Ensures the target folder exists
//     - Scans notes for a frontmatter track_id line equal to the track's id
//     - Rewrites the frontmatter of the first match, leaving the body untouched
//     - Otherwise creates "<Song>.md", "<Song> - 2.md", ... with an empty body
//
//  2. [NoteEngine.RefreshAll] : refresh every tracked note in a folder
//     - Extracts track_id from each note (notes without one are skipped)
//     - Fetches each track, then looks up genres for all artists in one batched pass
//     - Upserts frontmatter per note; one note failing never aborts the others
//
// [NoteEngine.CaptureCurrent] and [NoteEngine.AddTrack] combine a fetch with
// LocateOrCreate for the currently playing track and for a pasted link.
//
// # Progress Reporting
//
// RefreshAll accepts an optional channel of [ProgressUpdate] values. Sends use
// select with default so a slow reader never blocks the sync.
package tasks
