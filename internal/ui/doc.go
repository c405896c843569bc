// Package ui implements the interactive note browser using bubbletea's Elm architecture.
//
// The browser has three views:
//  1. [ListView] : browse song notes in the configured folder, filter by name or artist
//  2. [RefreshView] : live progress of a refresh over the whole folder
//  3. [ResultView] : updated/failed/skipped counts of the last refresh
//
// Progress flows through a channel from [tasks.NoteEngine.RefreshAll], providing non-blocking status reporting.
//
// Styling helpers ([Title], [OK], [Err], [Warn], [Help]) are shared with plain CLI output.
package ui
