package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ScanNotes Phase = iota
	FetchTracks
	FetchGenres
	WriteNotes
	Finished
)

func (p Phase) String() string {
	switch p {
	case ScanNotes:
		return "scan_notes"
	case FetchTracks:
		return "fetch_tracks"
	case FetchGenres:
		return "fetch_genres"
	case WriteNotes:
		return "write_notes"
	case Finished:
		return "finished"
	default:
		return ""
	}
}

func scanNotesUpdate(total int, folder string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanNotes,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Found %d notes in %s", total, folder),
	}
}

func fetchTrackUpdate(step, total int, trackID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s...", step, total, trackID),
	}
}

func fetchGenresUpdate(tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchGenres,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Looking up genres for %d tracks...", tracks),
	}
}

func noteWrittenUpdate(step, total int, path string, changed bool) ProgressUpdate {
	mark := "="
	if changed {
		mark = "✓"
	}
	return ProgressUpdate{
		Phase:   WriteNotes,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s", step, total, mark, path),
	}
}

func noteFailedUpdate(step, total int, path string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteNotes,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, path, err),
	}
}

func finishedUpdate(result *RefreshResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finished,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Updated %d, failed %d, skipped %d", result.Updated, result.Failed, result.Skipped),
		Data:    result,
	}
}
