package models

import (
	"fmt"
	"time"
)

// SyncRun records the outcome of one refresh pass over a folder.
type SyncRun struct {
	ID         string
	Folder     string
	Updated    int
	Failed     int
	Skipped    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Validate checks that the run has a folder and a sane time range.
func (r *SyncRun) Validate() error {
	if r.Folder == "" {
		return fmt.Errorf("sync run folder is required")
	}
	if r.Updated < 0 || r.Failed < 0 || r.Skipped < 0 {
		return fmt.Errorf("sync run counts must not be negative")
	}
	if r.FinishedAt.Before(r.StartedAt) {
		return fmt.Errorf("sync run finished before it started")
	}
	return nil
}

// Duration is the wall time of the run.
func (r *SyncRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
