package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"
)

type runRow struct {
	ID         string    `json:"id"`
	Folder     string    `json:"folder"`
	Updated    int       `json:"updated"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// History lists the most recent refresh runs.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	runs, err := r.runs.ListRecent(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		rows := make([]runRow, 0, len(runs))
		for _, run := range runs {
			rows = append(rows, runRow{
				ID:         run.ID,
				Folder:     run.Folder,
				Updated:    run.Updated,
				Failed:     run.Failed,
				Skipped:    run.Skipped,
				StartedAt:  run.StartedAt,
				FinishedAt: run.FinishedAt,
			})
		}
		return r.writeJSON(rows, true)
	}

	r.writePlainHeader("Recent refresh runs")
	if len(runs) == 0 {
		return r.writePlain("No runs recorded yet\n")
	}
	for _, run := range runs {
		r.writePlain("%s  %-12s updated %-4d failed %-4d skipped %-4d (%s)\n",
			run.StartedAt.Local().Format("2006-01-02 15:04"), run.Folder,
			run.Updated, run.Failed, run.Skipped, run.Duration().Round(time.Millisecond))
	}
	return nil
}

// HistoryPrune deletes all but the most recent runs.
func (r *Runner) HistoryPrune(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	removed, err := r.runs.Prune(ctx, cmd.Int("keep"))
	if err != nil {
		return err
	}
	r.logger.Info("pruned refresh history", "removed", removed)
	return r.writePlain("✓ Removed %d runs\n", removed)
}
