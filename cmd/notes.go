package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musicvault/internal/formatter"
	"github.com/desertthunder/musicvault/internal/models"
	"github.com/desertthunder/musicvault/internal/shared"
	"github.com/desertthunder/musicvault/internal/tasks"
	"github.com/desertthunder/musicvault/internal/ui"
	"github.com/urfave/cli/v3"
)

// NotesCurrent writes the note for the track that is playing now.
func (r *Runner) NotesCurrent(ctx context.Context, cmd *cli.Command) error {
	folder, err := r.folder(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	handle, song, err := r.engine.CaptureCurrent(ctx, folder)
	if err != nil {
		if errors.Is(err, shared.ErrNoActiveTrack) {
			return r.writePlain("%s\n", ui.Warn("Nothing is playing right now"))
		}
		return err
	}
	return r.reportHandle(cmd, handle, song)
}

// NotesAdd writes the note for a track id, spotify:track URI or open.spotify.com link.
func (r *Runner) NotesAdd(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("track")
	if ref == "" {
		return fmt.Errorf("%w: track id or link", shared.ErrMissingArgument)
	}
	folder, err := r.folder(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	handle, song, err := r.engine.AddTrack(ctx, ref, folder)
	if err != nil {
		return err
	}
	return r.reportHandle(cmd, handle, song)
}

func (r *Runner) reportHandle(cmd *cli.Command, handle tasks.DocumentHandle, song *models.Song) error {
	switch {
	case handle.Created:
		r.writePlain("%s\n", ui.OK("✓ Created %s", handle.Path))
	case handle.Updated:
		r.writePlain("%s\n", ui.OK("✓ Updated %s", handle.Path))
	default:
		r.writePlain("= %s is up to date\n", handle.Path)
	}
	if song != nil {
		r.writePlain("  %s by %s\n", song.Name, strings.Join(artistNames(*song), ", "))
	}

	if cmd.Bool("open") {
		return r.openNote(handle.Path)
	}
	return nil
}

func (r *Runner) openNote(path string) error {
	uri := shared.ObsidianOpenURI(r.config.Vault.Name, path)
	r.logger.Debug("opening note", "uri", uri)
	return r.opener(uri)
}

type refreshSummary struct {
	Folder  string            `json:"folder"`
	RunID   string            `json:"run_id,omitempty"`
	Updated int               `json:"updated"`
	Written int               `json:"written"`
	Failed  int               `json:"failed"`
	Skipped int               `json:"skipped"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// NotesRefresh re-fetches every tracked note in the folder.
func (r *Runner) NotesRefresh(ctx context.Context, cmd *cli.Command) error {
	folder, err := r.folder(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	asJSON := cmd.Bool("json")
	r.logger.Info("refreshing notes", "folder", folder)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if asJSON {
				continue
			}
			switch update.Phase {
			case tasks.ScanNotes:
				r.writePlain("📂 %s\n", update.Message)
			case tasks.FetchGenres:
				r.writePlain("\n🏷  %s\n\n", update.Message)
			case tasks.WriteNotes, tasks.FetchTracks:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.RefreshAll(ctx, folder, progressCh)
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	summary := refreshSummary{
		Folder:  folder,
		RunID:   result.RunID,
		Updated: result.Updated,
		Written: result.Written,
		Failed:  result.Failed,
		Skipped: result.Skipped,
	}
	if len(result.Errors) > 0 {
		summary.Errors = make(map[string]string, len(result.Errors))
		for p, e := range result.Errors {
			summary.Errors[p] = e.Error()
		}
	}

	if asJSON {
		return r.writeJSON(summary, true)
	}

	r.writePlain("\n")
	r.writePlainHeader("Refresh Complete!")
	r.writePlain("Folder: %s\n", folder)
	r.writePlain("Updated: %d (%d changed)\n", summary.Updated, summary.Written)
	r.writePlain("Failed: %d\n", summary.Failed)
	r.writePlain("Skipped: %d\n", summary.Skipped)
	if summary.Failed > 0 {
		r.writePlain("\nFailed notes:\n")
		for p, e := range summary.Errors {
			r.writePlain("  - %s: %s\n", p, e)
		}
	}
	return nil
}

type noteRow struct {
	Path    string   `json:"path"`
	TrackID string   `json:"track_id"`
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
	Album   string   `json:"album,omitempty"`
	Genres  []string `json:"genres,omitempty"`
}

// loadNotes decodes the frontmatter of every note under folder. Notes without a
// readable song block are left out.
func (r *Runner) loadNotes(ctx context.Context, folder string) ([]ui.Note, error) {
	paths, err := r.vault.List(ctx, folder)
	if err != nil {
		return nil, err
	}

	notes := make([]ui.Note, 0, len(paths))
	for _, p := range paths {
		doc, err := r.vault.Read(ctx, p)
		if err != nil {
			r.logger.Warn("skipping unreadable note", "path", p, "error", err)
			continue
		}
		song, err := formatter.DecodeFrontmatter(doc)
		if err != nil || song.TrackID == "" {
			r.logger.Debug("skipping untracked note", "path", p)
			continue
		}
		notes = append(notes, ui.Note{Path: p, Song: song})
	}
	return notes, nil
}

// NotesList prints the tracked notes in the folder.
func (r *Runner) NotesList(ctx context.Context, cmd *cli.Command) error {
	folder, err := r.folder(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	notes, err := r.loadNotes(ctx, folder)
	if err != nil {
		return err
	}

	rows := make([]noteRow, 0, len(notes))
	for _, n := range notes {
		row := noteRow{
			Path:    n.Path,
			TrackID: n.Song.TrackID,
			Name:    n.Song.Name,
			Artists: artistNames(n.Song),
			Genres:  n.Song.Genres,
		}
		if n.Song.Album != nil {
			row.Album = n.Song.Album.Name
		}
		rows = append(rows, row)
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	r.writePlainHeader(fmt.Sprintf("Song notes in %s", folder))
	if len(rows) == 0 {
		return r.writePlain("No tracked notes\n")
	}
	for _, row := range rows {
		r.writePlain("%-22s  %s - %s\n", row.TrackID, row.Name, strings.Join(row.Artists, ", "))
		r.writePlain("%-22s  %s\n", "", ui.Help("%s", row.Path))
	}
	return r.writePlain("\nTotal: %d notes\n", len(rows))
}

// NotesWatch refreshes notes as they are created or edited until interrupted.
func (r *Runner) NotesWatch(ctx context.Context, cmd *cli.Command) error {
	folder, err := r.folder(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	debounce := cmd.Duration("debounce")
	changes, err := r.vault.Watch(ctx, folder, debounce, r.logger)
	if err != nil {
		return err
	}

	r.writePlain("👀 Watching %s (Ctrl+C to stop)\n", folder)

	// Our own writes come back as events; ignore them for a short window.
	written := map[string]time.Time{}
	for p := range changes {
		if at, ok := written[p]; ok && time.Since(at) < 4*debounce {
			delete(written, p)
			continue
		}

		handle, err := r.engine.RefreshDocument(ctx, p)
		switch {
		case errors.Is(err, shared.ErrDocumentParseSkip):
			r.logger.Debug("ignoring untracked note", "path", p)
		case err != nil:
			r.writePlain("%s\n", ui.Err("✗ %s: %v", p, err))
		case handle.Updated:
			written[p] = time.Now()
			r.writePlain("%s\n", ui.OK("✓ %s", p))
		default:
			r.logger.Debug("note already up to date", "path", p)
		}
	}
	r.writePlain("Stopped watching %s\n", folder)
	return nil
}

// NotesBrowse launches the interactive note browser.
func (r *Runner) NotesBrowse(ctx context.Context, cmd *cli.Command) error {
	folder, err := r.folder(cmd)
	if err != nil {
		return err
	}

	// Logs go to a file while the TUI owns the terminal.
	fileLogger, err := shared.NewFileLogger("./tmp/musicvault-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.setLogger(fileLogger)

	if err := r.open(); err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.ModelOpts{
		Folder:    folder,
		Refresher: r.engine,
		Load:      func(ctx context.Context) ([]ui.Note, error) { return r.loadNotes(ctx, folder) },
		Open:      r.openNote,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func artistNames(s models.Song) []string {
	names := make([]string, 0, len(s.Artists))
	for _, a := range s.Artists {
		names = append(names, a.Name)
	}
	return names
}
