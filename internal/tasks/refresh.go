package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/musicvault/internal/formatter"
	"github.com/desertthunder/musicvault/internal/models"
	"github.com/desertthunder/musicvault/internal/shared"
)

type trackedNote struct {
	path    string
	doc     string
	trackID string
}

// RefreshAll re-fetches every tracked note under folder and rewrites its frontmatter.
//
// Notes are processed sequentially. A note whose fetch or write fails is
// counted in Failed and the pass continues. Tracks are fetched once per id and
// the genre lookup is batched across the whole pass. Only a failure to list the
// folder or obtain a token aborts the pass.
func (e *NoteEngine) RefreshAll(ctx context.Context, folder string, progress chan<- ProgressUpdate) (*RefreshResult, error) {
	started := e.now()
	result := &RefreshResult{Errors: map[string]error{}}

	paths, err := e.docs.List(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", shared.ErrFileSystemFailure, folder, err)
	}
	e.sendProgress(progress, scanNotesUpdate(len(paths), folder))

	notes := e.scan(ctx, paths, result)
	if len(notes) > 0 {
		if _, err := e.tokens.AccessToken(ctx); err != nil {
			return nil, err
		}
	}

	songs := make(map[string]*models.Song)
	fetchErrs := make(map[string]error)
	fetched := make([]*models.Song, 0, len(notes))
	for i, n := range notes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, done := songs[n.trackID]; done {
			continue
		}
		if _, done := fetchErrs[n.trackID]; done {
			continue
		}
		e.sendProgress(progress, fetchTrackUpdate(i+1, len(notes), n.trackID))

		song, err := e.fetchByID(ctx, n.trackID)
		if err != nil {
			fetchErrs[n.trackID] = err
			continue
		}
		songs[n.trackID] = song
		fetched = append(fetched, song)
	}

	if len(fetched) > 0 {
		e.sendProgress(progress, fetchGenresUpdate(len(fetched)))
	}
	genres := e.fetchGenres(ctx, fetched...)

	for i, n := range notes {
		step := i + 1
		if err := fetchErrs[n.trackID]; err != nil {
			e.fail(result, progress, step, len(notes), n.path, err)
			continue
		}

		enriched := songs[n.trackID].Enrich(genres)
		changed, err := e.upsert(ctx, n, enriched)
		if err != nil {
			e.fail(result, progress, step, len(notes), n.path, err)
			continue
		}

		result.Updated++
		if changed {
			result.Written++
		}
		e.sendProgress(progress, noteWrittenUpdate(step, len(notes), n.path, changed))
	}

	e.record(ctx, folder, started, result)
	e.sendProgress(progress, finishedUpdate(result))
	e.logger.Info("refresh finished", "folder", folder, "updated", result.Updated, "written", result.Written,
		"failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

// RefreshDocument refreshes a single note. It returns [shared.ErrDocumentParseSkip]
// when the note has no track_id.
func (e *NoteEngine) RefreshDocument(ctx context.Context, p string) (DocumentHandle, error) {
	doc, err := e.docs.Read(ctx, p)
	if err != nil {
		return DocumentHandle{}, fmt.Errorf("%w: %s: %v", shared.ErrDocumentParseSkip, p, err)
	}
	trackID, ok := formatter.ParseTrackID(doc)
	if !ok {
		return DocumentHandle{}, fmt.Errorf("%w: %s has no track_id", shared.ErrDocumentParseSkip, p)
	}

	song, err := e.fetchByID(ctx, trackID)
	if err != nil {
		return DocumentHandle{}, err
	}
	enriched := song.Enrich(e.fetchGenres(ctx, song))

	changed, err := e.upsert(ctx, trackedNote{path: p, doc: doc, trackID: trackID}, enriched)
	if err != nil {
		return DocumentHandle{}, err
	}
	return DocumentHandle{Path: p, Updated: changed}, nil
}

// scan reads each note and extracts its track_id. Unreadable notes and notes
// without a track_id are counted as skipped.
func (e *NoteEngine) scan(ctx context.Context, paths []string, result *RefreshResult) []trackedNote {
	notes := make([]trackedNote, 0, len(paths))
	for _, p := range paths {
		doc, err := e.docs.Read(ctx, p)
		if err != nil {
			e.logger.Warn("skipping unreadable note", "path", p, "error", err)
			result.Skipped++
			continue
		}
		trackID, ok := formatter.ParseTrackID(doc)
		if !ok {
			e.logger.Debug("skipping note without track_id", "path", p)
			result.Skipped++
			continue
		}
		notes = append(notes, trackedNote{path: p, doc: doc, trackID: trackID})
	}
	return notes
}

func (e *NoteEngine) fetchByID(ctx context.Context, trackID string) (*models.Song, error) {
	var song *models.Song
	err := e.withToken(ctx, func(token string) error {
		var err error
		song, err = e.client.FetchByID(ctx, token, trackID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if song == nil {
		return nil, fmt.Errorf("%w: track %s not available", shared.ErrRemoteFetchFailed, trackID)
	}
	return song, nil
}

// upsert rewrites the note's frontmatter and reports whether bytes changed.
func (e *NoteEngine) upsert(ctx context.Context, n trackedNote, song models.Song) (bool, error) {
	updated := formatter.UpsertFrontmatter(n.doc, formatter.SerializeFrontmatter(song))
	if updated == n.doc {
		return false, nil
	}
	if err := e.docs.Write(ctx, n.path, updated); err != nil {
		return false, fmt.Errorf("%w: write %s: %v", shared.ErrFileSystemFailure, n.path, err)
	}
	return true, nil
}

func (e *NoteEngine) fail(result *RefreshResult, progress chan<- ProgressUpdate, step, total int, p string, err error) {
	e.logger.Warn("note refresh failed", "path", p, "error", err)
	result.Failed++
	result.Errors[p] = err
	e.sendProgress(progress, noteFailedUpdate(step, total, p, err))
}

// record stores the run when a recorder is configured. Failures are logged only.
func (e *NoteEngine) record(ctx context.Context, folder string, started time.Time, result *RefreshResult) {
	if e.runs == nil {
		return
	}
	run := &models.SyncRun{
		Folder:     folder,
		Updated:    result.Updated,
		Failed:     result.Failed,
		Skipped:    result.Skipped,
		StartedAt:  started,
		FinishedAt: e.now(),
	}
	if err := e.runs.Record(ctx, run); err != nil {
		e.logger.Warn("could not record sync run", "error", err)
		return
	}
	result.RunID = run.ID
}
