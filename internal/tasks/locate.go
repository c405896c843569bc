package tasks

import (
	"context"
	"fmt"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/desertthunder/musicvault/internal/formatter"
	"github.com/desertthunder/musicvault/internal/models"
	"github.com/desertthunder/musicvault/internal/shared"
)

// unsafeFilenameChars are stripped from note names: path separators, characters
// Windows rejects, and characters Obsidian treats as link syntax.
const unsafeFilenameChars = `\/:*?"<>|#^[]`

// LocateOrCreate returns the note for song under folder, creating it if needed.
//
// An existing note (first match in listing order) gets its frontmatter replaced
// and is written only if the content changed. Otherwise a new note named after
// the song is created, suffixed " - N" on collision.
func (e *NoteEngine) LocateOrCreate(ctx context.Context, song models.Song, folder string) (DocumentHandle, error) {
	if err := song.Validate(); err != nil {
		return DocumentHandle{}, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	if err := e.ensureFolder(ctx, folder); err != nil {
		return DocumentHandle{}, err
	}

	block := formatter.SerializeFrontmatter(song)

	existing, doc, err := e.findByTrackID(ctx, folder, song.TrackID)
	if err != nil {
		return DocumentHandle{}, err
	}
	if existing != "" {
		updated := formatter.UpsertFrontmatter(doc, block)
		if updated == doc {
			e.logger.Debug("note already up to date", "path", existing)
			return DocumentHandle{Path: existing}, nil
		}
		if err := e.docs.Write(ctx, existing, updated); err != nil {
			return DocumentHandle{}, fmt.Errorf("%w: write %s: %v", shared.ErrFileSystemFailure, existing, err)
		}
		e.logger.Info("updated note", "path", existing, "track_id", song.TrackID)
		return DocumentHandle{Path: existing, Updated: true}, nil
	}

	target, err := e.uniquePath(ctx, folder, e.filename(song))
	if err != nil {
		return DocumentHandle{}, err
	}
	if err := e.docs.Write(ctx, target, formatter.NewDocument(song)); err != nil {
		return DocumentHandle{}, fmt.Errorf("%w: write %s: %v", shared.ErrFileSystemFailure, target, err)
	}
	e.logger.Info("created note", "path", target, "track_id", song.TrackID)
	return DocumentHandle{Path: target, Created: true}, nil
}

// ensureFolder creates each missing segment of folder in order.
func (e *NoteEngine) ensureFolder(ctx context.Context, folder string) error {
	clean := path.Clean(strings.Trim(folder, "/"))
	if clean == "." || clean == "" {
		return nil
	}

	var current string
	for seg := range strings.SplitSeq(clean, "/") {
		current = path.Join(current, seg)
		ok, err := e.docs.Exists(ctx, current)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrFileSystemFailure, err)
		}
		if ok {
			continue
		}
		if err := e.docs.CreateFolder(ctx, current); err != nil {
			return fmt.Errorf("%w: create folder %s: %v", shared.ErrFileSystemFailure, current, err)
		}
	}
	return nil
}

// findByTrackID returns the first note under folder whose track_id line equals trackID.
// Unreadable notes are logged and skipped.
func (e *NoteEngine) findByTrackID(ctx context.Context, folder, trackID string) (string, string, error) {
	paths, err := e.docs.List(ctx, folder)
	if err != nil {
		return "", "", fmt.Errorf("%w: list %s: %v", shared.ErrFileSystemFailure, folder, err)
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}
		doc, err := e.docs.Read(ctx, p)
		if err != nil {
			e.logger.Warn("skipping unreadable note", "path", p, "error", err)
			continue
		}
		if id, ok := formatter.ParseTrackID(doc); ok && id == trackID {
			return p, doc, nil
		}
	}
	return "", "", nil
}

// uniquePath returns folder/name.md, or the first free folder/name - N.md.
func (e *NoteEngine) uniquePath(ctx context.Context, folder, name string) (string, error) {
	candidate := path.Join(folder, name+".md")
	for n := 2; ; n++ {
		exists, err := e.docs.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrFileSystemFailure, err)
		}
		if !exists {
			return candidate, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate = path.Join(folder, fmt.Sprintf("%s - %d.md", name, n))
	}
}

func (e *NoteEngine) filename(song models.Song) string {
	name := SanitizeFilename(song.Name, e.maxFilename)
	if name == "" {
		return song.TrackID
	}
	return name
}

// SanitizeFilename strips path-unsafe and control characters from name,
// collapses whitespace, and caps the result at limit characters.
func SanitizeFilename(name string, limit int) string {
	var b strings.Builder
	space := false
	for _, r := range name {
		switch {
		case r == utf8.RuneError, unicode.IsControl(r), strings.ContainsRune(unsafeFilenameChars, r):
			continue
		case unicode.IsSpace(r):
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}

	out := b.String()
	if limit > 0 && utf8.RuneCountInString(out) > limit {
		out = string([]rune(out)[:limit])
	}
	return strings.Trim(out, " .")
}
