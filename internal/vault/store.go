package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/desertthunder/musicvault/internal/shared"
)

// TempFilePrefix marks in-flight atomic writes. Listing skips these files.
const TempFilePrefix = ".musicvault-tmp-"

// Store is a document store rooted at a vault directory.
type Store struct {
	root string
	perm os.FileMode
}

// NewStore creates a [Store] rooted at root. The directory must exist.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve vault root: %v", shared.ErrFileSystemFailure, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: vault root: %v", shared.ErrFileSystemFailure, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: vault root %s is not a directory", shared.ErrFileSystemFailure, abs)
	}
	return &Store{root: abs, perm: 0o644}, nil
}

// Root returns the absolute vault directory.
func (s *Store) Root() string { return s.root }

// Resolve maps a vault-relative path to an absolute one inside the root.
// Absolute paths and ".." segments are rejected.
func (s *Store) Resolve(rel string) (string, error) {
	slashed := filepath.ToSlash(rel)
	if path.IsAbs(slashed) || filepath.IsAbs(rel) || slices.Contains(strings.Split(slashed, "/"), "..") {
		return "", fmt.Errorf("%w: path %q escapes the vault", shared.ErrInvalidArgument, rel)
	}
	return filepath.Join(s.root, filepath.FromSlash(path.Clean(slashed))), nil
}

// List returns every Markdown document under folder, recursively, in lexical order.
// Hidden directories and in-flight temp files are skipped. A missing folder yields no documents.
func (s *Store) List(ctx context.Context, folder string) ([]string, error) {
	dir, err := s.Resolve(folder)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), "**/*.md")
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", shared.ErrFileSystemFailure, folder, err)
	}

	prefix := path.Clean(filepath.ToSlash(folder))
	docs := make([]string, 0, len(matches))
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if hidden(m) {
			continue
		}
		docs = append(docs, path.Join(prefix, m))
	}
	slices.Sort(docs)
	return docs, nil
}

// Read returns the contents of a document.
func (s *Store) Read(ctx context.Context, rel string) (string, error) {
	full, err := s.Resolve(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", shared.ErrNotFound, rel)
	}
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", shared.ErrFileSystemFailure, rel, err)
	}
	return string(data), nil
}

// Write replaces a document's contents atomically, creating it if needed.
func (s *Store) Write(ctx context.Context, rel, content string) error {
	full, err := s.Resolve(rel)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(full, []byte(content), s.perm); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrFileSystemFailure, err)
	}
	return nil
}

// CreateFolder creates folder and any missing parents.
func (s *Store) CreateFolder(ctx context.Context, folder string) error {
	full, err := s.Resolve(folder)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return fmt.Errorf("%w: create folder %s: %v", shared.ErrFileSystemFailure, folder, err)
	}
	return nil
}

// Exists reports whether a document or folder exists at rel.
func (s *Store) Exists(ctx context.Context, rel string) (bool, error) {
	full, err := s.Resolve(rel)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: stat %s: %v", shared.ErrFileSystemFailure, rel, err)
	}
}

func hidden(rel string) bool {
	for seg := range strings.SplitSeq(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over filename.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)

	tmpFile, err := os.CreateTemp(dir, TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}

	return nil
}
