package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicvault/internal/models"
	"github.com/desertthunder/musicvault/internal/services"
	"github.com/desertthunder/musicvault/internal/shared"
)

// DefaultMaxFilename caps generated note names, in characters, before ".md".
const DefaultMaxFilename = 100

// MetadataClient fetches track metadata with a bearer token.
type MetadataClient interface {
	FetchCurrentlyPlaying(ctx context.Context, accessToken string) (*models.Song, error)
	FetchByID(ctx context.Context, accessToken, trackID string) (*models.Song, error)
	FetchGenres(ctx context.Context, accessToken string, artistIDs []string) models.GenreIndex
}

// DocumentStore is the vault file-system collaborator. Paths are vault-relative
// and slash-separated; List returns Markdown documents in lexical order.
type DocumentStore interface {
	List(ctx context.Context, folder string) ([]string, error)
	Read(ctx context.Context, path string) (string, error)
	Write(ctx context.Context, path, content string) error
	CreateFolder(ctx context.Context, folder string) error
	Exists(ctx context.Context, path string) (bool, error)
}

// TokenProvider hands out bearer tokens. Refresh is called once after a 401.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// RunRecorder persists the outcome of a RefreshAll pass.
type RunRecorder interface {
	Record(ctx context.Context, run *models.SyncRun) error
}

// DocumentHandle identifies the note LocateOrCreate settled on.
type DocumentHandle struct {
	Path    string // vault-relative path
	Created bool   // a new note was written
	Updated bool   // an existing note's frontmatter changed
}

// RefreshResult counts the outcome of RefreshAll.
//
// Updated counts notes processed successfully (whether or not their bytes
// changed), Written the subset that actually changed, Failed the notes whose
// fetch or write failed, and Skipped the notes with no readable track_id.
type RefreshResult struct {
	Updated int
	Written int
	Failed  int
	Skipped int
	Errors  map[string]error
	RunID   string
}

// EngineOpts configures a [NoteEngine].
type EngineOpts struct {
	Client      MetadataClient
	Documents   DocumentStore
	Tokens      TokenProvider
	Runs        RunRecorder // optional
	MaxFilename int
	Logger      *log.Logger
}

// NoteEngine implements note synchronization between Spotify and a vault.
type NoteEngine struct {
	client      MetadataClient
	docs        DocumentStore
	tokens      TokenProvider
	runs        RunRecorder
	maxFilename int
	logger      *log.Logger
	now         func() time.Time
}

// NewNoteEngine creates a new NoteEngine with the provided collaborators.
func NewNoteEngine(opts EngineOpts) *NoteEngine {
	if opts.MaxFilename <= 0 {
		opts.MaxFilename = DefaultMaxFilename
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	return &NoteEngine{
		client:      opts.Client,
		docs:        opts.Documents,
		tokens:      opts.Tokens,
		runs:        opts.Runs,
		maxFilename: opts.MaxFilename,
		logger:      opts.Logger,
		now:         time.Now,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *NoteEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// withToken runs fn with a bearer token, refreshing and retrying once on 401.
func (e *NoteEngine) withToken(ctx context.Context, fn func(token string) error) error {
	token, err := e.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	err = fn(token)
	if !services.IsUnauthorized(err) {
		return err
	}

	e.logger.Debug("access token rejected, refreshing")
	token, err = e.tokens.Refresh(ctx)
	if err != nil {
		return err
	}
	return fn(token)
}

// fetchGenres looks up genres for every artist of songs with a valid token.
func (e *NoteEngine) fetchGenres(ctx context.Context, songs ...*models.Song) models.GenreIndex {
	var ids []string
	for _, s := range songs {
		if s != nil {
			ids = append(ids, s.ArtistIDs()...)
		}
	}
	if len(ids) == 0 {
		return models.GenreIndex{}
	}

	token, err := e.tokens.AccessToken(ctx)
	if err != nil {
		e.logger.Warn("skipping genre lookup", "error", err)
		return models.GenreIndex{}
	}
	return e.client.FetchGenres(ctx, token, ids)
}
