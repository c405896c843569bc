package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicvault/internal/auth"
	"github.com/desertthunder/musicvault/internal/repositories"
	"github.com/desertthunder/musicvault/internal/services"
	"github.com/desertthunder/musicvault/internal/shared"
	"github.com/desertthunder/musicvault/internal/tasks"
	"github.com/desertthunder/musicvault/internal/vault"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Database-backed collaborators are built on first use by [Runner.open] so that
// commands like "setup config" work before a database exists.
type Runner struct {
	config      *shared.Config
	configPath  string
	db          *sql.DB
	ownsDB      bool
	httpClient  *http.Client
	spotifyOpts services.SpotifyOpts
	logger      *log.Logger
	output      io.Writer
	input       io.Reader
	opener      func(string) error

	spotify    *services.SpotifyClient
	tokens     *auth.TokenStore
	session    *auth.Session
	surface    *auth.BrowserSurface
	controller *auth.Controller
	vault      *vault.Store
	runs       *repositories.SyncRunRepository
	engine     *tasks.NoteEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	DB          *sql.DB             // opened from Config.Database when nil
	HTTPClient  *http.Client        // used for API calls and the callback relay
	SpotifyOpts services.SpotifyOpts // endpoint overrides; credentials come from Config
	Logger      *log.Logger
	Output      io.Writer
	Input       io.Reader          // source of pasted redirect URLs during login
	Opener      func(string) error // launches URLs; defaults to [shared.OpenBrowser]
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Opener == nil {
		opts.Opener = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		db:          opts.DB,
		httpClient:  opts.HTTPClient,
		spotifyOpts: opts.SpotifyOpts,
		logger:      opts.Logger,
		output:      opts.Output,
		input:       opts.Input,
		opener:      opts.Opener,
	}
}

// open builds the database, token, vault and engine collaborators once.
func (r *Runner) open() error {
	if r.engine != nil {
		return nil
	}

	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
		r.ownsDB = true
	} else if err := shared.RunMigrations(r.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := vault.NewStore(r.config.Vault.Path)
	if err != nil {
		return err
	}

	spotifyOpts := r.spotifyOpts
	spotifyOpts.ClientID = r.config.Spotify.ClientID
	spotifyOpts.RedirectURI = r.config.Spotify.RedirectURI
	spotifyOpts.Scopes = r.config.Spotify.Scopes
	spotifyOpts.RequestsPerSecond = r.config.Spotify.RequestsPerSecond
	spotifyOpts.HTTPClient = r.httpClient
	spotifyOpts.Logger = shared.WithLogger(r.logger, "component", "spotify")

	r.vault = store
	r.spotify = services.NewSpotifyClient(spotifyOpts)
	r.tokens = auth.NewTokenStore(repositories.NewSettingsRepository(r.db))
	r.session = auth.NewSession(r.tokens, r.spotify, shared.WithLogger(r.logger, "component", "session"))
	r.surface = auth.NewBrowserSurface(r.launch, r.logger)
	r.controller = auth.NewController(auth.ControllerOpts{
		Request: auth.AuthorizationRequest{
			AuthorizeURL: r.spotify.AuthURL(),
			ClientID:     r.config.Spotify.ClientID,
			Scopes:       r.config.Spotify.Scopes,
			RedirectURI:  r.config.Spotify.RedirectURI,
		},
		Surface:   r.surface,
		Exchanger: r.spotify,
		Store:     r.tokens,
		Logger:    shared.WithLogger(r.logger, "component", "auth"),
	})
	r.runs = repositories.NewSyncRunRepository(r.db)
	r.engine = tasks.NewNoteEngine(tasks.EngineOpts{
		Client:      r.spotify,
		Documents:   r.vault,
		Tokens:      r.session,
		Runs:        r.runs,
		MaxFilename: r.config.Vault.MaxFilename,
		Logger:      shared.WithLogger(r.logger, "component", "notes"),
	})
	return nil
}

// launch opens url with the configured opener. A failed launch is not fatal:
// the URL is printed for the user to open by hand.
func (r *Runner) launch(url string) error {
	if err := r.opener(url); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", url)
	}
	return nil
}

// Close releases the database if the runner opened it.
func (r *Runner) Close() error {
	if r.db != nil && r.ownsDB {
		return r.db.Close()
	}
	return nil
}

func (r *Runner) setLogger(l *log.Logger) {
	r.logger = l
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "verbose",
		Usage: "Enable debug logging",
	}
}

func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, notesCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
