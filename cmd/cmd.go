// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

// setupCommand handles configuration and database initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "path",
						Aliases: []string{"p"},
						Usage:   "Where to write the configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles the Spotify sign-in lifecycle.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify using OAuth2 PKCE",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the redirect",
						Value: 5 * time.Minute,
					},
					&cli.BoolFlag{
						Name:  "no-relay",
						Usage: "Do not start the local callback relay; paste the redirect URL instead",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored Spotify tokens",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show whether a token is stored and when it expires",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:  "callback",
				Usage: "Forward an obsidian:// redirect URL to a running login",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Action: r.AuthCallback,
			},
		},
	}
}

func folderFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "folder",
		Aliases: []string{"f"},
		Usage:   "Vault folder holding song notes (defaults to vault.folder)",
	}
}

// notesCommand handles song note operations.
func notesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "notes",
		Aliases: []string{"n"},
		Usage:   "Create and refresh song notes",
		Commands: []*cli.Command{
			{
				Name:  "current",
				Usage: "Create or update the note for the currently playing track",
				Flags: []cli.Flag{
					folderFlag(),
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the note in Obsidian",
					},
				},
				Action: r.NotesCurrent,
			},
			{
				Name:  "add",
				Usage: "Create or update the note for a track id, URI or link",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "track"},
				},
				Flags: []cli.Flag{
					folderFlag(),
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the note in Obsidian",
					},
				},
				Action: r.NotesAdd,
			},
			{
				Name:  "refresh",
				Usage: "Refresh frontmatter of every song note in the folder",
				Flags: []cli.Flag{
					folderFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the result as JSON",
					},
				},
				Action: r.NotesRefresh,
			},
			{
				Name:  "list",
				Usage: "List song notes and their tracks",
				Flags: []cli.Flag{
					folderFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.NotesList,
			},
			{
				Name:  "watch",
				Usage: "Refresh notes as they are created or edited",
				Flags: []cli.Flag{
					folderFlag(),
					&cli.DurationFlag{
						Name:  "debounce",
						Usage: "Quiet period before a changed note is refreshed",
						Value: 250 * time.Millisecond,
					},
				},
				Action: r.NotesWatch,
			},
			{
				Name:    "browse",
				Aliases: []string{"ui"},
				Usage:   "Browse and refresh song notes interactively",
				Flags:   []cli.Flag{folderFlag()},
				Action:  r.NotesBrowse,
			},
		},
	}
}

// historyCommand shows and prunes recorded refresh runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent refresh runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
		Commands: []*cli.Command{
			{
				Name:  "prune",
				Usage: "Delete all but the most recent runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "keep",
						Usage: "Number of runs to keep",
						Value: 50,
					},
				},
				Action: r.HistoryPrune,
			},
		},
	}
}
