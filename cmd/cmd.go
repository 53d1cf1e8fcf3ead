// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles configuration and database setup
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and prepare the database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml from the bundled template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.RollbackDatabase,
			},
		},
	}
}

// authCommand handles Google sign-in
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in to YouTube with Google OAuth2",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize read-only access to your YouTube account",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the consent URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the stored credential",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored credential",
				Action: r.AuthLogout,
			},
		},
	}
}

// playlistsCommand handles listing, reviewing and exporting playlists
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "List and export your categorized playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List playlists with their categories",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of playlists to fetch (default from config)",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Only show playlists in this category",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, csv or markdown",
						Value:   "text",
					},
				},
				Action: r.PlaylistsList,
			},
			{
				Name:  "videos",
				Usage: "List the videos of a playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of videos to fetch (default from config)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text or csv",
						Value:   "text",
					},
				},
				Action: r.PlaylistVideos,
			},
			{
				Name:  "summary",
				Usage: "Count playlists and videos per category",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of playlists to fetch (default from config)",
					},
				},
				Action: r.PlaylistsSummary,
			},
			{
				Name:  "review",
				Usage: "Show automatic categories that deserve a second look",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of playlists to fetch (default from config)",
					},
				},
				Action: r.PlaylistsReview,
			},
			{
				Name:  "export",
				Usage: "Export every playlist and its videos, grouped by category",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: json, csv, markdown or txt",
						Value: "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: ytcat_export_{timestamp})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent workers (1-10)",
						Value: 4,
					},
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of playlists to fetch (default from config)",
					},
					&cli.IntFlag{
						Name:  "max-videos",
						Usage: "Maximum number of videos per playlist (default from config)",
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download playlist thumbnails (markdown only)",
					},
				},
				Action: r.PlaylistsExport,
			},
		},
	}
}

// categoryCommand handles manual category overrides
func categoryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "category",
		Aliases: []string{"cat"},
		Usage:   "Inspect categories and override them per playlist",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the categories and their keywords",
				Action: r.CategoryList,
			},
			{
				Name:   "overrides",
				Usage:  "List your manual categories",
				Action: r.CategoryOverrides,
			},
			{
				Name:  "set",
				Usage: "Set a playlist's category manually",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Category name; prompts when omitted in a terminal",
					},
				},
				Action: r.CategorySet,
			},
			{
				Name:  "clear",
				Usage: "Remove a playlist's manual category",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
				},
				Action: r.CategoryClear,
			},
		},
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default from config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default from config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand launches the terminal UI
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse and categorize playlists in an interactive terminal UI",
		Action: r.TUI,
	}
}
