// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func storyIDArg() []cli.Argument {
	return []cli.Argument{
		&cli.StringArg{
			Name: "id",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config file or initialize the session database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the default config file",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand manages the persisted session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in, sign up or sign out",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and remember the session",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Account username",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Account password",
						Sources:  cli.EnvVars("SNOOZE_PASSWORD"),
						Required: true,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "signup",
				Usage: "Create an account and sign in",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Account username",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Account password",
						Sources:  cli.EnvVars("SNOOZE_PASSWORD"),
						Required: true,
					},
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Display name",
						Required: true,
					},
				},
				Action: r.AuthSignup,
			},
			{
				Name:   "logout",
				Usage:  "Forget the remembered session",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show who is signed in",
				Flags:  append([]cli.Flag{configFlag()}, outputFlags()...),
				Action: r.AuthStatus,
			},
		},
	}
}

func storiesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "stories",
		Aliases: []string{"s"},
		Usage:   "Browse, submit and export stories",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the story feed",
				Flags: append([]cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of stories to show (0 shows all)",
					},
				}, outputFlags()...),
				Action: r.StoriesList,
			},
			{
				Name:  "submit",
				Usage: "Submit a story",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Story title",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "url",
						Usage:    "Absolute http(s) URL",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "author",
						Aliases:  []string{"a"},
						Usage:    "Story author",
						Required: true,
					},
				},
				Action: r.StoriesSubmit,
			},
			{
				Name:  "export",
				Usage: "Export the feed or your favorites",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown or text",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default writes to stdout)",
					},
					&cli.BoolFlag{
						Name:  "favorites",
						Usage: "Export favorites instead of the feed",
					},
				},
				Action: r.StoriesExport,
			},
		},
	}
}

func favoritesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "favorites",
		Aliases: []string{"fav"},
		Usage:   "Manage favorite stories",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List favorite stories",
				Flags:  append([]cli.Flag{configFlag()}, outputFlags()...),
				Action: r.FavoritesList,
			},
			{
				Name:      "add",
				Usage:     "Mark a story as a favorite",
				Flags:     []cli.Flag{configFlag()},
				Arguments: storyIDArg(),
				Action:    r.FavoritesAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a story from favorites",
				Flags:     []cli.Flag{configFlag()},
				Arguments: storyIDArg(),
				Action:    r.FavoritesRemove,
			},
			{
				Name:      "toggle",
				Usage:     "Flip the favorite state of a story",
				Flags:     []cli.Flag{configFlag()},
				Arguments: storyIDArg(),
				Action:    r.FavoritesToggle,
			},
		},
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a local in-memory story service",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to server.host:server.port)",
			},
		},
		Action: r.Serve,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive story browser",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI owns the terminal",
				Value: "./tmp/snooze-tui.log",
			},
		},
		Action: r.TUI,
	}
}
