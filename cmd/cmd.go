// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func memberFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "member",
		Aliases: []string{"m"},
		Usage:   "Member name the song is submitted as",
		Sources: cli.EnvVars("GSOTW_MEMBER"),
	}
}

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (text, markdown, csv, json)",
			Value:   "text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path, - for stdout",
		},
	}
}

// serveCommand runs the web app.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web app, JSON API and queue websocket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address; defaults to server.host:server.port from the config",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the app in the default browser",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for the database and config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
			{
				Name:   "config",
				Usage:  "Write config.toml from the bundled example",
				Action: r.SetupConfig,
			},
		},
	}
}

// unlockCommand stores the access flag after checking the group code.
func unlockCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "unlock",
		Usage: "Enter the group access code",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "code",
				Usage: "Access code; prompted for when omitted",
			},
		},
		Action: r.Unlock,
	}
}

// searchCommand searches the catalog.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search Spotify for a track",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "track"},
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "artist",
				Aliases: []string{"a"},
				Usage:   "Artist name",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results; defaults to catalog.search_limit",
			},
		}, formatFlags()...),
		Action: r.Search,
	}
}

// submitCommand adds the member's pick for this week.
func submitCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "submit",
		Usage: "Add a song to this week's draw",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "track"},
		},
		Flags: []cli.Flag{
			memberFlag(),
			&cli.StringFlag{
				Name:    "artist",
				Aliases: []string{"a"},
				Usage:   "Artist name",
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "Spotify track ID; skips the search",
			},
			&cli.IntFlag{
				Name:  "pick",
				Usage: "Which search result to submit, starting at 1",
				Value: 1,
			},
		},
		Action: r.Submit,
	}
}

// queueCommand reads and edits this week's queue.
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "queue",
		Aliases: []string{"next"},
		Usage:   "This week's submissions",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List submissions, newest first",
				Flags:  formatFlags(),
				Action: r.QueueList,
			},
			{
				Name:  "remove",
				Usage: "Remove your own submission",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{memberFlag()},
				Action: r.QueueRemove,
			},
		},
	}
}

// archiveCommand reads and appends to the archive.
func archiveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "archive",
		Aliases: []string{"arkiv"},
		Usage:   "Past weekly picks",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List archive entries with their week numbers",
				Flags:  formatFlags(),
				Action: r.ArchiveList,
			},
			{
				Name:  "record",
				Usage: "Record a settled pick",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "from-submission",
						Usage: "Copy a queued submission by ID",
					},
					&cli.StringFlag{Name: "track", Usage: "Track title"},
					&cli.StringFlag{Name: "artist", Usage: "Artist name"},
					memberFlag(),
					&cli.StringFlag{Name: "url", Usage: "Spotify URL"},
					&cli.StringFlag{Name: "image", Usage: "Cover image URL"},
					&cli.StringFlag{
						Name:  "date",
						Usage: "Date of the draw (YYYY-MM-DD); defaults to today",
					},
				},
				Action: r.ArchiveRecord,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive TUI",
		Flags: []cli.Flag{
			memberFlag(),
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where logs go while the TUI is running",
				Value: "./tmp/gsotw-tui.log",
			},
		},
		Action: r.TUI,
	}
}
