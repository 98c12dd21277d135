// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func dateFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "date",
		Aliases: []string{"d"},
		Usage:   usage,
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (text, csv, markdown, json)",
			Value:   "text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write to this file instead of stdout",
		},
	}
}

// initCommand creates a config file and the database schema.
func initCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "init",
		Aliases: []string{"setup"},
		Usage:   "Create config.toml from the template and initialize the database",
		Action:  r.Init,
	}
}

// migrateCommand applies or rolls back schema migrations.
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "down",
				Usage: "Roll back the most recent migration instead",
			},
		},
		Action: r.Migrate,
	}
}

// rosterCommand manages the artist identity registry.
func rosterCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "roster",
		Usage: "Manage the tracked artist roster",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Register artists from a roster TOML file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Roster file with [[artists]] entries",
						Required: true,
					},
				},
				Action: r.RosterImport,
			},
			{
				Name:   "list",
				Usage:  "List registered artists",
				Flags:  outputFlags(),
				Action: r.RosterList,
			},
		},
	}
}

// snapshotCommand runs the snapshot collector.
func snapshotCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "snapshot",
		Usage:  "Collect catalog metrics for every roster artist",
		Flags:  []cli.Flag{dateFlag("Snapshot date (YYYY-MM-DD), defaults to today")},
		Action: r.Snapshot,
	}
}

// dailyCommand scores and ranks a snapshot date.
func dailyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "daily",
		Aliases: []string{"rank"},
		Usage:   "Score snapshots and update the daily, cumulative and stats tables",
		Flags:   []cli.Flag{dateFlag("Snapshot date (YYYY-MM-DD), defaults to today")},
		Action:  r.Daily,
	}
}

// weeklyCommand aggregates the seven-day window.
func weeklyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "weekly",
		Usage:  "Aggregate the seven days ending at a date into the weekly ranking",
		Flags:  []cli.Flag{dateFlag("Week end date (YYYY-MM-DD), defaults to today")},
		Action: r.Weekly,
	}
}

// playlistCommand publishes the weekly playlist.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "playlist",
		Usage:  "Publish one track per weekly top artist to the trending playlist",
		Flags:  []cli.Flag{dateFlag("Week end date (YYYY-MM-DD), defaults to the latest stored week")},
		Action: r.Playlist,
	}
}

// showCommand prints stored boards.
func showCommand(r *Runner) *cli.Command {
	boardFlags := func(extra ...cli.Flag) []cli.Flag {
		flags := append([]cli.Flag{dateFlag("Board date (YYYY-MM-DD), defaults to the latest stored")}, outputFlags()...)
		return append(flags, extra...)
	}
	limit := func() cli.Flag {
		return &cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "Maximum number of rows (0 for all)",
		}
	}

	return &cli.Command{
		Name:  "show",
		Usage: "Print stored rankings",
		Commands: []*cli.Command{
			{
				Name:   boardDaily,
				Usage:  "Daily ranking",
				Flags:  boardFlags(limit()),
				Action: r.Show(boardDaily),
			},
			{
				Name:   boardCumulative,
				Usage:  "Cumulative ranking",
				Flags:  boardFlags(limit()),
				Action: r.Show(boardCumulative),
			},
			{
				Name:   boardWeekly,
				Usage:  "Weekly ranking",
				Flags:  boardFlags(limit()),
				Action: r.Show(boardWeekly),
			},
			{
				Name:   boardStats,
				Usage:  "Roster health stats",
				Flags:  boardFlags(),
				Action: r.Show(boardStats),
			},
			{
				Name:   boardHighlights,
				Usage:  "Daily highlights",
				Flags:  boardFlags(),
				Action: r.Show(boardHighlights),
			},
			{
				Name:  "runs",
				Usage: "Recent job runs",
				Flags: append(outputFlags(),
					&cli.StringFlag{Name: "job", Usage: "Only runs of this job"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of runs", Value: 20},
				),
				Action: r.ShowRuns,
			},
		},
	}
}

// viewCommand opens the interactive leaderboard browser.
func viewCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "view",
		Aliases: []string{"tui", "ui"},
		Usage:   "Browse rankings in an interactive terminal UI",
		Flags: []cli.Flag{
			dateFlag("Initial date (YYYY-MM-DD), defaults to the latest stored"),
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log destination while the UI is open",
				Value: "./tmp/trendrank-view.log",
			},
		},
		Action: r.View,
	}
}

// authCommand runs the PKCE authorization helper.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize playlist access and print a refresh token",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser callback",
				Value: 2 * time.Minute,
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
		},
		Action: r.Auth,
	}
}
