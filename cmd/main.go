package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/trendrank/internal/shared"
	"github.com/desertthunder/trendrank/internal/tasks"
	"github.com/urfave/cli/v3"
)

// exitAborted is the status for runs aborted by missing upstream data, so a scheduler can
// tell them apart from crashes.
const exitAborted = 2

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newApp(runner).Run(ctx, os.Args)
	stop()
	runner.Close()

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		logger.Warn("interrupted")
		os.Exit(exitAborted)
	case tasks.IsFatal(err):
		logger.Error("run aborted", "error", err)
		os.Exit(exitAborted)
	default:
		logger.Fatalf("application error: %v", err)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "trendrank",
		Usage:   "Rank trending artists from daily catalog snapshots",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("TRENDRANK_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file loaded before environment overrides",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}
