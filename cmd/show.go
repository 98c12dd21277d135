package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/trendrank/internal/formatter"
	"github.com/desertthunder/trendrank/internal/repositories"
	"github.com/desertthunder/trendrank/internal/shared"
	"github.com/urfave/cli/v3"
)

// Board names accepted by show.
const (
	boardDaily      = "daily"
	boardCumulative = "cumulative"
	boardWeekly     = "weekly"
	boardStats      = "stats"
	boardHighlights = "highlights"
)

// boardSource reads one kind of stored board.
type boardSource struct {
	label  string
	latest func(ctx context.Context) (string, error)
	build  func(ctx context.Context, date string, limit int) (formatter.Board, error)
}

func boardSources(store *repositories.Store) map[string]boardSource {
	return map[string]boardSource{
		boardDaily: {
			label:  "daily rankings",
			latest: store.Daily.LatestDate,
			build: func(ctx context.Context, date string, limit int) (formatter.Board, error) {
				entries, err := store.Daily.ListByDate(ctx, date)
				if err != nil {
					return formatter.Board{}, err
				}
				return formatter.Daily(date, truncate(entries, limit)), nil
			},
		},
		boardCumulative: {
			label:  "cumulative rankings",
			latest: store.Cumulative.LatestDate,
			build: func(ctx context.Context, date string, limit int) (formatter.Board, error) {
				entries, err := store.Cumulative.ListByDate(ctx, date)
				if err != nil {
					return formatter.Board{}, err
				}
				return formatter.Cumulative(date, truncate(entries, limit)), nil
			},
		},
		boardWeekly: {
			label:  "weekly rankings",
			latest: store.Weekly.LatestWeekEnd,
			build: func(ctx context.Context, date string, limit int) (formatter.Board, error) {
				entries, err := store.Weekly.ListByWeekEnd(ctx, date, limit)
				if err != nil {
					return formatter.Board{}, err
				}
				return formatter.Weekly(date, entries), nil
			},
		},
		boardStats: {
			label:  "daily stats",
			latest: store.Daily.LatestDate,
			build: func(ctx context.Context, date string, _ int) (formatter.Board, error) {
				entry, err := store.Stats.Get(ctx, date)
				if err != nil {
					return formatter.Board{}, err
				}
				return formatter.Stats(entry), nil
			},
		},
		boardHighlights: {
			label:  "highlights",
			latest: store.Daily.LatestDate,
			build: func(ctx context.Context, date string, _ int) (formatter.Board, error) {
				highlights, err := store.Highlights.ListByDate(ctx, date)
				if err != nil {
					return formatter.Board{}, err
				}
				return formatter.Highlights(date, highlights), nil
			},
		},
	}
}

func truncate[T any](rows []T, limit int) []T {
	if limit > 0 && limit < len(rows) {
		return rows[:limit]
	}
	return rows
}

// resolveBoardDate validates an explicit date or falls back to the latest stored one.
func resolveBoardDate(ctx context.Context, src boardSource, explicit string) (string, error) {
	if explicit != "" {
		if _, err := shared.ParseDate(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	latest, err := src.latest(ctx)
	if err != nil {
		return "", err
	}
	if latest == "" {
		return "", fmt.Errorf("%w: no %s stored", shared.ErrNotFound, src.label)
	}
	return latest, nil
}

// Show returns the action printing board name.
func (r *Runner) Show(name string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		store, err := r.Store()
		if err != nil {
			return err
		}

		src := boardSources(store)[name]
		date, err := resolveBoardDate(ctx, src, cmd.String("date"))
		if err != nil {
			return err
		}

		board, err := src.build(ctx, date, cmd.Int("limit"))
		if err != nil {
			return err
		}
		return r.render(cmd, board)
	}
}

// ShowRuns prints the job-run ledger.
func (r *Runner) ShowRuns(ctx context.Context, cmd *cli.Command) error {
	store, err := r.Store()
	if err != nil {
		return err
	}

	runs, err := store.Runs.List(ctx, cmd.String("job"), cmd.Int("limit"))
	if err != nil {
		return err
	}
	return r.render(cmd, formatter.Runs(runs))
}

// render writes b in the --format encoding to --output or the runner's output.
func (r *Runner) render(cmd *cli.Command, b formatter.Board) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(b, format, path); err != nil {
			return err
		}
		r.logger.Info("Board exported", "title", b.Title, "format", format, "path", path)
		return r.writePlain("✓ Wrote %s to %s\n", b.Title, path)
	}
	return formatter.Render(r.output, b, format)
}

// latestDates picks the initial date of each browsable board, falling back to today.
func (r *Runner) latestDates(ctx context.Context, store *repositories.Store, explicit string) (map[string]string, error) {
	today, err := shared.Today(time.Now(), r.config.Pipeline.Timezone)
	if err != nil {
		return nil, err
	}

	dates := map[string]string{}
	for _, name := range []string{boardDaily, boardCumulative, boardWeekly} {
		date, err := resolveBoardDate(ctx, boardSources(store)[name], explicit)
		switch {
		case err == nil:
			dates[name] = date
		case explicit == "":
			dates[name] = today
		default:
			return nil, err
		}
	}
	return dates, nil
}
