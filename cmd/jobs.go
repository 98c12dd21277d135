package main

import (
	"context"
	"strings"

	"github.com/desertthunder/trendrank/internal/services"
	"github.com/desertthunder/trendrank/internal/shared"
	"github.com/desertthunder/trendrank/internal/tasks"
	"github.com/urfave/cli/v3"
)

type jobFunc func(ctx context.Context, p *tasks.Pipeline, progress chan<- tasks.ProgressUpdate) (*tasks.JobResult, error)

// Snapshot collects catalog metrics for the roster.
func (r *Runner) Snapshot(ctx context.Context, cmd *cli.Command) error {
	if err := r.setDate(&r.config.Pipeline.SnapshotDate, cmd.String("date")); err != nil {
		return err
	}
	if _, err := r.Catalog(true); err != nil {
		return err
	}
	return r.runJob(ctx, true, func(ctx context.Context, p *tasks.Pipeline, progress chan<- tasks.ProgressUpdate) (*tasks.JobResult, error) {
		return p.Snapshot(ctx, progress)
	})
}

// Daily scores a snapshot date. Highlights are skipped without catalog credentials.
func (r *Runner) Daily(ctx context.Context, cmd *cli.Command) error {
	if err := r.setDate(&r.config.Pipeline.SnapshotDate, cmd.String("date")); err != nil {
		return err
	}
	return r.runJob(ctx, r.config.Pipeline.HighlightCount > 0, func(ctx context.Context, p *tasks.Pipeline, progress chan<- tasks.ProgressUpdate) (*tasks.JobResult, error) {
		return p.Daily(ctx, progress)
	})
}

// Weekly aggregates the window ending at the week end date.
func (r *Runner) Weekly(ctx context.Context, cmd *cli.Command) error {
	if err := r.setDate(&r.config.Pipeline.WeekEndDate, cmd.String("date")); err != nil {
		return err
	}
	return r.runJob(ctx, false, func(ctx context.Context, p *tasks.Pipeline, progress chan<- tasks.ProgressUpdate) (*tasks.JobResult, error) {
		return p.Weekly(ctx, progress)
	})
}

// Playlist publishes the weekly playlist with the user's refresh token.
func (r *Runner) Playlist(ctx context.Context, cmd *cli.Command) error {
	if err := r.setDate(&r.config.Pipeline.WeekEndDate, cmd.String("date")); err != nil {
		return err
	}
	editor, err := r.Editor()
	if err != nil {
		return err
	}
	return r.runJob(ctx, false, func(ctx context.Context, p *tasks.Pipeline, progress chan<- tasks.ProgressUpdate) (*tasks.JobResult, error) {
		return p.Playlist(ctx, editor, progress)
	})
}

// setDate overrides a configured date with a flag value after validating it.
func (r *Runner) setDate(dst *string, flag string) error {
	if flag == "" {
		return nil
	}
	if _, err := shared.ParseDate(flag); err != nil {
		return err
	}
	*dst = flag
	return nil
}

// runJob builds a pipeline, runs fn with progress logged at debug level, pushes metrics and
// prints a summary line.
func (r *Runner) runJob(ctx context.Context, wantCatalog bool, fn jobFunc) error {
	store, err := r.Store()
	if err != nil {
		return err
	}

	var catalog services.Catalog
	if wantCatalog {
		if catalog, err = r.Catalog(false); err != nil {
			return err
		}
	}
	p := tasks.NewPipeline(store, catalog, r.config, r.logger, r.recorder)

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			r.logger.Debug(u.Message, "phase", u.Phase, "step", u.Step, "total", u.Total)
		}
	}()

	result, runErr := fn(ctx, p, progress)
	close(progress)
	<-done

	m := r.config.Metrics
	if err := r.recorder.Push(context.WithoutCancel(ctx), m.PushgatewayURL, m.JobName); err != nil {
		r.logger.Warn("Failed to push metrics", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	return r.writeSummary(result)
}

func (r *Runner) writeSummary(result *tasks.JobResult) error {
	if err := r.writePlain("✓ %s %s: %d rows written (run %s)\n", result.Job, result.Date, result.RowsWritten, result.RunID); err != nil {
		return err
	}
	if result.Dropped > 0 {
		r.writePlain("⚠ %d artists dropped without catalog data\n", result.Dropped)
	}
	if pl := result.Playlist; pl != nil {
		r.writePlain("  %s\n  %s\n", pl.Name, pl.URL())
		if len(pl.Unresolved) > 0 {
			r.writePlain("⚠ no track for: %s\n", strings.Join(pl.Unresolved, ", "))
		}
	}
	return nil
}
