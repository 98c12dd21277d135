package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trendrank/internal/metrics"
	"github.com/desertthunder/trendrank/internal/models"
	"github.com/desertthunder/trendrank/internal/repositories"
	"github.com/desertthunder/trendrank/internal/services"
	"github.com/desertthunder/trendrank/internal/shared"
)

// Job names recorded in job_runs and metrics.
const (
	JobSnapshot = "snapshot"
	JobDaily    = "daily"
	JobWeekly   = "weekly"
	JobPlaylist = "playlist"
)

// highlightPause spaces out catalog calls while enriching the daily top entries.
const highlightPause = 500 * time.Millisecond

// JobResult summarizes one finished job.
type JobResult struct {
	RunID       string
	Job         string
	Date        string
	RowsWritten int
	Dropped     int
	Playlist    *PlaylistResult
}

// Pipeline runs the ranking jobs against a store.
//
// Each job is sequential. Jobs read their target date from the pipeline config, defaulting
// to today in the configured timezone, and record a job_runs row whatever the outcome.
type Pipeline struct {
	store    *repositories.Store
	catalog  services.Catalog
	config   *shared.Config
	logger   *log.Logger
	recorder *metrics.Recorder
	now      func() time.Time
	sleep    services.SleepFunc
}

// NewPipeline creates a Pipeline. catalog may be nil for jobs that never call it; the daily
// job then skips highlights.
func NewPipeline(store *repositories.Store, catalog services.Catalog, config *shared.Config, logger *log.Logger, recorder *metrics.Recorder) *Pipeline {
	return &Pipeline{
		store:    store,
		catalog:  catalog,
		config:   config,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// run records the job in job_runs around fn and reports its duration.
func (p *Pipeline) run(ctx context.Context, job, date string, fn func(ctx context.Context, logger *log.Logger, result *JobResult) error) (*JobResult, error) {
	started := p.now()
	run, err := p.store.Runs.Start(ctx, job, date, started)
	if err != nil {
		return nil, err
	}

	logger := shared.WithLogger(p.logger, "job", job, "run_id", run.ID, "date", date)
	logger.Info("Job started")

	result := &JobResult{RunID: run.ID, Job: job, Date: date}
	runErr := fn(ctx, logger, result)

	finished := p.now()
	if err := p.store.Runs.Finish(context.WithoutCancel(ctx), run, finished, result.RowsWritten, runErr); err != nil {
		logger.Error("Failed to record job finish", "error", err)
	}
	p.recorder.JobFinished(job, started, finished, runErr == nil)

	if runErr != nil {
		logger.Error("Job failed", "error", runErr, "elapsed", finished.Sub(started))
		return result, runErr
	}

	logger.Info("Job finished", "rows", result.RowsWritten, "elapsed", finished.Sub(started))
	return result, nil
}

func (p *Pipeline) resolveDate(explicit string) (string, error) {
	return shared.ResolveDate(explicit, p.now(), p.config.Pipeline.Timezone)
}

func (p *Pipeline) requireCatalog() error {
	if p.catalog == nil {
		return fmt.Errorf("%w: catalog client not configured", shared.ErrServiceUnavailable)
	}
	return nil
}

// Snapshot collects catalog metrics for every roster artist and upserts them for the target date.
func (p *Pipeline) Snapshot(ctx context.Context, progress chan<- ProgressUpdate) (*JobResult, error) {
	if err := p.requireCatalog(); err != nil {
		return nil, err
	}
	date, err := p.resolveDate(p.config.Pipeline.SnapshotDate)
	if err != nil {
		return nil, err
	}

	return p.run(ctx, JobSnapshot, date, func(ctx context.Context, logger *log.Logger, result *JobResult) error {
		identities, err := p.store.Identities.List(ctx)
		if err != nil {
			return err
		}
		if len(identities) == 0 {
			return fmt.Errorf("%w: roster is empty", shared.ErrNoIdentityMapping)
		}

		loc, err := shared.LoadLocation(p.config.Pipeline.Timezone)
		if err != nil {
			return err
		}

		cfg := p.config.Pipeline
		collector := NewCollector(p.catalog, CollectorOptions{
			Market:            cfg.Market,
			TopTracks:         cfg.TopTracks,
			ReleaseWindowDays: cfg.ReleaseWindowDays,
			RetryRounds:       cfg.RetryRounds,
			RetryDelay:        cfg.RetryDelay(),
		}, logger)
		collector.sleep = p.sleep
		collector.now = func() time.Time { return p.now().In(loc) }

		ids := UniqueCatalogIDs(identities, logger)
		logger.Info("Collecting snapshots", "artists", len(ids))
		collected := collector.Collect(ctx, ids, progress)
		if err := ctx.Err(); err != nil {
			return err
		}

		snapshots, dropped, err := BuildSnapshots(date, collected, identities, logger)
		result.Dropped = dropped
		p.recorder.ArtistsDropped(dropped)
		if err != nil {
			return err
		}

		n, err := p.store.Snapshots.Upsert(ctx, snapshots, cfg.BatchSize)
		result.RowsWritten += n
		p.recorder.RowsUpserted("artist_snapshots", n)
		sendProgress(progress, persistUpdate(PersistSnapshots, "artist_snapshots", n, len(snapshots)))
		if err != nil {
			return err
		}

		updatedAt := p.now().In(loc).Format(time.RFC3339)
		images := 0
		for _, s := range snapshots {
			if s.ImageURL == nil {
				continue
			}
			if err := p.store.Identities.UpdateImage(ctx, s.GroupID, *s.ImageURL, models.ServiceSpotify, updatedAt); err != nil {
				return err
			}
			images++
		}
		sendProgress(progress, stepUpdate(UpdateImages, fmt.Sprintf("Updated %d group images", images)))
		logger.Info("Updated group images", "count", images)

		return nil
	})
}

// Daily scores the target date's snapshots against the previous day, then persists the daily
// leaderboard, roster stats, cumulative leaderboard and top-N highlights.
func (p *Pipeline) Daily(ctx context.Context, progress chan<- ProgressUpdate) (*JobResult, error) {
	date, err := p.resolveDate(p.config.Pipeline.SnapshotDate)
	if err != nil {
		return nil, err
	}
	prevDate, err := shared.AddDays(date, -1)
	if err != nil {
		return nil, err
	}

	return p.run(ctx, JobDaily, date, func(ctx context.Context, logger *log.Logger, result *JobResult) error {
		cfg := p.config.Pipeline

		today, err := p.store.Snapshots.ListByDate(ctx, date)
		if err != nil {
			return err
		}
		if len(today) == 0 {
			return fmt.Errorf("%w for %s", shared.ErrNoSnapshotData, date)
		}

		prev, err := p.store.Snapshots.ListByDate(ctx, prevDate)
		if err != nil {
			return err
		}
		logger.Info("Loaded snapshots", "today", len(today), "prev", len(prev), "prev_date", prevDate)

		groupIDs := make([]string, len(today))
		for i, s := range today {
			groupIDs[i] = s.GroupID
		}
		names, err := p.store.Identities.NamesByGroupIDs(ctx, groupIDs)
		if err != nil {
			return err
		}

		sendProgress(progress, stepUpdate(ScoreArtists, "Scoring artists..."))
		scored := ScoreSnapshots(today, prev)
		for i := range scored {
			if name, ok := names[scored[i].GroupID]; ok {
				scored[i].ArtistName = name
			}
		}

		prevRanking, err := p.store.Daily.ListByDate(ctx, prevDate)
		if err != nil {
			return err
		}
		ranked := RankDaily(scored, prevRanking, cfg.RisingThreshold)

		n, err := p.store.Daily.Upsert(ctx, ranked, cfg.BatchSize)
		result.RowsWritten += n
		p.recorder.RowsUpserted("daily_rankings", n)
		sendProgress(progress, persistUpdate(PersistRankings, "daily_rankings", n, len(ranked)))
		if err != nil {
			return err
		}

		sendProgress(progress, stepUpdate(ComputeStats, "Computing roster stats..."))
		stats := ComputeDailyStats(date, ranked, prevRanking)
		if err := p.store.Stats.Upsert(ctx, stats); err != nil {
			return err
		}
		result.RowsWritten++
		p.recorder.RowsUpserted("daily_stats", 1)

		prevCumulative, err := p.store.Cumulative.ListByDate(ctx, prevDate)
		if err != nil {
			return err
		}
		cumulative := Accumulate(date, ranked, prevCumulative)
		n, err = p.store.Cumulative.Upsert(ctx, cumulative, cfg.BatchSize)
		result.RowsWritten += n
		p.recorder.RowsUpserted("cumulative_rankings", n)
		sendProgress(progress, persistUpdate(AccumulateScores, "cumulative_rankings", n, len(cumulative)))
		if err != nil {
			return err
		}

		if p.catalog == nil || cfg.HighlightCount <= 0 {
			logger.Debug("Skipping highlights")
			return nil
		}

		highlighter := NewHighlighter(p.catalog, cfg.Market, highlightPause, logger)
		highlighter.sleep = p.sleep
		highlights := highlighter.Build(ctx, ranked, cfg.HighlightCount, progress)
		n, err = p.store.Highlights.Upsert(ctx, highlights, cfg.BatchSize)
		result.RowsWritten += n
		p.recorder.RowsUpserted("daily_highlights", n)
		return err
	})
}

// Weekly sums the seven days of daily points ending at the target week end and ranks them.
func (p *Pipeline) Weekly(ctx context.Context, progress chan<- ProgressUpdate) (*JobResult, error) {
	weekEnd, err := p.resolveDate(p.config.Pipeline.WeekEndDate)
	if err != nil {
		return nil, err
	}
	start, err := shared.AddDays(weekEnd, -6)
	if err != nil {
		return nil, err
	}
	prevWeekEnd, err := shared.AddDays(weekEnd, -7)
	if err != nil {
		return nil, err
	}

	return p.run(ctx, JobWeekly, weekEnd, func(ctx context.Context, logger *log.Logger, result *JobResult) error {
		window, err := p.store.Daily.ListWindow(ctx, start, weekEnd)
		if err != nil {
			return err
		}
		if len(window) == 0 {
			return fmt.Errorf("%w for %s..%s", shared.ErrNoWeeklyData, start, weekEnd)
		}
		logger.Info("Loaded daily rows", "start", start, "end", weekEnd, "rows", len(window))

		if debugID := p.config.Pipeline.DebugGroupID; debugID != "" {
			var sum float64
			for _, e := range window {
				if e.GroupID == debugID {
					logger.Debug("Debug group row", "group_id", debugID, "snapshot_date", e.SnapshotDate, "score_points", e.ScorePoints)
					sum += e.ScorePoints
				}
			}
			logger.Debug("Debug group sum", "group_id", debugID, "total", sum)
		}

		prevWeek, err := p.store.Weekly.ListByWeekEnd(ctx, prevWeekEnd, 0)
		if err != nil {
			return err
		}

		seen := make(map[string]bool)
		var groupIDs []string
		for _, e := range window {
			if !seen[e.GroupID] {
				seen[e.GroupID] = true
				groupIDs = append(groupIDs, e.GroupID)
			}
		}
		names, err := p.store.Identities.NamesByGroupIDs(ctx, groupIDs)
		if err != nil {
			return err
		}

		sendProgress(progress, stepUpdate(AggregateWeekly, "Aggregating week..."))
		entries := AggregateWeek(weekEnd, window, prevWeek, names)

		n, err := p.store.Weekly.Upsert(ctx, entries, p.config.Pipeline.BatchSize)
		result.RowsWritten += n
		p.recorder.RowsUpserted("weekly_rankings", n)
		sendProgress(progress, persistUpdate(AggregateWeekly, "weekly_rankings", n, len(entries)))
		return err
	})
}

// Playlist publishes one track per artist of a weekly leaderboard through editor.
//
// The week end defaults to the latest stored week.
func (p *Pipeline) Playlist(ctx context.Context, editor services.PlaylistEditor, progress chan<- ProgressUpdate) (*JobResult, error) {
	weekEnd := p.config.Pipeline.WeekEndDate
	if weekEnd == "" {
		latest, err := p.store.Weekly.LatestWeekEnd(ctx)
		if err != nil {
			return nil, err
		}
		if latest == "" {
			return nil, fmt.Errorf("%w: no weekly rankings stored", shared.ErrNoWeeklyData)
		}
		weekEnd = latest
	} else if _, err := shared.ParseDate(weekEnd); err != nil {
		return nil, err
	}

	return p.run(ctx, JobPlaylist, weekEnd, func(ctx context.Context, logger *log.Logger, result *JobResult) error {
		cfg := p.config.Playlist

		top, err := p.store.Weekly.ListByWeekEnd(ctx, weekEnd, cfg.Size)
		if err != nil {
			return err
		}
		if len(top) == 0 {
			return fmt.Errorf("%w for %s", shared.ErrNoWeeklyData, weekEnd)
		}

		groupIDs := make([]string, len(top))
		for i, e := range top {
			groupIDs[i] = e.GroupID
		}
		catalogIDs, err := p.store.Identities.CatalogIDsByGroupIDs(ctx, groupIDs)
		if err != nil {
			return err
		}

		artistIDs := make([]string, 0, len(groupIDs))
		for _, g := range groupIDs {
			id, ok := catalogIDs[g]
			if !ok {
				logger.Warn("No catalog id for ranked group", "group_id", g)
				continue
			}
			artistIDs = append(artistIDs, id)
		}
		if len(artistIDs) == 0 {
			return fmt.Errorf("%w: weekly top %d for %s", shared.ErrNoIdentityMapping, len(top), weekEnd)
		}

		builder := NewPlaylistBuilder(editor, PlaylistOptions{
			UserID:      p.config.Credentials.Spotify.UserID,
			Market:      p.config.Pipeline.Market,
			BaseName:    cfg.BaseName,
			Description: cfg.Description,
		}, logger)

		published, err := builder.Publish(ctx, weekEnd, artistIDs, progress)
		if err != nil {
			return err
		}
		result.Playlist = published
		result.RowsWritten = len(published.TrackURIs)
		logger.Info("Playlist updated", "url", published.URL(), "tracks", len(published.TrackURIs))
		return nil
	})
}

// IsFatal reports whether err is a missing-data condition that aborts a run.
func IsFatal(err error) bool {
	return errors.Is(err, shared.ErrNoSnapshotData) ||
		errors.Is(err, shared.ErrNoWeeklyData) ||
		errors.Is(err, shared.ErrNoIdentityMapping) ||
		errors.Is(err, shared.ErrNoTracks)
}
