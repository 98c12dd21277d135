package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running job.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Job phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Job phase enumeration
type Phase int

const (
	CollectArtists Phase = iota
	RetryArtists
	PersistSnapshots
	UpdateImages
	ScoreArtists
	PersistRankings
	ComputeStats
	AccumulateScores
	FetchHighlights
	AggregateWeekly
	ResolveTracks
	PublishPlaylist
)

func (p Phase) String() string {
	switch p {
	case CollectArtists:
		return "collect_artists"
	case RetryArtists:
		return "retry_artists"
	case PersistSnapshots:
		return "persist_snapshots"
	case UpdateImages:
		return "update_images"
	case ScoreArtists:
		return "score_artists"
	case PersistRankings:
		return "persist_rankings"
	case ComputeStats:
		return "compute_stats"
	case AccumulateScores:
		return "accumulate_scores"
	case FetchHighlights:
		return "fetch_highlights"
	case AggregateWeekly:
		return "aggregate_week"
	case ResolveTracks:
		return "resolve_tracks"
	case PublishPlaylist:
		return "publish_playlist"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func collectArtistUpdate(step, total int, artistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CollectArtists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s...", step, total, artistID),
	}
}

func retryRoundUpdate(round, rounds, pending int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RetryArtists,
		Step:    round,
		Total:   rounds,
		Message: fmt.Sprintf("Retry round %d: %d incomplete artists", round, pending),
		Data:    pending,
	}
}

func persistUpdate(phase Phase, table string, written, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    written,
		Total:   total,
		Message: fmt.Sprintf("Upserted %d / %d rows into %s", written, total, table),
	}
}

func stepUpdate(phase Phase, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    1,
		Total:   1,
		Message: message,
	}
}

func highlightUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchHighlights,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Enriching %s...", step, total, name),
	}
}

func resolveTrackUpdate(step, total int, artistID string, found bool) ProgressUpdate {
	mark := "✓"
	if !found {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s", step, total, mark, artistID),
	}
}
