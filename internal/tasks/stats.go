package tasks

import (
	"fmt"

	"github.com/desertthunder/trendrank/internal/models"
)

// Change labels used when a percent change cannot be computed.
const (
	LabelZeroChange = "0.00%"
	LabelPrevZero   = "N/A (prev 0)"
	LabelNoPrev     = "N/A (no prev)"
	LabelNoToday    = "N/A (no today)"
	LabelNone       = "N/A"
)

// ChangeStat returns today - prev and a percent-change label. A nil side means no rows.
//
// When only today is present the diff is today; when only prev is present it is -prev.
func ChangeStat[T int | float64](today, prev *T) (*T, string) {
	switch {
	case today != nil && prev != nil:
		diff := *today - *prev
		switch {
		case *prev != 0:
			return &diff, fmt.Sprintf("%.2f%%", float64(diff)/float64(*prev)*100)
		case *today == 0:
			return &diff, LabelZeroChange
		default:
			return &diff, LabelPrevZero
		}
	case today != nil:
		diff := *today
		return &diff, LabelNoPrev
	case prev != nil:
		diff := -*prev
		return &diff, LabelNoToday
	default:
		return nil, LabelNone
	}
}

type rosterHealth struct {
	popZero  *int
	tpsrZero *int
	bothZero *int
	avgScore *float64
}

// measureRoster counts zero-signal artists and averages score points. Every value is nil
// when entries is empty.
func measureRoster(entries []models.DailyRankingEntry) rosterHealth {
	if len(entries) == 0 {
		return rosterHealth{}
	}

	var popZero, tpsrZero, bothZero int
	var sum float64
	for _, e := range entries {
		pz := e.ArtistPopularity != nil && *e.ArtistPopularity == 0
		tz := e.TrackPopularitySumRatio == 0
		if pz {
			popZero++
		}
		if tz {
			tpsrZero++
		}
		if pz && tz {
			bothZero++
		}
		sum += e.ScorePoints
	}

	return rosterHealth{
		popZero:  &popZero,
		tpsrZero: &tpsrZero,
		bothZero: &bothZero,
		avgScore: models.FloatPtr(sum / float64(len(entries))),
	}
}

// ComputeDailyStats compares roster health between today's and yesterday's leaderboards.
func ComputeDailyStats(date string, today, prev []models.DailyRankingEntry) models.DailyStatsEntry {
	t, p := measureRoster(today), measureRoster(prev)
	stats := models.DailyStatsEntry{
		SnapshotDate:      date,
		AvgScore:          t.avgScore,
		AvgScorePrev:      p.avgScore,
		CountPopZero:      t.popZero,
		CountPopZeroPrev:  p.popZero,
		CountTPSRZero:     t.tpsrZero,
		CountTPSRZeroPrev: p.tpsrZero,
		CountBothZero:     t.bothZero,
		CountBothZeroPrev: p.bothZero,
	}

	stats.AvgScoreDiff, stats.AvgScoreRatio = ChangeStat(t.avgScore, p.avgScore)
	stats.CountPopZeroDiff, stats.CountPopZeroRatio = ChangeStat(t.popZero, p.popZero)
	stats.CountTPSRZeroDiff, stats.CountTPSRZeroRatio = ChangeStat(t.tpsrZero, p.tpsrZero)
	stats.CountBothZeroDiff, stats.CountBothZeroRatio = ChangeStat(t.bothZero, p.bothZero)

	return stats
}
