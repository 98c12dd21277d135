package tasks

import (
	"sort"

	"github.com/desertthunder/trendrank/internal/models"
)

// Momentum weights applied to each day-over-day component.
const (
	PopularityWeight      = 3.0
	FollowersWeight       = 2.0
	TrackPopularityWeight = 1.0
	NewReleaseWeight      = 0.3
)

// PointsScale converts a raw score into stored leaderboard points.
const PointsScale = 10.0

// minScoredPopularity is the lowest popularity whose momentum counts; below it the score is 0.
const minScoredPopularity = 3

// Score combines the momentum components into a raw score.
func Score(popularityDelta int, followersRatio, trackPopularityRatio float64, newReleases int) float64 {
	return float64(popularityDelta)*PopularityWeight +
		followersRatio*FollowersWeight +
		trackPopularityRatio*TrackPopularityWeight +
		float64(newReleases)*NewReleaseWeight
}

// ScoreSnapshots derives a momentum score for every artist in today from yesterday's snapshots.
//
// Entries keep today's order and carry no rank yet. Artists without a row in prev are
// first-seen: every growth component is 0. A popularity delta is also 0 when either side
// has no popularity value.
func ScoreSnapshots(today, prev []models.ArtistSnapshot) []models.DailyRankingEntry {
	previous := make(map[string]models.ArtistSnapshot, len(prev))
	for _, s := range prev {
		previous[s.GroupID] = s
	}

	entries := make([]models.DailyRankingEntry, 0, len(today))
	for _, s := range today {
		e := models.DailyRankingEntry{
			SnapshotDate:       s.SnapshotDate,
			GroupID:            s.GroupID,
			SpotifyID:          s.SpotifyID,
			ArtistName:         s.Name,
			ArtistPopularity:   s.ArtistPopularity,
			Followers:          s.Followers,
			TrackPopularitySum: s.TrackPopularitySum,
		}

		if p, seen := previous[s.GroupID]; seen {
			if s.ArtistPopularity != nil && p.ArtistPopularity != nil {
				e.PopularityDelta = *s.ArtistPopularity - *p.ArtistPopularity
			}
			e.FollowersRatio = growthRatio(s.Followers, p.Followers)
			e.TrackPopularitySumRatio = growthRatio(s.TrackPopularitySum, p.TrackPopularitySum)
			e.NewReleaseCount = s.NewReleaseCount
		}

		e.Score = Score(e.PopularityDelta, e.FollowersRatio, e.TrackPopularitySumRatio, e.NewReleaseCount)
		if s.ArtistPopularity == nil || *s.ArtistPopularity < minScoredPopularity {
			e.Score = 0
		}

		entries = append(entries, e)
	}

	return entries
}

// growthRatio is (today - prev) / max(prev, 1).
func growthRatio(today, prev int) float64 {
	return float64(today-prev) / float64(max(prev, 1))
}

// RankDaily orders scored entries by score, assigns dense 1-based ranks and points, and joins
// yesterday's leaderboard for prev_rank, score_prev, score_delta and the rising flag.
//
// Ties keep input order. The input slice is not modified.
func RankDaily(scored, prev []models.DailyRankingEntry, risingThreshold float64) []models.DailyRankingEntry {
	ranked := append([]models.DailyRankingEntry(nil), scored...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	previous := make(map[string]models.DailyRankingEntry, len(prev))
	for _, p := range prev {
		previous[p.GroupID] = p
	}

	for i := range ranked {
		e := &ranked[i]
		e.Rank = i + 1
		e.ScorePoints = e.Score * PointsScale
		e.PrevRank, e.ScorePrev, e.ScoreDelta, e.Rising = nil, nil, nil, false

		p, ok := previous[e.GroupID]
		if !ok {
			continue
		}
		e.PrevRank = models.IntPtr(p.Rank)
		e.ScorePrev = models.FloatPtr(p.ScorePoints)
		e.ScoreDelta = models.FloatPtr(e.ScorePoints - p.ScorePoints)
		e.Rising = *e.ScoreDelta > risingThreshold
	}

	return ranked
}

// Accumulate adds each artist's points for date to its running total from the previous
// date and re-ranks by the new totals.
//
// Artists missing from prev start at 0. Artists present in prev but not ranked today carry
// their total forward with zero points. Totals are not floored and may decrease.
func Accumulate(date string, today []models.DailyRankingEntry, prev []models.CumulativeRankingEntry) []models.CumulativeRankingEntry {
	totals := make(map[string]models.CumulativeRankingEntry, len(prev))
	for _, p := range prev {
		totals[p.GroupID] = p
	}

	out := make([]models.CumulativeRankingEntry, 0, max(len(today), len(prev)))
	seen := make(map[string]bool, len(today))
	for _, e := range today {
		seen[e.GroupID] = true
		out = append(out, models.CumulativeRankingEntry{
			SnapshotDate:     date,
			GroupID:          e.GroupID,
			ArtistName:       e.ArtistName,
			CumulativeScore:  totals[e.GroupID].CumulativeScore + e.ScorePoints,
			ScorePoints:      e.ScorePoints,
			ArtistPopularity: e.ArtistPopularity,
		})
	}

	for _, p := range prev {
		if seen[p.GroupID] {
			continue
		}
		out = append(out, models.CumulativeRankingEntry{
			SnapshotDate:     date,
			GroupID:          p.GroupID,
			ArtistName:       p.ArtistName,
			CumulativeScore:  p.CumulativeScore,
			ArtistPopularity: p.ArtistPopularity,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CumulativeScore > out[j].CumulativeScore })
	for i := range out {
		out[i].Rank = i + 1
	}

	return out
}

// AggregateWeek sums score points per artist over window and ranks the totals.
//
// window must be ordered by snapshot date; the popularity of an artist's last row in it is
// kept. Ties keep group id order. names supplies display names; unknown groups get nil.
func AggregateWeek(weekEnd string, window []models.DailyRankingEntry, prevWeek []models.WeeklyRankingEntry, names map[string]string) []models.WeeklyRankingEntry {
	byGroup := make(map[string]*models.WeeklyRankingEntry)
	var groups []string

	for _, e := range window {
		w, ok := byGroup[e.GroupID]
		if !ok {
			w = &models.WeeklyRankingEntry{WeekEndDate: weekEnd, GroupID: e.GroupID}
			byGroup[e.GroupID] = w
			groups = append(groups, e.GroupID)
		}
		w.TotalScore += e.ScorePoints
		w.ArtistPopularity = e.ArtistPopularity
	}
	sort.Strings(groups)

	prevRanks := make(map[string]int, len(prevWeek))
	for _, p := range prevWeek {
		prevRanks[p.GroupID] = p.Rank
	}

	out := make([]models.WeeklyRankingEntry, 0, len(groups))
	for _, g := range groups {
		w := *byGroup[g]
		if name, ok := names[g]; ok {
			w.ArtistName = models.StringPtr(name)
		}
		if rank, ok := prevRanks[g]; ok {
			w.PrevRank = models.IntPtr(rank)
		}
		out = append(out, w)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalScore > out[j].TotalScore })
	for i := range out {
		out[i].Rank = i + 1
	}

	return out
}
