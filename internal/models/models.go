// package models defines the records that flow through the ranking pipeline
package models

import (
	"time"
)

// UnknownArtistName is stored when the catalog could not supply an artist name.
const UnknownArtistName = "unknown"

// ServiceSpotify is the external_ids service tag for catalog artist ids.
const ServiceSpotify = "spotify"

// ArtistIdentity maps an internal artist group to its catalog artist id and display name.
type ArtistIdentity struct {
	GroupID   string `db:"group_id" json:"group_id" toml:"group_id"`
	SpotifyID string `db:"spotify_id" json:"spotify_id" toml:"spotify_id"`
	Name      string `db:"name" json:"name" toml:"name"`
}

// ArtistSnapshot is one artist's catalog metrics as observed on a date.
//
// ArtistPopularity is nil only when a stored row carries no value; the collector always writes one.
type ArtistSnapshot struct {
	SnapshotDate       string  `db:"snapshot_date" json:"snapshot_date"`
	GroupID            string  `db:"group_id" json:"group_id"`
	SpotifyID          string  `db:"spotify_id" json:"spotify_id"`
	Name               string  `db:"name" json:"name"`
	ArtistPopularity   *int    `db:"artist_popularity" json:"artist_popularity"`
	Followers          int     `db:"followers" json:"followers"`
	TrackPopularitySum int     `db:"track_popularity_sum" json:"track_popularity_sum"`
	NewReleaseCount    int     `db:"new_release_count" json:"new_release_count"`
	ImageURL           *string `db:"artist_image_url" json:"artist_image_url,omitempty"`
}

// DailyRankingEntry is a scored, ranked artist for a snapshot date.
type DailyRankingEntry struct {
	SnapshotDate            string   `db:"snapshot_date" json:"snapshot_date"`
	GroupID                 string   `db:"group_id" json:"group_id"`
	SpotifyID               string   `db:"spotify_id" json:"spotify_id"`
	ArtistName              string   `db:"artist_name" json:"artist_name"`
	Rank                    int      `db:"rank" json:"rank"`
	PrevRank                *int     `db:"prev_rank" json:"prev_rank"`
	Score                   float64  `db:"score" json:"score"`
	ScorePoints             float64  `db:"score_points" json:"score_points"`
	ScorePrev               *float64 `db:"score_prev" json:"score_prev"`
	ScoreDelta              *float64 `db:"score_delta" json:"score_delta"`
	Rising                  bool     `db:"rising" json:"rising"`
	ArtistPopularity        *int     `db:"artist_popularity" json:"artist_popularity"`
	PopularityDelta         int      `db:"popularity_delta" json:"popularity_delta"`
	Followers               int      `db:"followers" json:"followers"`
	FollowersRatio          float64  `db:"followers_ratio" json:"followers_ratio"`
	TrackPopularitySum      int      `db:"track_popularity_sum" json:"track_popularity_sum"`
	TrackPopularitySumRatio float64  `db:"track_popularity_sum_ratio" json:"track_popularity_sum_ratio"`
	NewReleaseCount         int      `db:"new_release_count" json:"new_release_count"`
}

// CumulativeRankingEntry carries the running total of score points up to a date.
type CumulativeRankingEntry struct {
	SnapshotDate     string  `db:"snapshot_date" json:"snapshot_date"`
	GroupID          string  `db:"group_id" json:"group_id"`
	ArtistName       string  `db:"artist_name" json:"artist_name"`
	Rank             int     `db:"rank" json:"rank"`
	CumulativeScore  float64 `db:"cumulative_score" json:"cumulative_score"`
	ScorePoints      float64 `db:"score_points" json:"score_points"`
	ArtistPopularity *int    `db:"artist_popularity" json:"artist_popularity"`
}

// WeeklyRankingEntry sums the trailing seven days of score points ending at WeekEndDate.
type WeeklyRankingEntry struct {
	WeekEndDate      string  `db:"week_end_date" json:"week_end_date"`
	GroupID          string  `db:"group_id" json:"group_id"`
	ArtistName       *string `db:"artist_name" json:"artist_name"`
	Rank             int     `db:"rank" json:"rank"`
	PrevRank         *int    `db:"prev_rank" json:"prev_rank"`
	TotalScore       float64 `db:"total_score" json:"total_score"`
	ArtistPopularity *int    `db:"artist_popularity" json:"artist_popularity"`
}

// DailyStatsEntry holds roster-wide health aggregates for a date with day-over-day change.
//
// Nil values mean the side had no ranking rows. Ratio fields are always set to a label.
type DailyStatsEntry struct {
	SnapshotDate       string   `db:"snapshot_date" json:"snapshot_date"`
	AvgScore           *float64 `db:"avg_score" json:"avg_score"`
	AvgScorePrev       *float64 `db:"avg_score_prev" json:"avg_score_prev"`
	AvgScoreDiff       *float64 `db:"avg_score_diff" json:"avg_score_diff"`
	AvgScoreRatio      string   `db:"avg_score_ratio" json:"avg_score_ratio"`
	CountPopZero       *int     `db:"count_pop_zero" json:"count_pop_zero"`
	CountPopZeroPrev   *int     `db:"count_pop_zero_prev" json:"count_pop_zero_prev"`
	CountPopZeroDiff   *int     `db:"count_pop_zero_diff" json:"count_pop_zero_diff"`
	CountPopZeroRatio  string   `db:"count_pop_zero_ratio" json:"count_pop_zero_ratio"`
	CountTPSRZero      *int     `db:"count_tpsr_zero" json:"count_tpsr_zero"`
	CountTPSRZeroPrev  *int     `db:"count_tpsr_zero_prev" json:"count_tpsr_zero_prev"`
	CountTPSRZeroDiff  *int     `db:"count_tpsr_zero_diff" json:"count_tpsr_zero_diff"`
	CountTPSRZeroRatio string   `db:"count_tpsr_zero_ratio" json:"count_tpsr_zero_ratio"`
	CountBothZero      *int     `db:"count_both_zero" json:"count_both_zero"`
	CountBothZeroPrev  *int     `db:"count_both_zero_prev" json:"count_both_zero_prev"`
	CountBothZeroDiff  *int     `db:"count_both_zero_diff" json:"count_both_zero_diff"`
	CountBothZeroRatio string   `db:"count_both_zero_ratio" json:"count_both_zero_ratio"`
}

// DailyHighlight enriches a top-ranked daily entry with its latest release and image.
type DailyHighlight struct {
	SnapshotDate         string  `db:"snapshot_date" json:"snapshot_date"`
	GroupID              string  `db:"group_id" json:"group_id"`
	ArtistName           string  `db:"artist_name" json:"artist_name"`
	Rank                 int     `db:"rank" json:"rank"`
	ScorePoints          float64 `db:"score_points" json:"score_points"`
	LatestTrackName      *string `db:"latest_track_name" json:"latest_track_name"`
	LatestTrackEmbedLink *string `db:"latest_track_embed_link" json:"latest_track_embed_link"`
	ArtistImageURL       *string `db:"artist_image_url" json:"artist_image_url"`
}

// JobRunStatus is the lifecycle state of a recorded job invocation.
type JobRunStatus string

const (
	JobRunning   JobRunStatus = "running"
	JobSucceeded JobRunStatus = "succeeded"
	JobFailed    JobRunStatus = "failed"
)

// JobRun records one invocation of a pipeline job.
type JobRun struct {
	ID          string       `db:"id" json:"id"`
	Job         string       `db:"job" json:"job"`
	TargetDate  string       `db:"target_date" json:"target_date"`
	Status      JobRunStatus `db:"status" json:"status"`
	StartedAt   string       `db:"started_at" json:"started_at"`
	FinishedAt  *string      `db:"finished_at" json:"finished_at"`
	RowsWritten int          `db:"rows_written" json:"rows_written"`
	Error       *string      `db:"error" json:"error"`
}

// Timestamp formats t for the TEXT timestamp columns.
func Timestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }
