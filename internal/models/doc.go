// Package models defines the records persisted and exchanged by the trendrank pipeline.
//
// The package contains two categories of types:
//
// 1. Registry entries: read-mostly data supplied outside the pipeline
//   - [ArtistIdentity] : group id to catalog artist id and display name
//
// 2. Dated records: one row per (date, group) written with upserts
//   - [ArtistSnapshot] : raw catalog metrics for a date
//   - [DailyRankingEntry] : scored and ranked artist with previous-day deltas
//   - [CumulativeRankingEntry] : running total of score points
//   - [WeeklyRankingEntry] : seven-day window total
//   - [DailyHighlight] : top-N enrichment with latest release
//   - [DailyStatsEntry] : roster-wide aggregates keyed by date only
//
// Optional numerics are pointers; nil means "not available" and is distinct from zero.
// [JobRun] tracks job invocations for auditing.
package models
