// Package tasks implements the ranking pipeline: snapshot collection, scoring, ranking and
// the leaderboard aggregations built on top of them.
//
// # Pure stages
//
// The numeric stages are plain functions over model slices:
//
//  1. [ScoreSnapshots] : day-over-day momentum per artist, with the first-seen and
//     low-popularity rules applied
//  2. [RankDaily] : stable sort by score, dense ranks, score points and the join against
//     yesterday's leaderboard (prev_rank, score_delta, rising)
//  3. [Accumulate] : running totals of score points, re-ranked each day
//  4. [AggregateWeek] : seven-day sums, re-ranked, joined to the previous week's ranks
//  5. [ComputeDailyStats] : zero-signal counts and average points with [ChangeStat] labels
//
// # Jobs
//
// [Pipeline] wires the stages to [repositories.Store] and a [services.Catalog]:
//
//   - [Pipeline.Snapshot] : [Collector] pass with self-healing retry rounds, then batched upserts
//   - [Pipeline.Daily] : daily, stats, cumulative and highlight tables for one date
//   - [Pipeline.Weekly] : weekly leaderboard for one week end
//   - [Pipeline.Playlist] : [PlaylistBuilder] publishes the weekly top artists
//
// Missing upstream data (no snapshots, no weekly rows, no identity mapping) aborts a job
// before anything is written. Per-artist catalog gaps only degrade that artist's fields.
//
// # Progress Reporting
//
// Jobs accept an optional channel of [ProgressUpdate]. Updates use select with default so a
// slow reader never blocks a job.
package tasks
