// Package repositories implements sqlx persistence for the ranking pipeline.
//
// Every leaderboard table is keyed by (date, group_id) or (week_end_date, group_id) and is
// written with INSERT ... ON CONFLICT DO UPDATE, so rerunning a job for the same date
// replaces rows instead of duplicating them. Bulk writes go through fixed-size batches,
// each in its own transaction; a failure leaves earlier batches committed.
//
// Queries are written with '?' placeholders and rebound for the connection's driver, so the
// same repositories run on SQLite and PostgreSQL.
//
// Key Implementations:
//   - [IdentityRepository] : artist groups and their catalog ids
//   - [SnapshotRepository] : raw per-date catalog metrics
//   - [DailyRankingRepository], [CumulativeRepository], [WeeklyRepository] : leaderboards
//   - [StatsRepository], [HighlightRepository] : daily roster stats and top-N enrichment
//   - [JobRunRepository] : job invocation ledger
//
// [Store] bundles them over one connection pool.
package repositories
