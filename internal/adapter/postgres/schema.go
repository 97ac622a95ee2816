package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS scrape_jobs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		region TEXT NOT NULL,
		category TEXT NOT NULL,
		max_results INTEGER NOT NULL,
		include_without_phone BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL,
		failure_reason TEXT NOT NULL DEFAULT '',
		record_count INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		budget_exhausted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS business_records (
		job_id UUID NOT NULL REFERENCES scrape_jobs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		rating TEXT NOT NULL DEFAULT '',
		reviews_count TEXT NOT NULL DEFAULT '',
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		gmaps_url TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (job_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scrape_jobs_query ON scrape_jobs (lower(region), lower(category), created_at DESC)`,
}

// EnsureSchema creates the tables the repositories rely on.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
