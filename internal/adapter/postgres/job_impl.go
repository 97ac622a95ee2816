package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/spidermap/internal/entity"
	"github.com/user/spidermap/internal/repository"
)

// JobRepoImpl provides a concrete implementation for the JobRepository interface using PostgreSQL.
type JobRepoImpl struct {
	db *pgxpool.Pool
}

// NewJobRepo creates a new instance of JobRepoImpl.
func NewJobRepo(db *pgxpool.Pool) *JobRepoImpl {
	return &JobRepoImpl{db: db}
}

// Save inserts a job without an ID, filling ID and timestamps from the
// database, and updates the status fields of an existing one.
func (r *JobRepoImpl) Save(ctx context.Context, job *entity.ScrapeJob) error {
	if job.ID == "" {
		return r.db.QueryRow(ctx, `
			INSERT INTO scrape_jobs (region, category, max_results, include_without_phone, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id::text, created_at, updated_at;
		`,
			job.Region,
			job.Category,
			job.MaxResults,
			job.IncludeWithoutPhone,
			job.Status,
		).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE scrape_jobs SET
			status = $2,
			failure_reason = $3,
			record_count = $4,
			attempts = $5,
			budget_exhausted = $6,
			completed_at = $7,
			updated_at = NOW()
		WHERE id = $1;
	`,
		job.ID,
		job.Status,
		job.FailureReason,
		job.RecordCount,
		job.Attempts,
		job.BudgetExhausted,
		job.CompletedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrJobNotFound
	}
	return nil
}

// FindByID retrieves a job by its ID.
func (r *JobRepoImpl) FindByID(ctx context.Context, id string) (*entity.ScrapeJob, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id::text, region, category, max_results, include_without_phone, status,
		       failure_reason, record_count, attempts, budget_exhausted,
		       created_at, updated_at, completed_at
		FROM scrape_jobs
		WHERE id::text = $1;
	`, id)

	var job entity.ScrapeJob
	err := row.Scan(
		&job.ID,
		&job.Region,
		&job.Category,
		&job.MaxResults,
		&job.IncludeWithoutPhone,
		&job.Status,
		&job.FailureReason,
		&job.RecordCount,
		&job.Attempts,
		&job.BudgetExhausted,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}
