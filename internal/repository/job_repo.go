package repository

import (
	"context"

	"github.com/user/spidermap/internal/entity"
)

// JobRepository defines the interface for storing scrape job state.
type JobRepository interface {
	// Save creates the job or updates its mutable status fields.
	Save(ctx context.Context, job *entity.ScrapeJob) error
	// FindByID returns ErrJobNotFound when no job has the given ID.
	FindByID(ctx context.Context, id string) (*entity.ScrapeJob, error)
}
