package repository

import (
	"context"

	"github.com/user/spidermap/internal/entity"
)

// RecordRepository defines the interface for storing the finalized records of a job.
type RecordRepository interface {
	// SaveAll replaces the records stored for jobID, preserving their order.
	SaveAll(ctx context.Context, jobID string, records []entity.Record) error
	// FindByJob returns the records of jobID in harvest order.
	FindByJob(ctx context.Context, jobID string) ([]entity.Record, error)
}
