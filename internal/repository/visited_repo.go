package repository

import (
	"context"
	"time"
)

// VisitedRepository remembers which search queries were scraped recently,
// and by which job, so identical submissions can be answered from storage.
type VisitedRepository interface {
	// MarkVisited records jobID as the latest run of queryKey for expiry.
	MarkVisited(ctx context.Context, queryKey, jobID string, expiry time.Duration) error
	// IsVisited returns the job that last scraped queryKey, if still remembered.
	IsVisited(ctx context.Context, queryKey string) (string, bool, error)
	// RemoveVisited forgets queryKey, used for forced re-scrapes.
	RemoveVisited(ctx context.Context, queryKey string) error
}
