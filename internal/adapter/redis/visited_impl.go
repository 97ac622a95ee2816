package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/spidermap/pkg/utils"
)

const scrapedQueryPrefix = "scraped:"

// VisitedRepoImpl provides a concrete implementation for the VisitedRepository interface using Redis.
type VisitedRepoImpl struct {
	client *redis.Client
}

// NewVisitedRepo creates a new instance of VisitedRepoImpl.
func NewVisitedRepo(client *redis.Client) *VisitedRepoImpl {
	return &VisitedRepoImpl{client: client}
}

// generateKey creates a consistent Redis key for a query key by hashing it.
func (r *VisitedRepoImpl) generateKey(queryKey string) string {
	return fmt.Sprintf("%s%s", scrapedQueryPrefix, utils.HashKey(queryKey))
}

// MarkVisited stores jobID under the query with an expiry. SET with EX is atomic.
func (r *VisitedRepoImpl) MarkVisited(ctx context.Context, queryKey, jobID string, expiry time.Duration) error {
	return r.client.Set(ctx, r.generateKey(queryKey), jobID, expiry).Err()
}

// IsVisited returns the job that last scraped the query, if the key is still alive.
func (r *VisitedRepoImpl) IsVisited(ctx context.Context, queryKey string) (string, bool, error) {
	jobID, err := r.client.Get(ctx, r.generateKey(queryKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return jobID, true, nil
}

// RemoveVisited forgets the query, used for forced re-scrapes.
func (r *VisitedRepoImpl) RemoveVisited(ctx context.Context, queryKey string) error {
	return r.client.Del(ctx, r.generateKey(queryKey)).Err()
}
