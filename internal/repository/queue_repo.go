package repository

import "context"

// QueueRepository defines the interface for a FIFO queue of scrape job IDs.
type QueueRepository interface {
	// Push adds a job ID to the end of the queue.
	Push(ctx context.Context, jobID string) error
	// Pop removes and returns a job ID from the front of the queue.
	// It returns ("", false, nil) when the queue is empty.
	Pop(ctx context.Context) (string, bool, error)
	// Size returns the current number of items in the queue.
	Size(ctx context.Context) (int64, error)
}
