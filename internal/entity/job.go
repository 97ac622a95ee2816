package entity

import "time"

const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// ScrapeJob mirrors the `scrape_jobs` PostgreSQL table schema.
type ScrapeJob struct {
	ID                  string
	Region              string
	Category            string
	MaxResults          int
	IncludeWithoutPhone bool
	Status              string // "pending", "running", "completed", "failed"
	FailureReason       string
	RecordCount         int
	Attempts            int
	BudgetExhausted     bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
	CompletedAt         *time.Time
}

// Request rebuilds the run parameters a job was submitted with.
// Browser and pacing settings come from the executing worker.
func (j *ScrapeJob) Request() ScrapeRequest {
	return ScrapeRequest{
		Region:              j.Region,
		Category:            j.Category,
		MaxResults:          j.MaxResults,
		IncludeWithoutPhone: j.IncludeWithoutPhone,
	}
}
