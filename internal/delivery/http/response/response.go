package response

import (
	"time"

	"github.com/user/spidermap/internal/entity"
)

type SubmitJobResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

// JobStatusResponse is a DTO for a scrape job, mirroring entity.ScrapeJob.
type JobStatusResponse struct {
	JobID               string     `json:"job_id"`
	Region              string     `json:"region"`
	Category            string     `json:"category"`
	MaxResults          int        `json:"max_results"`
	IncludeWithoutPhone bool       `json:"include_without_phone"`
	Status              string     `json:"status"` // "pending", "running", "completed", "failed"
	FailureReason       string     `json:"failure_reason,omitempty"`
	RecordCount         int        `json:"record_count"`
	Attempts            int        `json:"attempts"`
	BudgetExhausted     bool       `json:"budget_exhausted"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

func NewJobStatusResponse(job *entity.ScrapeJob) JobStatusResponse {
	return JobStatusResponse{
		JobID:               job.ID,
		Region:              job.Region,
		Category:            job.Category,
		MaxResults:          job.MaxResults,
		IncludeWithoutPhone: job.IncludeWithoutPhone,
		Status:              job.Status,
		FailureReason:       job.FailureReason,
		RecordCount:         job.RecordCount,
		Attempts:            job.Attempts,
		BudgetExhausted:     job.BudgetExhausted,
		CreatedAt:           job.CreatedAt,
		UpdatedAt:           job.UpdatedAt,
		CompletedAt:         job.CompletedAt,
	}
}

type RecordsResponse struct {
	JobID   string          `json:"job_id"`
	Count   int             `json:"count"`
	Records []entity.Record `json:"records"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
