package request

// SubmitJobRequest is the body of POST /api/jobs.
type SubmitJobRequest struct {
	Region              string `json:"region"`
	Category            string `json:"category"`
	MaxResults          *int   `json:"max_results"` // nil means the configured default
	IncludeWithoutPhone bool   `json:"include_without_phone"`
	Force               bool   `json:"force"`
}
