package handler

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/spidermap/internal/delivery/http/request"
	"github.com/user/spidermap/internal/delivery/http/response"
	"github.com/user/spidermap/internal/entity"
	"github.com/user/spidermap/internal/usecase"
)

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	jobManager usecase.JobManager
	scraper    usecase.Scraper
	defaults   usecase.RunDefaults
	maxResults int
	checks     map[string]HealthCheck
	logger     *zap.Logger
	pages      *template.Template
}

// NewHandler wires the JSON job API and the HTML form. maxResults is used
// when a request leaves the limit unset.
func NewHandler(
	jobManager usecase.JobManager,
	scraper usecase.Scraper,
	defaults usecase.RunDefaults,
	maxResults int,
	checks map[string]HealthCheck,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		jobManager: jobManager,
		scraper:    scraper,
		defaults:   defaults,
		maxResults: maxResults,
		checks:     checks,
		logger:     logger,
		pages:      template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

func (h *Handler) HandleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	scrapeReq := entity.ScrapeRequest{
		Region:              req.Region,
		Category:            req.Category,
		MaxResults:          h.maxResults,
		IncludeWithoutPhone: req.IncludeWithoutPhone,
	}
	if req.MaxResults != nil {
		scrapeReq.MaxResults = *req.MaxResults
	}
	if err := scrapeReq.Validate(); err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	jobID, err := h.jobManager.Submit(r.Context(), scrapeReq, req.Force)
	if err != nil {
		if errors.Is(err, usecase.ErrQueryRecentlyScraped) {
			h.writeJSON(w, http.StatusConflict, response.SubmitJobResponse{
				Status:  "duplicate",
				Message: err.Error(),
				JobID:   jobID,
			})
			return
		}
		if errors.Is(err, entity.ErrInvalidRequest) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("Failed to submit job", zap.String("query", scrapeReq.Query()), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.SubmitJobResponse{
		Status:  "success",
		Message: "Query submitted for scraping",
		JobID:   jobID,
	})
}

func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := h.jobManager.GetStatus(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, id, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewJobStatusResponse(job))
}

func (h *Handler) HandleGetJobRecords(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	records, err := h.jobManager.Records(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, id, err)
		return
	}
	if records == nil {
		records = []entity.Record{}
	}
	h.writeJSON(w, http.StatusOK, response.RecordsResponse{
		JobID:   id,
		Count:   len(records),
		Records: records,
	})
}

func (h *Handler) writeLookupError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, usecase.ErrJobNotFound) {
		h.writeJSONError(w, "Job not found", http.StatusNotFound)
		return
	}
	h.logger.Error("Failed to load job", zap.String("job_id", id), zap.Error(err))
	h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := response.HealthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Error("health check failed", zap.String("service", name), zap.Error(err))
			resp.Checks[name] = "unhealthy"
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "healthy"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
