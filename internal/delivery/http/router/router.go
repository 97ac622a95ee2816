package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/spidermap/internal/delivery/http/handler"
	"github.com/user/spidermap/internal/delivery/http/middleware"
)

const apiTimeout = 30 * time.Second

// New mounts the HTML form, the job API and the metrics endpoint.
// POST /scrape runs without a request timeout; it is bounded by the server's write timeout.
func New(h *handler.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)

	r.Get("/", h.HandleIndex)
	r.Post("/scrape", h.HandleScrape)
	r.Post("/download-csv", h.HandleDownloadCSV)
	r.Post("/download-excel", h.HandleDownloadExcel)

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(apiTimeout))
		r.Get("/health", h.HandleHealthCheck)
		r.Post("/jobs", h.HandleSubmitJob)
		r.Get("/jobs/{id}", h.HandleGetJob)
		r.Get("/jobs/{id}/records", h.HandleGetJobRecords)
	})

	return r
}
