package handler

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/user/spidermap/internal/entity"
	"github.com/user/spidermap/internal/export"
	"github.com/user/spidermap/internal/usecase"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type pageData struct {
	Region              string
	Category            string
	MaxResults          int
	IncludeWithoutPhone bool
	Error               string
	Searched            bool
	Columns             []string
	Rows                [][]string
	RowsJSON            string
	Attempts            int
	BudgetExhausted     bool
}

func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, pageData{MaxResults: h.maxResults})
}

// HandleScrape runs a scrape for the submitted form and renders whatever
// was collected, including the partial result of a failed run.
func (h *Handler) HandleScrape(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, pageData{MaxResults: h.maxResults, Error: "Invalid form"})
		return
	}

	data := pageData{
		Region:              strings.TrimSpace(r.PostFormValue("region")),
		Category:            strings.TrimSpace(r.PostFormValue("category")),
		MaxResults:          h.maxResults,
		IncludeWithoutPhone: r.PostFormValue("include_without_phone") != "",
	}
	if raw := strings.TrimSpace(r.PostFormValue("max_results")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			data.Error = "max_results must be a whole number"
			h.render(w, http.StatusBadRequest, data)
			return
		}
		data.MaxResults = n
	}

	req := h.defaults.Apply(entity.ScrapeRequest{
		Region:              data.Region,
		Category:            data.Category,
		MaxResults:          data.MaxResults,
		IncludeWithoutPhone: data.IncludeWithoutPhone,
	})
	if err := req.Validate(); err != nil {
		data.Error = err.Error()
		h.render(w, http.StatusBadRequest, data)
		return
	}

	status := http.StatusOK
	result, err := h.scraper.Scrape(r.Context(), req)
	if err != nil {
		h.logger.Error("Scrape failed",
			zap.String("query", req.Query()),
			zap.String("error_type", usecase.Classify(err)),
			zap.Error(err),
		)
		data.Error = "Scrape failed: " + err.Error()
		status = http.StatusBadGateway
		if errors.Is(err, entity.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
	}

	data.Searched = true
	data.Columns = export.Columns
	if result != nil {
		data.Attempts = result.Attempts
		data.BudgetExhausted = result.BudgetExhausted
		for _, rec := range result.Records {
			data.Rows = append(data.Rows, export.Row(rec))
		}
		raw, err := json.Marshal(result.Records)
		if err != nil {
			h.logger.Error("Failed to encode rows", zap.Error(err))
		} else {
			data.RowsJSON = string(raw)
		}
	}
	h.render(w, status, data)
}

func (h *Handler) HandleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "results.csv", csvContentType, export.WriteCSV)
}

func (h *Handler) HandleDownloadExcel(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "results.xlsx", xlsxContentType, export.WriteXLSX)
}

func (h *Handler) download(
	w http.ResponseWriter,
	r *http.Request,
	filename, contentType string,
	write func(io.Writer, []entity.Record) error,
) {
	records, err := decodeRows(r.PostFormValue("rows_json"))
	if err != nil {
		http.Error(w, "Invalid rows_json", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, records); err != nil {
		h.logger.Error("Failed to build export", zap.String("file", filename), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("Export download interrupted", zap.String("file", filename), zap.Error(err))
	}
}

// decodeRows accepts an empty value as an empty export.
func decodeRows(raw string) ([]entity.Record, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var records []entity.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (h *Handler) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, "index.html", data); err != nil {
		h.logger.Error("Failed to render page", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
