package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/alarm-dashboard-service/internal/adapter/export"
	"github.com/couchcryptid/alarm-dashboard-service/internal/domain"
	"github.com/couchcryptid/alarm-dashboard-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

var errBadRequest = errors.New("bad request")

type statusResponse struct {
	Status    pipeline.Status  `json:"status"`
	Error     string           `json:"error,omitempty"`
	Selection domain.Selection `json:"selection"`
	Label     string           `json:"district_label"`
}

// selectionRequest is the PUT /api/selection body. Absent fields keep their
// current value; an empty district clears the filter.
type selectionRequest struct {
	Month    *int    `json:"month"`
	District *string `json:"district"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status, err := s.dashboard.Status()
	sel := s.dashboard.Selection()
	resp := statusResponse{Status: status, Selection: sel, Label: sel.Label()}
	if err != nil {
		resp.Error = err.Error()
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.summaryFor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: decode body: %v", errBadRequest, err))
		return
	}

	var (
		summary pipeline.Summary
		err     error
	)
	switch {
	case req.Month != nil && req.District != nil:
		summary, err = s.dashboard.SetSelection(r.Context(), domain.Selection{Month: *req.Month, District: *req.District})
	case req.Month != nil:
		summary, err = s.dashboard.SetMonth(r.Context(), *req.Month)
	case req.District != nil:
		summary, err = s.dashboard.SetDistrict(r.Context(), *req.District)
	default:
		err = fmt.Errorf("%w: month or district required", errBadRequest)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, summary)
}

func (s *Server) handleResetDistrict(w http.ResponseWriter, r *http.Request) {
	summary, err := s.dashboard.ResetDistrict(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, summary)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, contentTypeXLSX, "xlsx", export.BuildSummaryXLSX)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, contentTypePDF, "pdf", export.BuildSummaryPDF)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, contentType, ext string, build func(pipeline.Summary) ([]byte, error)) {
	summary, err := s.summaryFor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := build(summary)
	if err != nil {
		s.writeError(w, fmt.Errorf("build %s export: %w", ext, err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="alarms-%02d.%s"`, summary.Selection.Month, ext))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// summaryFor returns the current summary, or a queried one when the request
// carries month or district parameters. Missing parameters default to the
// current selection.
func (s *Server) summaryFor(r *http.Request) (pipeline.Summary, error) {
	q := r.URL.Query()
	if !q.Has("month") && !q.Has("district") {
		return s.dashboard.Current()
	}

	sel := s.dashboard.Selection()
	if q.Has("month") {
		month, err := strconv.Atoi(q.Get("month"))
		if err != nil {
			return pipeline.Summary{}, fmt.Errorf("%w: got %q", pipeline.ErrInvalidMonth, q.Get("month"))
		}
		sel.Month = month
	}
	if q.Has("district") {
		sel.District = q.Get("district")
	}
	return s.dashboard.Query(r.Context(), sel)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var loadErr *pipeline.LoadError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, pipeline.ErrInvalidMonth):
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, pipeline.ErrNotLoaded):
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": pipeline.StatusLoading.String(),
			"error":  err.Error(),
		})
	case errors.As(err, &loadErr):
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": pipeline.StatusFailed.String(),
			"error":  err.Error(),
		})
	default:
		s.logger.Error("api request failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
