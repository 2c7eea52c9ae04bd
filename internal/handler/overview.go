package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/auth"
	"github.com/sakif/cashflow-api/internal/model"
	"github.com/sakif/cashflow-api/internal/service"
)

type OverviewService interface {
	Get(ctx context.Context, in service.OverviewInput) (*model.Overview, error)
}

type SummaryService interface {
	GetLastMonthSummary(ctx context.Context, userID string) (*model.FinancialSummary, error)
}

// OverviewHandler serves the dashboard aggregate and the monthly summary.
type OverviewHandler struct {
	overview OverviewService
	summary  SummaryService
	logger   *slog.Logger
}

func NewOverviewHandler(overview OverviewService, summary SummaryService, logger *slog.Logger) *OverviewHandler {
	return &OverviewHandler{overview: overview, summary: summary, logger: logger}
}

type summaryResponse struct {
	Summary string `json:"summary"`
	Period  string `json:"period"`
}

// HandleOverview returns totals and the latest transactions for a window.
//
// HTTP: GET /v1/overview?interval=week
//
//	GET /v1/overview?startDate=2025-01-01&endDate=2025-01-31
//
// An explicit startDate overrides interval.
func (h *OverviewHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthorized("Authentication required"))
		return
	}

	v := r.URL.Query()
	start, err := parseDateParam(v, "startDate")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	end, err := parseDateParam(v, "endDate")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ov, err := h.overview.Get(r.Context(), service.OverviewInput{
		UserID:    userID,
		Interval:  service.Interval(v.Get("interval")),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Overview retrieved successfully", ov)
}

// HandleSummary returns last month's generated summary. The first request
// in a month may take a few seconds while the text is generated.
//
// HTTP: GET /v1/overview/summary
func (h *OverviewHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthorized("Authentication required"))
		return
	}

	s, err := h.summary.GetLastMonthSummary(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Financial summary retrieved successfully",
		summaryResponse{Summary: s.Content, Period: s.Period})
}
