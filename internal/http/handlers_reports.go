package http

import (
	"net/http"

	applog "expenses/internal/log"
)

var reportErrors = errorMessages{
	internal:  "Failed to build report",
	operation: applog.OpReport,
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePeriodParams(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	totals, err := s.deps.Services.Reports.Monthly(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err, reportErrors)
		return
	}
	NewJSONResponse().Body(toMonthliesJSON(totals)).Write(w)
}

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePeriodParams(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	totals, err := s.deps.Services.Reports.Categories(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err, reportErrors)
		return
	}
	NewJSONResponse().Body(toCategoryBreakdownJSON(totals)).Write(w)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	g, limit, err := ParseTrendParams(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	trend, err := s.deps.Services.Reports.Trends(r.Context(), g, limit)
	if err != nil {
		s.writeError(w, r, err, reportErrors)
		return
	}
	NewJSONResponse().Body(toTrendsJSON(trend)).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Services.Reports.Dashboard(r.Context())
	if err != nil {
		msgs := reportErrors
		msgs.internal = "Failed to build dashboard"
		s.writeError(w, r, err, msgs)
		return
	}
	NewJSONResponse().Body(toDashboardJSON(d)).Write(w)
}
