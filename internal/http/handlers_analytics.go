package http

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dompet/internal/analytics"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/reports"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r, time.Now())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	d, err := s.svc.Analytics.Dashboard(r.Context(), userID(r), p)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	months := analytics.DashboardTrendMonths
	if raw := strings.TrimSpace(r.URL.Query().Get("months")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(w, "months", "must be an integer")
			return
		}
		months = n
	}
	points, err := s.svc.Analytics.Trend(r.Context(), userID(r), months)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]core.TrendPoint{"monthlyTrend": points})
}

// handleStatement renders the PDF statement for ?from=&to=. The document is
// built in memory so a render failure can still become a JSON error.
func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := s.svc.Statements.ParseRange(q.Get("from"), q.Get("to"))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	st, err := s.svc.Statements.Build(r.Context(), userID(r), rng)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	var buf bytes.Buffer
	if err := reports.RenderPDF(&buf, st); err != nil {
		s.fail(w, r, err, "")
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentReport).InfoContext(r.Context(), "Statement rendered",
		log.FieldOperation, log.OpExport,
		log.FieldUserID, st.UserID,
		"items", len(st.Items),
		"truncated", st.Truncated,
		"bytes", buf.Len())

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+reports.Filename(st)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
