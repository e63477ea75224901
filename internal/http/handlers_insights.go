package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"dompet/internal/core"
)

const msgInsightNotFound = "Insight tidak ditemukan"

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := core.InsightFilter{Type: core.InsightType(strings.TrimSpace(q.Get("type")))}
	if raw := q.Get("unreadOnly"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(w, "unreadOnly", "must be true or false")
			return
		}
		f.UnreadOnly = v
	}

	list, err := s.svc.Insights.List(r.Context(), userID(r), f)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]core.Insight{"insights": list})
}

type generateInsightBody struct {
	Type   core.InsightType `json:"type"`
	Period string           `json:"period"`
	Async  bool             `json:"async"`
}

// handleGenerateInsight writes an insight for the given period, the current
// month by default. With async the work is queued and 202 is returned.
func (s *Server) handleGenerateInsight(w http.ResponseWriter, r *http.Request) {
	var body generateInsightBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err, "")
		return
	}

	p := core.PeriodOf(time.Now())
	if raw := strings.TrimSpace(body.Period); raw != "" {
		parsed, err := core.ParsePeriod(raw)
		if err != nil {
			badRequest(w, "period", "must be YYYY-MM")
			return
		}
		p = parsed
	}

	if body.Async {
		if err := s.svc.Insights.Request(r.Context(), userID(r), body.Type, p); err != nil {
			s.fail(w, r, err, "")
			return
		}
		writeJSON(w, http.StatusAccepted, struct {
			Message string `json:"message"`
			Period  string `json:"period"`
		}{"Insight sedang dibuat", p.String()})
		return
	}

	in, err := s.svc.Insights.Generate(r.Context(), userID(r), body.Type, p)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]core.Insight{"insight": in})
}

func (s *Server) handleMarkInsightRead(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Insights.MarkRead(r.Context(), userID(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err, msgInsightNotFound)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Insight ditandai sudah dibaca"})
}

func (s *Server) handleDeleteInsight(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Insights.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err, msgInsightNotFound)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Insight berhasil dihapus"})
}
