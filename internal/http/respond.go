package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"dompet/internal/core"
	"dompet/internal/insight"
	"dompet/internal/log"
)

const msgNoData = "Tidak ada data transaksi untuk periode ini"

type errorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// fail maps a service error to its response. notFound is the message used
// for core.ErrNotFound on this route.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Validation failed", Details: ve.Fields})
	case errors.Is(err, core.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, core.ErrNotFound):
		if notFound == "" {
			notFound = "Data tidak ditemukan"
		}
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, core.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrInsufficientData):
		writeError(w, http.StatusBadRequest, msgNoData)
	case errors.Is(err, insight.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Layanan insight belum tersedia")
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(),
			"Request failed", err, log.ComponentHTTP, r.Method,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer()).
				WithErrorType(log.ErrorTypeInternal))
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

// badRequest reports a body or query that could not be read at all.
func badRequest(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{
		Error:   "Validation failed",
		Details: map[string]string{field: msg},
	})
}
