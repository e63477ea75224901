package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dompet/internal/auth"
	"dompet/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into v, rejecting unknown fields and
// trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return core.FieldError("body", "must not be empty")
		}
		return core.FieldError("body", bodyError(err))
	}
	if dec.More() {
		return core.FieldError("body", "must contain a single JSON object")
	}
	return nil
}

func bodyError(err error) string {
	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &syntax):
		return fmt.Sprintf("malformed JSON at offset %d", syntax.Offset)
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	case errors.As(err, &tooLarge):
		return "too large"
	case errors.Is(err, core.ErrInvalidAmount):
		return "amount must be a number"
	default:
		return strings.TrimPrefix(err.Error(), "json: ")
	}
}

// userID returns the id placed by the auth middleware. Routes under /api/
// are only reachable through it.
func userID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

func queryInt(v *core.ValidationError, q map[string][]string, key string) int {
	raw := strings.TrimSpace(first(q[key]))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v.Add(key, "must be an integer")
		return 0
	}
	return n
}

func queryDate(v *core.ValidationError, q map[string][]string, key string) core.Date {
	raw := strings.TrimSpace(first(q[key]))
	if raw == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		v.Add(key, "must be a date (YYYY-MM-DD)")
		return core.Date{}
	}
	return d
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// parseTransactionFilter reads accountId, categoryId, type, startDate,
// endDate, search, limit and offset.
func parseTransactionFilter(r *http.Request) (core.TransactionFilter, error) {
	q := r.URL.Query()
	v := core.NewValidationError()
	f := core.TransactionFilter{
		AccountID:  strings.TrimSpace(q.Get("accountId")),
		CategoryID: strings.TrimSpace(q.Get("categoryId")),
		Kind:       core.Kind(strings.TrimSpace(q.Get("type"))),
		Search:     q.Get("search"),
		Range: core.DateRange{
			From: queryDate(v, q, "startDate"),
			To:   queryDate(v, q, "endDate"),
		},
		Limit:  queryInt(v, q, "limit"),
		Offset: queryInt(v, q, "offset"),
	}
	return f, v.OrNil()
}

// parsePeriod reads ?period=YYYY-MM or ?year=&month=, defaulting to the month
// of now.
func parsePeriod(r *http.Request, now time.Time) (core.Period, error) {
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("period")); raw != "" {
		p, err := core.ParsePeriod(raw)
		if err != nil {
			return core.Period{}, core.FieldError("period", "must be YYYY-MM")
		}
		return p, nil
	}

	p := core.PeriodOf(now)
	v := core.NewValidationError()
	if y := queryInt(v, q, "year"); y != 0 {
		p.Year = y
	}
	if m := queryInt(v, q, "month"); m != 0 {
		p.Month = m
	}
	if err := v.OrNil(); err != nil {
		return core.Period{}, err
	}
	if err := p.Validate(); err != nil {
		return core.Period{}, core.FieldError("period", err.Error())
	}
	return p, nil
}
