package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dompet/internal/core"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithUser("u1").
		WithTransaction("t1", "a1", "expense", 2500).
		WithError(errors.New("boom")).
		WithError(nil)

	if f[FieldUserID] != "u1" || f[FieldAmountCents] != int64(2500) {
		t.Fatalf("unexpected fields %v", f)
	}
	if f[FieldError] != "boom" {
		t.Fatalf("nil error must not overwrite, got %v", f[FieldError])
	}
	if got := len(f.ToSlice()); got != len(f)*2 {
		t.Fatalf("ToSlice len = %d", got)
	}
}

func TestStructuredLoggerTransaction(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentLedger, Handler: NewHandler(&buf, "json", slog.LevelInfo)})
	sl := NewStructuredLogger(logger)

	tx := core.Transaction{ID: "t1", UserID: "u1", AccountID: "a1", Kind: core.KindExpense, Amount: core.Cents(2500)}
	sl.LogTransaction(context.Background(), OpCreate, tx, tx.Effect())

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "Transaction created" {
		t.Fatalf("msg = %v", entry["msg"])
	}
	if entry[FieldDeltaCents] != float64(-2500) || entry[FieldTransactionID] != "t1" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("expected default logger, got %+v", l)
	}

	var buf bytes.Buffer
	logger := New(Config{Component: ComponentHTTP, Handler: NewHandler(&buf, "text", slog.LevelInfo)})
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	var got *Logger
	Middleware(logger)(httpHandler(func(l *Logger) { got = l })).ServeHTTP(rec, req)
	if got == nil || got.Component() != ComponentHTTP {
		t.Fatalf("middleware did not attach logger")
	}
}

type httpHandler func(*Logger)

func (h httpHandler) ServeHTTP(_ http.ResponseWriter, r *http.Request) {
	h(FromContext(r.Context()))
}

func TestLoggerComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentHTTP, Handler: NewHandler(&buf, "text", slog.LevelInfo)})
	logger.With(FieldRequestID, "req_1").WithComponent(ComponentLedger).ForUser("u1").Info("hello")

	line := buf.String()
	if n := strings.Count(line, FieldComponent+"="); n != 1 {
		t.Fatalf("component appears %d times in %q", n, line)
	}
	for _, want := range []string{"component=ledger", "request_id=req_1", "user_id=u1"} {
		if !strings.Contains(line, want) {
			t.Errorf("%q missing %s", line, want)
		}
	}
}

func TestAttrMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Handler: NewHandler(&buf, "text", slog.LevelInfo)})

	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"set", "u42", true},
		{"empty skipped", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			h := Middleware(logger)(UserMiddleware(func(*http.Request) string { return tt.value })(
				httpHandler(func(l *Logger) { l.Info("seen") })))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
			if got := strings.Contains(buf.String(), "user_id="); got != tt.want {
				t.Fatalf("user_id present = %v in %q", got, buf.String())
			}
		})
	}
}

func TestErrorTypeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{core.FieldError("name", "required"), ErrorTypeValidation},
		{fmt.Errorf("wrap: %w", core.ErrNotFound), ErrorTypeNotFound},
		{core.ErrUnauthorized, ErrorTypeAuth},
		{core.ErrConflict, ErrorTypeConflict},
		{context.DeadlineExceeded, ErrorTypeTimeout},
		{errors.New("disk full"), ErrorTypeInternal},
	}
	for _, tt := range tests {
		if got := ErrorTypeOf(tt.err); got != tt.want {
			t.Errorf("ErrorTypeOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestLogErrorKeepsExplicitType(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Handler: NewHandler(&buf, "json", slog.LevelInfo)}))
	sl.LogError(context.Background(), "publish failed", core.ErrNotFound, ComponentAMQP, OpPublish,
		NewFields().WithErrorType(ErrorTypeNetwork))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if entry[FieldErrorType] != ErrorTypeNetwork || entry[FieldComponent] != ComponentAMQP {
		t.Fatalf("unexpected entry %v", entry)
	}
}
