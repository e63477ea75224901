package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dompet/internal/core"
)

func TestTokens_IssueAndParse(t *testing.T) {
	tokens, err := NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}

	raw, exp, err := tokens.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry %v is not in the future", exp)
	}

	sub, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if sub != "user-1" {
		t.Fatalf("subject = %q, want user-1", sub)
	}
}

func TestTokens_ParseRejects(t *testing.T) {
	tokens, _ := NewTokens("test-secret", time.Hour)
	other, _ := NewTokens("other-secret", time.Hour)
	foreign, _, _ := other.Issue("user-1")

	expired, _ := NewTokens("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, _ := expired.Issue("user-1")

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1", Issuer: issuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", stale},
		{"none algorithm", none},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Parse(tt.raw)
			if !errors.Is(err, core.ErrUnauthorized) {
				t.Fatalf("Parse error = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestNewTokens_Validation(t *testing.T) {
	if _, err := NewTokens("  ", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := NewTokens("secret", 0); err == nil {
		t.Error("expected error for zero ttl")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("rahasia123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "rahasia123" {
		t.Fatal("hash equals the password")
	}
	if !CheckPassword(hash, "rahasia123") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "salah") {
		t.Error("wrong password accepted")
	}
}

func TestMiddleware(t *testing.T) {
	tokens, _ := NewTokens("test-secret", time.Hour)
	valid, _, _ := tokens.Issue("user-42")

	var gotUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	deny := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}
	h := Middleware(tokens, deny)(next)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + valid, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = ""
			req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent && gotUser != "user-42" {
				t.Fatalf("user = %q, want user-42", gotUser)
			}
		})
	}
}
