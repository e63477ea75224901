package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))
	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Cache-Control":           "no-store",
	}
	for k, v := range want {
		if got := rr.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set on plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestHeadersMiddleware_EmptyValuesSkipped(t *testing.T) {
	cfg := DefaultHeadersConfig()
	cfg.PermissionsPolicy = ""
	cfg.HSTS = 0
	h := NewHeadersMiddleware(cfg).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if _, ok := rr.Header()["Permissions-Policy"]; ok {
		t.Error("empty Permissions-Policy written")
	}
	if got := rr.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS = %q with HSTS disabled", got)
	}
}

func TestDetector_Suspicious(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name  string
		build func() *http.Request
		want  bool
	}{
		{"plain", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/dashboard?period=2025-03", nil) }, false},
		{"traversal", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/../.env", nil) }, true},
		{"script in query", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/transactions?search=eval(1)", nil) }, true},
		{"scanner agent", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("User-Agent", "sqlmap/1.7")
			return r
		}, true},
		{"trace method", func() *http.Request { return httptest.NewRequest("TRACE", "/", nil) }, true},
		{"encoded injection", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/transactions?search=x%27%20union%20select%201", nil)
		}, true},
		{"merchant search", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/transactions?search=0xford%20base64%20cafe", nil)
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.DetectSuspiciousRequest(tt.build()); got != tt.want {
				t.Errorf("DetectSuspiciousRequest = %v, want %v", got, tt.want)
			}
		})
	}
	m := d.GetMetrics()
	if m.SuspiciousRequests != 5 {
		t.Errorf("SuspiciousRequests = %d, want 5", m.SuspiciousRequests)
	}
	if m.ByReason[ReasonInjection] != 2 || m.ByReason[ReasonPathProbe] != 1 {
		t.Errorf("ByReason = %v", m.ByReason)
	}
}

func TestDetector_ExtractClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		remote string
		xff    string
		realIP string
		want   string
	}{
		{"direct", "203.0.113.7:5000", "", "", "203.0.113.7"},
		{"untrusted forwarder", "203.0.113.7:5000", "198.51.100.1", "", "203.0.113.7"},
		{"trusted forwarder", "10.1.2.3:5000", "198.51.100.1, 10.1.2.3", "", "198.51.100.1"},
		{"trusted real ip", "127.0.0.1:5000", "", "198.51.100.2", "198.51.100.2"},
		{"bad forwarded value", "10.1.2.3:5000", "not-an-ip", "", "10.1.2.3"},
		{"spoofed leftmost entry", "10.1.2.3:5000", "1.1.1.1, 198.51.100.1", "", "198.51.100.1"},
		{"all hops trusted", "10.1.2.3:5000", "192.168.1.5", "198.51.100.2", "198.51.100.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP = %q, want %q", got, tt.want)
			}
		})
	}

	if err := d.AddTrustedProxy("bogus"); err == nil {
		t.Error("AddTrustedProxy accepted an invalid CIDR")
	}
}

func TestDetector_MiddlewareServes(t *testing.T) {
	d := NewDetector()
	called := false
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if !called {
		t.Fatal("suspicious request was not passed on")
	}
	if d.GetMetrics().SuspiciousRequests != 1 {
		t.Fatal("suspicious request not counted")
	}
}

func TestDetector_Inspect(t *testing.T) {
	d := NewDetector()
	long := httptest.NewRequest(http.MethodGet, "/api/transactions?search="+strings.Repeat("a", maxURLLength), nil)
	chain := httptest.NewRequest(http.MethodGet, "/", nil)
	chain.Header.Set("X-Forwarded-For", "1.1.1.1,2.2.2.2,3.3.3.3,4.4.4.4,5.5.5.5,6.6.6.6")

	tests := []struct {
		name string
		req  *http.Request
		want Reason
	}{
		{"oversize", long, ReasonOversize},
		{"proxy chain", chain, ReasonProxyChain},
		{"clean", httptest.NewRequest(http.MethodPost, "/api/transactions", nil), ReasonNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Inspect(tt.req); got != tt.want {
				t.Errorf("Inspect = %q, want %q", got, tt.want)
			}
		})
	}
	if d.GetMetrics().SuspiciousRequests != 0 {
		t.Error("Inspect must not count")
	}
}
