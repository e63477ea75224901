package security

import (
	"net/http"
	"strconv"
	"time"
)

// HeadersConfig lists the response headers the API sets. Empty values are
// skipped.
type HeadersConfig struct {
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeOptions    string
	ReferrerPolicy        string
	PermissionsPolicy     string
	CrossOriginOpener     string
	CrossOriginResource   string
	CacheControl          string

	// HSTS is sent on TLS requests only. Zero disables it.
	HSTS                  time.Duration
	HSTSIncludeSubdomains bool
}

// DefaultHeadersConfig suits a JSON API: nothing may frame, script or cache
// a response carrying balances.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		FrameOptions:          "DENY",
		ContentTypeOptions:    "nosniff",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:     "same-origin",
		CrossOriginResource:   "same-origin",
		CacheControl:          "no-store",
		HSTS:                  365 * 24 * time.Hour,
		HSTSIncludeSubdomains: true,
	}
}

type header struct{ name, value string }

// HeadersMiddleware writes a fixed header set, computed once, on every response.
type HeadersMiddleware struct {
	always []header
	hsts   string
}

func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{}
	for _, hd := range []header{
		{"Content-Security-Policy", cfg.ContentSecurityPolicy},
		{"X-Frame-Options", cfg.FrameOptions},
		{"X-Content-Type-Options", cfg.ContentTypeOptions},
		{"Referrer-Policy", cfg.ReferrerPolicy},
		{"Permissions-Policy", cfg.PermissionsPolicy},
		{"Cross-Origin-Opener-Policy", cfg.CrossOriginOpener},
		{"Cross-Origin-Resource-Policy", cfg.CrossOriginResource},
		{"Cache-Control", cfg.CacheControl},
	} {
		if hd.value != "" {
			h.always = append(h.always, hd)
		}
	}
	if secs := int64(cfg.HSTS / time.Second); secs > 0 {
		h.hsts = "max-age=" + strconv.FormatInt(secs, 10)
		if cfg.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dst := w.Header()
		for _, hd := range h.always {
			dst.Set(hd.name, hd.value)
		}
		if r.TLS != nil && h.hsts != "" {
			dst.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
