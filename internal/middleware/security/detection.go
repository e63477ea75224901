package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"dompet/internal/log"
)

// Reason names why a request was flagged.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonPathProbe  Reason = "path_probe"
	ReasonInjection  Reason = "injection"
	ReasonScanner    Reason = "scanner_agent"
	ReasonMethod     Reason = "method"
	ReasonOversize   Reason = "oversize"
	ReasonProxyChain Reason = "proxy_chain"
)

const (
	maxURLLength     = 2048
	maxForwardedHops = 5
)

var (
	// Paths nobody using the API asks for.
	probePaths = []string{
		"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "wp-login",
		"phpmyadmin", "admin.php", "config.php", "etc/passwd", "cmd.exe",
	}
	// Matched against the decoded query. Transaction search is free text, so
	// only fragments that never show up in a merchant name or note are listed.
	injectionMarkers = []string{
		"<script", "javascript:", "eval(", "union select", "' or '1'='1",
		"; drop table", "sleep(", "../",
	}
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab", "nuclei",
	}
	unusualMethods = map[string]bool{"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true}
)

type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
	ByReason           map[Reason]int64
}

// Detector flags requests that look like probes and resolves the client IP
// behind trusted proxies.
type Detector struct {
	suspicious atomic.Int64
	invalidIPs atomic.Int64

	mu             sync.RWMutex
	byReason       map[Reason]int64
	trustedProxies []*net.IPNet
}

// NewDetector trusts loopback and the private ranges as proxies.
func NewDetector() *Detector {
	d := &Detector{byReason: make(map[Reason]int64)}
	for _, cidr := range []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		if err := d.AddTrustedProxy(cidr); err != nil {
			panic(err)
		}
	}
	return d
}

// Inspect returns the first reason r looks suspicious, or ReasonNone.
func (d *Detector) Inspect(r *http.Request) Reason {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	if decoded, err := url.QueryUnescape(query); err == nil {
		query = decoded
	}
	agent := strings.ToLower(r.Header.Get("User-Agent"))

	switch {
	case unusualMethods[r.Method]:
		return ReasonMethod
	case len(r.URL.RequestURI()) > maxURLLength:
		return ReasonOversize
	case containsAny(path, probePaths):
		return ReasonPathProbe
	case containsAny(query, injectionMarkers):
		return ReasonInjection
	case containsAny(agent, scannerAgents):
		return ReasonScanner
	case strings.Count(r.Header.Get("X-Forwarded-For"), ",") >= maxForwardedHops:
		return ReasonProxyChain
	}
	return ReasonNone
}

// DetectSuspiciousRequest inspects r and counts it when flagged.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	return d.check(r) != ReasonNone
}

func (d *Detector) check(r *http.Request) Reason {
	reason := d.Inspect(r)
	if reason != ReasonNone {
		d.suspicious.Add(1)
		d.mu.Lock()
		d.byReason[reason]++
		d.mu.Unlock()
	}
	return reason
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the address of the client. Forwarding headers are
// read only when the direct peer is a trusted proxy; X-Forwarded-For is walked
// from the right, skipping trusted hops, so a client cannot pick its own IP by
// prepending entries.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	direct, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		direct = r.RemoteAddr
	}
	ip := net.ParseIP(direct)
	if ip == nil {
		d.invalidIPs.Add(1)
		return direct
	}
	if !d.isTrustedProxy(ip) {
		return direct
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := net.ParseIP(strings.TrimSpace(hops[i]))
			if hop == nil {
				d.invalidIPs.Add(1)
				return direct
			}
			if !d.isTrustedProxy(hop) {
				return hop.String()
			}
		}
	}
	if realIP := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); realIP != nil {
		return realIP.String()
	}
	return direct
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	d.mu.RLock()
	byReason := make(map[Reason]int64, len(d.byReason))
	for k, v := range d.byReason {
		byReason[k] = v
	}
	d.mu.RUnlock()
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIPs.Load(),
		ByReason:           byReason,
	}
}

// AddTrustedProxy trusts forwarding headers set by peers in cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.mu.Lock()
	d.trustedProxies = append(d.trustedProxies, network)
	d.mu.Unlock()
	return nil
}

// Middleware logs requests that look like probes. They are still served;
// blocking is left to routing and authentication.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := d.check(r); reason != ReasonNone {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				log.FieldComponent, log.ComponentSecurity,
				"reason", string(reason),
				log.FieldClientIP, d.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}
