package httpapi

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
	"golang.org/x/time/rate"

	"webHostingPortal/models"
)

// levelLimit is the sustained request rate and burst allowed per client IP.
type levelLimit struct {
	every rate.Limit
	burst int
}

var ddosLimits = map[string]levelLimit{
	models.DDoSNormal:   {every: 20, burst: 60},
	models.DDoSAdvanced: {every: 10, burst: 30},
	models.DDoSMaximum:  {every: 3, burst: 10},
}

func limitFor(level string) levelLimit {
	if l, ok := ddosLimits[level]; ok {
		return l
	}
	return ddosLimits[models.DDoSNormal]
}

type clientLimiter struct {
	lim   *rate.Limiter
	level string
	seen  time.Time
}

// Limiter keeps one token bucket per client IP. Buckets are rebuilt when the
// protection level changes and dropped after IdleTTL without traffic.
type Limiter struct {
	IdleTTL time.Duration

	clock   clock.Clock
	mu      sync.Mutex
	clients map[string]*clientLimiter
	swept   time.Time
}

func NewLimiter(clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Limiter{IdleTTL: 10 * time.Minute, clock: clk, clients: map[string]*clientLimiter{}}
}

// Allow spends one token for ip under the given level.
func (l *Limiter) Allow(ip, level string) bool {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.swept) > l.IdleTTL {
		for k, c := range l.clients {
			if now.Sub(c.seen) > l.IdleTTL {
				delete(l.clients, k)
			}
		}
		l.swept = now
	}
	c, ok := l.clients[ip]
	if !ok || c.level != level {
		lim := limitFor(level)
		c = &clientLimiter{lim: rate.NewLimiter(lim.every, lim.burst), level: level}
		l.clients[ip] = c
	}
	c.seen = now
	return c.lim.AllowN(now, 1)
}

// Len reports how many clients are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sec, err := s.deps.Settings.Security(r.Context())
		level := sec.DDoSProtectionLevel
		if err != nil || level == "" {
			level = models.DDoSNormal
		}
		if !s.deps.Limiter.Allow(clientIP(r, s.deps.TrustProxy), level) {
			s.deps.Metrics.RateLimited.WithLabelValues(level).Inc()
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, formState{Message: "Too many requests. Please slow down.", IsError: true})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// maintenanceNoticeHeader carries partial-maintenance and overload notices.
const maintenanceNoticeHeader = "X-Maintenance-Notice"

const defaultFullMessage = "We are currently performing scheduled maintenance. Please check back soon."

// maintenanceGate blocks customer routes in full maintenance and annotates
// them otherwise. Settings read failures let the request through.
func (s *Server) maintenanceGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, err := s.deps.Settings.Maintenance(r.Context())
		if err != nil {
			s.log.Warn("maintenance settings unreadable", "err", err)
			next.ServeHTTP(w, r)
			return
		}
		if m.Enabled && m.Type == models.MaintenanceFull {
			msg := m.FullMessage
			if msg == "" {
				msg = defaultFullMessage
			}
			w.Header().Set("Retry-After", "300")
			writeJSON(w, http.StatusServiceUnavailable, formState{Message: msg, IsError: true})
			return
		}
		if notice := maintenanceNotice(m); notice != "" {
			w.Header().Set(maintenanceNoticeHeader, notice)
		}
		next.ServeHTTP(w, r)
	})
}

func maintenanceNotice(m models.MaintenanceSettings) string {
	var parts []string
	if m.Enabled && m.Type == models.MaintenancePartial && m.PartialMessage != "" {
		parts = append(parts, m.PartialMessage)
	}
	if m.ServerOverloadEnabled && m.ServerOverloadMessage != "" {
		parts = append(parts, m.ServerOverloadMessage)
	}
	return strings.Join(parts, " ")
}

// clientIP prefers the first X-Forwarded-For hop when the proxy is trusted.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
