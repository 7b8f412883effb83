// Package httpapi exposes the storefront, customer dashboard and admin
// operations as a JSON API.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/auth"
	"webHostingPortal/internal/checkout"
	"webHostingPortal/internal/logging"
	"webHostingPortal/internal/portal"
	"webHostingPortal/internal/provisioning"
	"webHostingPortal/internal/settings"
	"webHostingPortal/internal/telemetry"
)

// Deps are the services the API is built on.
type Deps struct {
	Accounts    *portal.Accounts
	Catalog     *portal.Catalog
	Services    *portal.Services
	Support     *portal.Support
	Dashboard   *portal.Dashboard
	Audit       *portal.Audit
	Checkout    *checkout.Service
	Provisioner *provisioning.Provisioner
	Settings    *settings.Store
	Admins      auth.AdminLookup

	Metrics  *telemetry.Collector
	Gatherer prometheus.Gatherer // nil disables /metrics
	Limiter  *Limiter

	JWTSecret      string
	TrustProxy     bool
	AllowedOrigins []string
}

type Server struct {
	deps   Deps
	router *mux.Router
	log    *clog.Logger
}

func New(deps Deps) *Server {
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NewCollector()
	}
	if deps.Limiter == nil {
		deps.Limiter = NewLimiter(nil)
	}
	s := &Server{deps: deps, router: mux.NewRouter(), log: logging.For("http")}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, formState{Message: "Not found.", IsError: true})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, formState{Message: "Method not allowed.", IsError: true})
	})
	r.Use(s.securityHeaders, s.cors, s.instrument)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	// Routes are method-restricted and mux only runs middleware on a match,
	// so preflights need a route of their own ahead of /api.
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(s.handlePreflight)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimit, auth.HTTPMiddleware(s.deps.JWTSecret, s.authError))

	api.HandleFunc("/storefront", s.handleStorefront).Methods(http.MethodGet)
	api.HandleFunc("/plans", s.handleListPlans).Methods(http.MethodGet)
	api.HandleFunc("/plans/{id}", s.handleGetPlan).Methods(http.MethodGet)
	api.HandleFunc("/maintenance", s.handleMaintenanceStatus).Methods(http.MethodGet)
	api.HandleFunc("/advertisements", s.handleActiveAds).Methods(http.MethodGet)

	a := api.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	a.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	a.HandleFunc("/verify-login", s.handleVerifyLogin).Methods(http.MethodPost)
	a.HandleFunc("/activate", s.handleActivate).Methods(http.MethodPost)
	a.HandleFunc("/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)
	a.HandleFunc("/reset-password", s.handleResetPassword).Methods(http.MethodPost)

	me := api.PathPrefix("/me").Subrouter()
	me.Use(s.requireCustomer, s.maintenanceGate)
	me.HandleFunc("/services", s.handleMyServices).Methods(http.MethodGet)
	me.HandleFunc("/services/{id}", s.handleMyService).Methods(http.MethodGet)
	me.HandleFunc("/checkouts", s.handleStartCheckout).Methods(http.MethodPost)
	me.HandleFunc("/checkouts/{id}", s.handleGetCheckout).Methods(http.MethodGet)
	me.HandleFunc("/checkouts/{id}/payment", s.handleSelectPayment).Methods(http.MethodPost)
	me.HandleFunc("/checkouts/{id}/confirm", s.handleConfirmCheckout).Methods(http.MethodPost)
	me.HandleFunc("/checkouts/{id}/cancel", s.handleCancelCheckout).Methods(http.MethodPost)
	me.HandleFunc("/subdomains", s.handleMySubdomains).Methods(http.MethodGet)
	me.HandleFunc("/subdomains", s.handleCreateSubdomain).Methods(http.MethodPost)
	me.HandleFunc("/cpanel", s.handlePanelAccess).Methods(http.MethodGet)
	me.HandleFunc("/tickets", s.handleMyTickets).Methods(http.MethodGet)
	me.HandleFunc("/tickets", s.handleSubmitTicket).Methods(http.MethodPost)
	me.HandleFunc("/tickets/{id}", s.handleMyTicket).Methods(http.MethodGet)
	me.HandleFunc("/tickets/{id}/replies", s.handleUserReply).Methods(http.MethodPost)

	ad := api.PathPrefix("/admin").Subrouter()
	ad.Use(s.requireAdmin)
	ad.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	ad.HandleFunc("/plans", s.handleSavePlan).Methods(http.MethodPost)
	ad.HandleFunc("/plans/{id}", s.handleSavePlan).Methods(http.MethodPut)
	ad.HandleFunc("/plans/{id}", s.handleDeletePlan).Methods(http.MethodDelete)
	ad.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	ad.HandleFunc("/orders/{id}", s.handleUpdateOrder).Methods(http.MethodPatch)
	ad.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	ad.HandleFunc("/users/{id}", s.handleGetUser).Methods(http.MethodGet)
	ad.HandleFunc("/users/{id}", s.handleUpdateUser).Methods(http.MethodPatch)
	ad.HandleFunc("/tickets", s.handleAdminTickets).Methods(http.MethodGet)
	ad.HandleFunc("/tickets", s.handleClearTickets).Methods(http.MethodDelete)
	ad.HandleFunc("/tickets/auto-reply", s.handleBulkAutoReply).Methods(http.MethodPost)
	ad.HandleFunc("/tickets/{id}", s.handleAdminTicket).Methods(http.MethodGet)
	ad.HandleFunc("/tickets/{id}", s.handleUpdateTicket).Methods(http.MethodPatch)
	ad.HandleFunc("/tickets/{id}/replies", s.handleAdminReply).Methods(http.MethodPost)
	ad.HandleFunc("/settings/{section}", s.handleGetSettings).Methods(http.MethodGet)
	ad.HandleFunc("/settings/{section}", s.handleSaveSettings).Methods(http.MethodPut)
	ad.HandleFunc("/advertisements", s.handleSaveAd).Methods(http.MethodPost)
	ad.HandleFunc("/advertisements/{id}", s.handleSaveAd).Methods(http.MethodPut)
	ad.HandleFunc("/advertisements/{id}", s.handleDeleteAd).Methods(http.MethodDelete)
	ad.HandleFunc("/dns/test", s.handleDNSTest).Methods(http.MethodPost)
	ad.HandleFunc("/auth-logs", s.handleAuthLogs).Methods(http.MethodGet)
	ad.HandleFunc("/auth-logs", s.handleClearAuthLogs).Methods(http.MethodDelete)
	ad.HandleFunc("/auth-logs/multi-login", s.handleMultiLogin).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) authError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, apperrors.Wrap(apperrors.CodeUnauthenticated, "Your session has expired. Please sign in again.", err))
}

func (s *Server) requireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := auth.RequireCustomer(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := auth.RequireAdmin(r.Context(), s.deps.Admins); err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.deps.AllowedOrigins))
	for _, o := range s.deps.AllowedOrigins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || !(allowed[origin] || allowed["*"]) {
			next.ServeHTTP(w, r)
			return
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE")
		h.Set("Access-Control-Expose-Headers", maintenanceNoticeHeader+", Retry-After")
		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", "600")
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.code = code
	rec.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency by route template so ids do
// not explode label cardinality.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.deps.Metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.code)).Inc()
		s.deps.Metrics.HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		s.log.Debug("request", "method", r.Method, "route", route, "code", rec.code, "took", time.Since(start))
	})
}
