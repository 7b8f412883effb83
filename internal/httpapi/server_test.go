package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/juju/clock/testclock"
	"github.com/prometheus/client_golang/prometheus"

	"webHostingPortal/internal/checkout"
	"webHostingPortal/internal/mailer"
	"webHostingPortal/internal/portal"
	"webHostingPortal/internal/provisioning"
	"webHostingPortal/internal/review"
	"webHostingPortal/internal/settings"
	"webHostingPortal/internal/telemetry"
	"webHostingPortal/internal/testutil"
	"webHostingPortal/models"
	"webHostingPortal/repository"
)

const (
	testSecret   = "http-test-secret"
	adminEmail   = "admin@example.com"
	adminPass    = "adminpass"
	customerPass = "secret1"
)

type testAPI struct {
	t        *testing.T
	srv      *Server
	outbox   *mailer.Outbox
	settings *settings.Store
}

func newTestAPI(t *testing.T, name string, limiter *Limiter) *testAPI {
	t.Helper()
	ctx := context.Background()
	d := testutil.OpenInMemoryDB(t, name)
	users := repository.NewUserRepository(d)
	admins := repository.NewAdminRepository(d)
	plans := repository.NewPlanRepository(d)
	svcs := repository.NewServiceRepository(d)
	subs := repository.NewSubdomainRepository(d)
	tickets := repository.NewTicketRepository(d)
	st := settings.NewStore(repository.NewSettingsRepository(d), nil, time.Nanosecond)
	if _, err := portal.Seed(ctx, plans, admins, st, portal.SeedInput{AdminEmail: adminEmail, AdminPassword: adminPass}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	metrics := telemetry.NewCollector()
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics)
	outbox := &mailer.Outbox{}
	audit := portal.NewAudit(repository.NewAuthLogRepository(d), metrics)
	srv := New(Deps{
		Accounts:    portal.NewAccounts(users, admins, audit, st, outbox, nil, portal.AccountsConfig{AppName: "RazorHost", JWTSecret: testSecret}, nil, metrics),
		Catalog:     portal.NewCatalog(plans, st),
		Services:    portal.NewServices(svcs, users, subs),
		Support:     portal.NewSupport(tickets, svcs, review.Heuristic{}),
		Dashboard:   portal.NewDashboard(users, tickets, plans, svcs),
		Audit:       audit,
		Checkout:    checkout.New(d, repository.NewCheckoutRepository(d), plans, svcs, st, metrics),
		Provisioner: provisioning.New(st, review.NewBlocklist(), subs, svcs, provisioning.CpanelFactory(nil), metrics),
		Settings:    st,
		Admins:      admins,
		Metrics:     metrics,
		Gatherer:    reg,
		Limiter:     limiter,
		JWTSecret:   testSecret,
	})
	return &testAPI{t: t, srv: srv, outbox: outbox, settings: st}
}

type response struct {
	code   int
	header http.Header
	body   map[string]any
}

func (a *testAPI) do(method, path, token string, body any) response {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		testutil.WithBearer(req, token)
	}
	rec := httptest.NewRecorder()
	a.srv.ServeHTTP(rec, req)
	out := response{code: rec.Code, header: rec.Header(), body: map[string]any{}}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out.body); err != nil {
			a.t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return out
}

func (a *testAPI) expect(r response, code int) response {
	a.t.Helper()
	if r.code != code {
		a.t.Fatalf("want %d, got %d: %v", code, r.code, r.body)
	}
	return r
}

var sixDigits = regexp.MustCompile(`\b\d{6}\b`)

func (a *testAPI) lastCode() string {
	a.t.Helper()
	m, ok := a.outbox.Last()
	if !ok {
		a.t.Fatalf("no mail sent")
	}
	return sixDigits.FindString(m.Body)
}

// signUp registers, activates and signs in a customer and returns the token.
func (a *testAPI) signUp(email string) string {
	a.t.Helper()
	a.expect(a.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "password": customerPass, "confirmPassword": customerPass}), http.StatusCreated)
	a.expect(a.do(http.MethodPost, "/api/auth/activate", "", map[string]string{"email": email, "code": a.lastCode()}), http.StatusOK)
	login := a.expect(a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": customerPass}), http.StatusOK)
	if login.body["nextStep"] != "verify" {
		a.t.Fatalf("expected verify step: %v", login.body)
	}
	done := a.expect(a.do(http.MethodPost, "/api/auth/verify-login", "", map[string]string{"userId": login.body["userId"].(string), "code": a.lastCode()}), http.StatusOK)
	return done.body["token"].(string)
}

func (a *testAPI) adminToken() string {
	a.t.Helper()
	r := a.expect(a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": adminEmail, "password": adminPass}), http.StatusOK)
	return r.body["token"].(string)
}

func TestPublicRoutes(t *testing.T) {
	a := newTestAPI(t, "http_public", nil)
	r := a.expect(a.do(http.MethodGet, "/api/storefront", "", nil), http.StatusOK)
	if plans := r.body["plans"].([]any); len(plans) != 3 {
		t.Fatalf("want 3 seeded plans, got %d", len(plans))
	}
	if r.header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}
	a.expect(a.do(http.MethodGet, "/api/plans/plan-basic", "", nil), http.StatusOK)
	a.expect(a.do(http.MethodGet, "/api/plans/nope", "", nil), http.StatusNotFound)
	a.expect(a.do(http.MethodGet, "/healthz", "", nil), http.StatusOK)

	bad := a.expect(a.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "x", "password": "1"}), http.StatusBadRequest)
	if bad.body["isError"] != true || bad.body["fields"] == nil {
		t.Fatalf("expected form state with fields: %v", bad.body)
	}
	a.expect(a.do(http.MethodGet, "/api/me/services", "", nil), http.StatusUnauthorized)
	a.expect(a.do(http.MethodGet, "/api/me/services", "garbage", nil), http.StatusUnauthorized)
}

func TestCustomerJourney(t *testing.T) {
	a := newTestAPI(t, "http_customer", nil)
	token := a.signUp("buyer@example.com")

	sess := a.expect(a.do(http.MethodPost, "/api/me/checkouts", token, map[string]string{"planId": "plan-basic"}), http.StatusCreated)
	id := sess.body["checkout"].(map[string]any)["id"].(string)
	a.expect(a.do(http.MethodPost, "/api/me/checkouts/"+id+"/payment", token, map[string]string{"method": models.PaymentFakeGateway}), http.StatusOK)
	done := a.expect(a.do(http.MethodPost, "/api/me/checkouts/"+id+"/confirm", token, nil), http.StatusOK)
	svc := done.body["service"].(map[string]any)
	if svc["status"] != string(models.ServiceStatusActive) {
		t.Fatalf("service not active: %v", svc)
	}
	a.expect(a.do(http.MethodPost, "/api/me/checkouts/"+id+"/cancel", token, nil), http.StatusBadRequest)

	list := a.expect(a.do(http.MethodGet, "/api/me/services", token, nil), http.StatusOK)
	if n := len(list.body["services"].([]any)); n != 1 {
		t.Fatalf("want 1 service, got %d", n)
	}

	// Seeded DNS settings run in test mode.
	sub := a.expect(a.do(http.MethodPost, "/api/me/subdomains", token, map[string]string{"subdomain": "my-site", "serviceId": svc["id"].(string)}), http.StatusCreated)
	if !strings.HasPrefix(sub.body["message"].(string), "(Test Mode) ") || sub.body["subdomain"] != "my-site.aquahost.app" {
		t.Fatalf("unexpected subdomain result: %v", sub.body)
	}
	taken := a.expect(a.do(http.MethodPost, "/api/me/subdomains", token, map[string]string{"subdomain": "my-site"}), http.StatusOK)
	if taken.body["success"] != false || taken.body["isError"] != true {
		t.Fatalf("second request should be rejected: %v", taken.body)
	}
	a.expect(a.do(http.MethodGet, "/api/me/cpanel?domain=my-site.aquahost.app", token, nil), http.StatusOK)
	other := a.signUp("other@example.com")
	a.expect(a.do(http.MethodGet, "/api/me/cpanel?domain=my-site.aquahost.app", other, nil), http.StatusForbidden)

	tk := a.expect(a.do(http.MethodPost, "/api/me/tickets", token, map[string]string{"title": "Site is down", "description": "My website returns 502 since this morning."}), http.StatusCreated)
	ticket := tk.body["ticket"].(map[string]any)
	if ticket["userType"] != models.UserTypePaying {
		t.Fatalf("paid customer expected: %v", ticket)
	}
	a.expect(a.do(http.MethodPost, "/api/me/tickets/"+ticket["id"].(string)+"/replies", token, map[string]string{"message": "Any update?"}), http.StatusCreated)
	a.expect(a.do(http.MethodGet, "/api/me/tickets/"+ticket["id"].(string), other, nil), http.StatusNotFound)
}

type orderQuery struct {
	Status   []string `url:"status,comma,omitempty"`
	PageSize int      `url:"pageSize,omitempty"`
}

func TestAdminRoutes(t *testing.T) {
	a := newTestAPI(t, "http_admin", nil)
	customer := a.signUp("c@example.com")
	a.expect(a.do(http.MethodGet, "/api/admin/dashboard", customer, nil), http.StatusForbidden)

	admin := a.adminToken()
	dash := a.expect(a.do(http.MethodGet, "/api/admin/dashboard", admin, nil), http.StatusOK)
	if dash.body["totalUsers"].(float64) != 1 || dash.body["totalPlans"].(float64) != 3 {
		t.Fatalf("dashboard: %v", dash.body)
	}
	// Admin sessions never pass the customer gate.
	a.expect(a.do(http.MethodGet, "/api/me/services", admin, nil), http.StatusForbidden)

	sess := a.expect(a.do(http.MethodPost, "/api/me/checkouts", customer, map[string]string{"planId": "plan-premium"}), http.StatusCreated)
	id := sess.body["checkout"].(map[string]any)["id"].(string)
	a.expect(a.do(http.MethodPost, "/api/me/checkouts/"+id+"/payment", customer, map[string]string{"method": models.PaymentFakeGateway}), http.StatusOK)
	a.expect(a.do(http.MethodPost, "/api/me/checkouts/"+id+"/confirm", customer, nil), http.StatusOK)

	v, err := query.Values(orderQuery{Status: []string{"Active", "Pending"}, PageSize: 10})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	orders := a.expect(a.do(http.MethodGet, "/api/admin/orders?"+v.Encode(), admin, nil), http.StatusOK)
	list := orders.body["orders"].([]any)
	if len(list) != 1 {
		t.Fatalf("want 1 order, got %v", orders.body)
	}
	orderID := list[0].(map[string]any)["id"].(string)
	a.expect(a.do(http.MethodPatch, "/api/admin/orders/"+orderID, admin, map[string]string{"status": "Suspended"}), http.StatusOK)
	a.expect(a.do(http.MethodPatch, "/api/admin/orders/"+orderID, admin, map[string]string{"status": "Nope"}), http.StatusBadRequest)
	a.expect(a.do(http.MethodGet, "/api/admin/orders?from=yesterday", admin, nil), http.StatusBadRequest)

	plan := a.expect(a.do(http.MethodPost, "/api/admin/plans", admin, map[string]any{"name": "Ultra", "price": 30, "websites": -1, "storage": 50000, "features": []string{"Everything"}}), http.StatusCreated)
	planID := plan.body["plan"].(map[string]any)["id"].(string)
	a.expect(a.do(http.MethodDelete, "/api/admin/plans/"+planID, admin, nil), http.StatusOK)

	a.expect(a.do(http.MethodGet, "/api/admin/settings/bogus", admin, nil), http.StatusNotFound)
	bad := a.expect(a.do(http.MethodPut, "/api/admin/settings/security", admin, map[string]any{"ddosProtectionLevel": "extreme"}), http.StatusBadRequest)
	if bad.body["fields"] == nil {
		t.Fatalf("expected field errors: %v", bad.body)
	}
	a.expect(a.do(http.MethodPut, "/api/admin/settings/smtp", admin, map[string]any{"smtpHost": "smtp.example.com", "smtpPort": 587, "smtpUser": "mailer@example.com", "smtpPass": "hunter2"}), http.StatusOK)
	smtp := a.expect(a.do(http.MethodGet, "/api/admin/settings/smtp", admin, nil), http.StatusOK)
	if _, leaked := smtp.body["settings"].(map[string]any)["smtpPass"]; leaked {
		t.Fatalf("smtp password leaked: %v", smtp.body)
	}

	test := a.expect(a.do(http.MethodPost, "/api/admin/dns/test", admin, map[string]string{"subdomain": "probe"}), http.StatusOK)
	if test.body["success"] != true || test.body["isError"] != false {
		t.Fatalf("dns test: %v", test.body)
	}

	logs := a.expect(a.do(http.MethodGet, "/api/admin/auth-logs", admin, nil), http.StatusOK)
	if len(logs.body["logs"].([]any)) == 0 {
		t.Fatalf("expected auth logs")
	}
	a.expect(a.do(http.MethodDelete, "/api/admin/auth-logs", admin, nil), http.StatusOK)
	a.expect(a.do(http.MethodGet, "/api/admin/auth-logs/multi-login", admin, nil), http.StatusOK)

	tk := a.expect(a.do(http.MethodPost, "/api/me/tickets", customer, map[string]string{"title": "Question here", "description": "How do I add a database to my plan?"}), http.StatusCreated)
	tid := tk.body["ticket"].(map[string]any)["id"].(string)
	auto := a.expect(a.do(http.MethodPost, "/api/admin/tickets/auto-reply", admin, nil), http.StatusOK)
	if auto.body["count"].(float64) != 1 {
		t.Fatalf("auto reply: %v", auto.body)
	}
	got := a.expect(a.do(http.MethodGet, "/api/admin/tickets/"+tid, admin, nil), http.StatusOK)
	if got.body["ticket"].(map[string]any)["status"] != string(models.TicketStatusAnswered) {
		t.Fatalf("ticket not answered: %v", got.body)
	}
	a.expect(a.do(http.MethodDelete, "/api/admin/tickets", admin, nil), http.StatusOK)
}

func TestMaintenanceGate(t *testing.T) {
	ctx := context.Background()
	a := newTestAPI(t, "http_maintenance", nil)
	token := a.signUp("m@example.com")

	if err := a.settings.Put(ctx, models.SectionMaintenance, models.MaintenanceSettings{Enabled: true, Type: models.MaintenanceFull, FullMessage: "Back soon."}); err != nil {
		t.Fatalf("put: %v", err)
	}
	r := a.expect(a.do(http.MethodGet, "/api/me/services", token, nil), http.StatusServiceUnavailable)
	if r.body["message"] != "Back soon." {
		t.Fatalf("unexpected body %v", r.body)
	}
	// Public pages and the admin desk stay up.
	a.expect(a.do(http.MethodGet, "/api/storefront", "", nil), http.StatusOK)
	a.expect(a.do(http.MethodGet, "/api/admin/dashboard", a.adminToken(), nil), http.StatusOK)
	status := a.expect(a.do(http.MethodGet, "/api/maintenance", "", nil), http.StatusOK)
	if status.body["message"] != "Back soon." {
		t.Fatalf("status: %v", status.body)
	}

	if err := a.settings.Put(ctx, models.SectionMaintenance, models.MaintenanceSettings{Enabled: true, Type: models.MaintenancePartial, PartialMessage: "Checkout is slow."}); err != nil {
		t.Fatalf("put: %v", err)
	}
	r = a.expect(a.do(http.MethodGet, "/api/me/services", token, nil), http.StatusOK)
	if r.header.Get(maintenanceNoticeHeader) != "Checkout is slow." {
		t.Fatalf("missing notice header: %v", r.header)
	}
}

func TestRateLimit(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	a := newTestAPI(t, "http_ratelimit", NewLimiter(clk))
	if err := a.settings.Put(context.Background(), models.SectionSecurity, models.SecuritySettings{DDoSProtectionLevel: models.DDoSMaximum}); err != nil {
		t.Fatalf("put: %v", err)
	}
	burst := limitFor(models.DDoSMaximum).burst
	for i := 0; i < burst; i++ {
		a.expect(a.do(http.MethodGet, "/api/plans", "", nil), http.StatusOK)
	}
	r := a.expect(a.do(http.MethodGet, "/api/plans", "", nil), http.StatusTooManyRequests)
	if r.header.Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
	clk.Advance(time.Second)
	a.expect(a.do(http.MethodGet, "/api/plans", "", nil), http.StatusOK)

	a.expect(a.do(http.MethodGet, "/metrics", "", nil), http.StatusOK)
}

func TestLimiter_LevelChangeAndSweep(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	l := NewLimiter(clk)
	for i := 0; i < limitFor(models.DDoSMaximum).burst; i++ {
		if !l.Allow("1.1.1.1", models.DDoSMaximum) {
			t.Fatalf("request %d should pass", i)
		}
	}
	if l.Allow("1.1.1.1", models.DDoSMaximum) {
		t.Fatalf("bucket should be empty")
	}
	if !l.Allow("1.1.1.1", models.DDoSNormal) {
		t.Fatalf("level change should reset the bucket")
	}
	l.Allow("2.2.2.2", models.DDoSNormal)
	clk.Advance(l.IdleTTL + time.Second)
	l.Allow("3.3.3.3", models.DDoSNormal)
	if n := l.Len(); n != 1 {
		t.Fatalf("idle clients should be swept, have %d", n)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(r, false); got != "10.0.0.1" {
		t.Fatalf("untrusted: %s", got)
	}
	if got := clientIP(r, true); got != "203.0.113.9" {
		t.Fatalf("trusted: %s", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := New(Deps{JWTSecret: testSecret, AllowedOrigins: []string{"https://app.example"}})

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/me/services", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		req.Header.Set("Access-Control-Request-Headers", "Authorization")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("https://app.example")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d: %s", rec.Code, rec.Body.String())
	}
	h := rec.Header()
	if h.Get("Access-Control-Allow-Origin") != "https://app.example" || !strings.Contains(h.Get("Access-Control-Allow-Headers"), "Authorization") {
		t.Fatalf("missing CORS headers: %v", h)
	}
	if !strings.Contains(h.Get("Access-Control-Allow-Methods"), http.MethodGet) {
		t.Fatalf("missing allowed methods: %v", h)
	}

	rec = preflight("https://evil.example")
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unknown origin must not be allowed: %v", rec.Header())
	}
}

func TestAdvertisementRoutes(t *testing.T) {
	a := newTestAPI(t, "http_ads", nil)
	admin := a.adminToken()

	a.expect(a.do(http.MethodPost, "/api/admin/advertisements", "", map[string]any{"name": "Sale"}), http.StatusUnauthorized)
	bad := a.expect(a.do(http.MethodPost, "/api/admin/advertisements", admin, map[string]any{"name": "Sale", "location": "home", "type": "closable"}), http.StatusBadRequest)
	if bad.body["fields"].(map[string]any)["closableAdCode"] == nil {
		t.Fatalf("expected ad code error: %v", bad.body)
	}
	saved := a.expect(a.do(http.MethodPost, "/api/admin/advertisements", admin, map[string]any{
		"name": "Spring Sale", "enabled": true, "location": "home", "type": "floating", "floatingAdMessage": "Two months free",
	}), http.StatusOK)
	id := saved.body["advertisement"].(map[string]any)["id"].(string)

	active := a.expect(a.do(http.MethodGet, "/api/advertisements?location=home", "", nil), http.StatusOK)
	if n := len(active.body["advertisements"].([]any)); n != 1 {
		t.Fatalf("want 1 active ad, got %v", active.body)
	}
	a.expect(a.do(http.MethodGet, "/api/advertisements", "", nil), http.StatusBadRequest)

	a.expect(a.do(http.MethodPut, "/api/admin/advertisements/"+id, admin, map[string]any{
		"name": "Spring Sale", "enabled": false, "location": "home", "type": "floating", "floatingAdMessage": "Two months free",
	}), http.StatusOK)
	active = a.expect(a.do(http.MethodGet, "/api/advertisements?location=home", "", nil), http.StatusOK)
	if n := len(active.body["advertisements"].([]any)); n != 0 {
		t.Fatalf("disabled ad still served: %v", active.body)
	}
	all := a.expect(a.do(http.MethodGet, "/api/admin/settings/advertisements", admin, nil), http.StatusOK)
	if n := len(all.body["settings"].(map[string]any)["ads"].([]any)); n != 1 {
		t.Fatalf("update must not duplicate: %v", all.body)
	}

	a.expect(a.do(http.MethodDelete, "/api/admin/advertisements/"+id, admin, nil), http.StatusOK)
	a.expect(a.do(http.MethodDelete, "/api/admin/advertisements/"+id, admin, nil), http.StatusNotFound)
}
