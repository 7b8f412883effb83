package provisioning

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/cpanel"
	"webHostingPortal/internal/review"
	"webHostingPortal/internal/settings"
	"webHostingPortal/internal/testutil"
	"webHostingPortal/models"
	"webHostingPortal/repository"
)

type fakePanel struct {
	mu       sync.Mutex
	taken    []string
	addCalls int32
	listErr  string // non-empty: list_subdomains answers status 0 with this error
	listDown bool   // list_subdomains answers 503 with a text body
	addFails bool
}

func (f *fakePanel) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "cpanel acct:TOKEN" {
			t.Errorf("unexpected auth header %q", got)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.URL.Path {
		case "/execute/SubDomain/list_subdomains":
			if f.listDown {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("cpsrvd is restarting"))
				return
			}
			if f.listErr != "" {
				_, _ = w.Write([]byte(`{"status":0,"errors":["` + f.listErr + `"]}`))
				return
			}
			var rows []string
			for _, l := range f.taken {
				rows = append(rows, `{"subdomain":"`+l+`","domain":"`+l+`.example.com"}`)
			}
			_, _ = w.Write([]byte(`{"status":1,"data":[` + strings.Join(rows, ",") + `]}`))
		case "/execute/SubDomain/add_subdomain":
			atomic.AddInt32(&f.addCalls, 1)
			if f.addFails {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			f.taken = append(f.taken, r.URL.Query().Get("domain"))
			_, _ = w.Write([]byte(`{"status":1,"data":null}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}
}

type fixture struct {
	p        *Provisioner
	store    *settings.Store
	panel    *fakePanel
	services *repository.ServiceRepository
	subs     *repository.SubdomainRepository
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, name)
	store := settings.NewStore(repository.NewSettingsRepository(d), nil, time.Minute)
	fp := &fakePanel{}
	srv := httptest.NewServer(fp.handler(t))
	t.Cleanup(srv.Close)
	factory := func(cfg cpanel.Config) (Panel, error) {
		cfg.BaseURL = srv.URL
		return cpanel.New(cfg, srv.Client())
	}
	subs := repository.NewSubdomainRepository(d)
	svcs := repository.NewServiceRepository(d)
	return &fixture{
		p:        New(store, review.NewBlocklist(), subs, svcs, factory, nil),
		store:    store,
		panel:    fp,
		services: svcs,
		subs:     subs,
	}
}

func (f *fixture) configure(t *testing.T, dns models.DNSSettings) {
	t.Helper()
	ctx := context.Background()
	if err := f.store.Put(ctx, models.SectionDomain, models.DomainSettings{Domain: "example.com"}); err != nil {
		t.Fatalf("put domain: %v", err)
	}
	if err := f.store.Put(ctx, models.SectionDNS, dns); err != nil {
		t.Fatalf("put dns: %v", err)
	}
}

var liveDNS = models.DNSSettings{AutoDNSEnabled: true, Host: "cp.example.com", Port: 2083, Username: "acct", APIToken: "TOKEN"}

func TestCreate_SettingsGates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "prov_gates")

	res, err := f.p.Create(ctx, Request{UserID: "u1", Label: "myblog"})
	if err != nil || res.Success || res.Message != MsgDomainMissing {
		t.Fatalf("missing domain: %+v %v", res, err)
	}

	f.configure(t, models.DNSSettings{AutoDNSEnabled: false})
	res, _ = f.p.Create(ctx, Request{UserID: "u1", Label: "myblog"})
	if res.Success || res.Message != MsgAutoDNSDisabled {
		t.Fatalf("disabled: %+v", res)
	}

	f.configure(t, models.DNSSettings{AutoDNSEnabled: true, Host: "cp.example.com", Username: "acct"})
	res, _ = f.p.Create(ctx, Request{UserID: "u1", Label: "myblog"})
	if res.Success || !strings.Contains(res.Message, "apiToken: cPanel API token is required.") {
		t.Fatalf("invalid cpanel settings: %+v", res)
	}
}

func TestCreate_ValidationAndReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "prov_validation")
	f.configure(t, liveDNS)

	_, err := f.p.Create(ctx, Request{UserID: "u1", Label: "-bad-"})
	e, ok := apperrors.As(err)
	if !ok || e.Code != apperrors.CodeValidation || e.Fields["subdomain"] == "" {
		t.Fatalf("expected field error, got %v", err)
	}
	res, err := f.p.Create(ctx, Request{UserID: "u1", Label: "pornhub"})
	if err != nil || res.Success || res.Message != MsgNotAllowed {
		t.Fatalf("blocked: %+v %v", res, err)
	}
	if atomic.LoadInt32(&f.panel.addCalls) != 0 {
		t.Fatalf("rejected names must not reach cPanel")
	}
}

func TestCreate_ProvisionsAndLinksService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "prov_success")
	f.configure(t, liveDNS)

	plan := &models.Plan{ID: "p1", Name: "Basic", Price: 5, Websites: 5, StorageMB: 1024, Features: []string{"SSL"}}
	svc, err := f.services.Create(ctx, models.NewServiceFromPlan("u1", plan, models.PaymentFakeGateway, models.ServiceStatusActive))
	if err != nil {
		t.Fatalf("create service: %v", err)
	}

	res, err := f.p.Create(ctx, Request{UserID: "u1", Label: "MyBlog", ServiceID: svc.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !res.Success || res.Message != MsgReady || res.Subdomain != "myblog.example.com" || res.Record == nil {
		t.Fatalf("unexpected result %+v", res)
	}
	got, _ := f.services.GetByID(ctx, svc.ID)
	if got.Subdomain != "myblog.example.com" {
		t.Fatalf("service not linked: %+v", got)
	}

	access, err := f.p.PanelAccess(ctx, "u1", "myblog.example.com")
	if err != nil || access.ID != svc.ID {
		t.Fatalf("access: %+v %v", access, err)
	}
	if _, err := f.p.PanelAccess(ctx, "u2", "myblog.example.com"); apperrors.CodeOf(err) != apperrors.CodePermissionDenied {
		t.Fatalf("foreign access: %v", err)
	}

	// A second request for the same name is refused locally.
	res, _ = f.p.Create(ctx, Request{UserID: "u2", Label: "myblog"})
	if res.Success || res.Message != MsgTaken {
		t.Fatalf("duplicate: %+v", res)
	}

	// Someone else's service cannot be linked.
	if _, err := f.p.Create(ctx, Request{UserID: "u2", Label: "other", ServiceID: svc.ID}); apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("foreign service: %v", err)
	}

	list, _ := f.p.List(ctx, "u1")
	if len(list) != 1 || list[0].FQDN != "myblog.example.com" {
		t.Fatalf("list: %+v", list)
	}
}

func TestCreate_CpanelFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "prov_failures")
	f.configure(t, liveDNS)

	f.panel.taken = []string{"shop"}
	res, _ := f.p.Create(ctx, Request{UserID: "u1", Label: "shop"})
	if res.Success || !res.IsError || res.Message != MsgTaken {
		t.Fatalf("taken on cpanel: %+v", res)
	}

	f.panel.listErr = "Access denied."
	res, _ = f.p.Create(ctx, Request{UserID: "u1", Label: "fresh"})
	if res.Success || res.Message != "Access denied." {
		t.Fatalf("status 0: %+v", res)
	}

	f.panel.listErr = ""
	f.panel.listDown = true
	res, _ = f.p.Create(ctx, Request{UserID: "u1", Label: "fresh"})
	if want := "Could not verify availability. cPanel API responded with status 503: cpsrvd is restarting"; res.Message != want {
		t.Fatalf("http failure: got %q", res.Message)
	}

	f.panel.listDown = false
	f.panel.addFails = true
	res, _ = f.p.Create(ctx, Request{UserID: "u1", Label: "fresh"})
	if res.Success || res.Message != MsgCreateFailed {
		t.Fatalf("add failure: %+v", res)
	}
	if rec, _ := f.subs.GetByFQDN(ctx, "fresh.example.com"); rec != nil {
		t.Fatalf("failed creation must not be recorded")
	}
}

func TestTestMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "prov_testmode")
	// Auto DNS off and no credentials: the admin test still runs.
	f.configure(t, models.DNSSettings{})

	res, err := f.p.Test(ctx, "demo")
	if err != nil || !res.Success || res.Message != "(Test Mode) "+MsgReady || res.Subdomain != "demo.example.com" {
		t.Fatalf("admin test: %+v %v", res, err)
	}
	if rec, _ := f.subs.GetByFQDN(ctx, "demo.example.com"); rec != nil {
		t.Fatalf("admin test must not persist")
	}

	f.configure(t, models.DNSSettings{TestModeEnabled: true})
	res, err = f.p.Create(ctx, Request{UserID: "u1", Label: "demo"})
	if err != nil || !res.Success || !strings.HasPrefix(res.Message, "(Test Mode) ") {
		t.Fatalf("customer test mode: %+v %v", res, err)
	}
	if rec, _ := f.subs.GetByFQDN(ctx, "demo.example.com"); rec == nil {
		t.Fatalf("customer request under test mode is recorded")
	}
	if atomic.LoadInt32(&f.panel.addCalls) != 0 {
		t.Fatalf("test mode must not call cPanel")
	}
}

func TestCreate_ConcurrentSameNameCreatesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "prov_race")
	f.configure(t, liveDNS)

	const n = 8
	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.p.Create(ctx, Request{UserID: "u1", Label: "racer"})
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			if res.Success {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one success, got %d", wins)
	}
	if calls := atomic.LoadInt32(&f.panel.addCalls); calls != 1 {
		t.Fatalf("expected one add_subdomain call, got %d", calls)
	}
}
