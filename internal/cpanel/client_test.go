package cpanel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{Username: "acct", APIToken: "TOKEN", BaseURL: srv.URL}, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestIsAvailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/execute/SubDomain/list_subdomains" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "cpanel acct:TOKEN" {
			t.Fatalf("unexpected auth header %q", got)
		}
		_, _ = w.Write([]byte(`{"status":1,"data":[{"subdomain":"blog","domain":"blog.example.com"},{"subdomain":"x","domain":"shop.example.com"}]}`))
	})
	ctx := context.Background()
	for label, want := range map[string]bool{"blog": false, "shop": false, "fresh": true} {
		got, err := c.IsAvailable(ctx, label, "example.com")
		if err != nil {
			t.Fatalf("%s: %v", label, err)
		}
		if got != want {
			t.Fatalf("%s available = %v, want %v", label, got, want)
		}
	}
}

func TestAddSubdomain_Params(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("domain") != "blog" || q.Get("root_domain") != "example.com" || q.Get("document_root") != "public_html/blog" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"status":1,"data":null}`))
	})
	if err := c.AddSubdomain(context.Background(), "blog", "example.com"); err != nil {
		t.Fatalf("add: %v", err)
	}
}

func TestCall_ReportsCpanelErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":0,"errors":["The subdomain already exists."]}`))
	})
	err := c.AddSubdomain(context.Background(), "blog", "example.com")
	var ce *Error
	if !errors.As(err, &ce) || !strings.Contains(ce.Error(), "already exists") {
		t.Fatalf("expected cpanel error, got %v", err)
	}

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("  Access denied  \n"))
	})
	_, err = c.ListSubdomains(context.Background())
	if !errors.As(err, &ce) || ce.StatusCode != http.StatusUnauthorized || ce.Body != "Access denied" {
		t.Fatalf("expected HTTP error with body, got %#v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if f := (Config{Host: "cp.example.com", Username: "u", APIToken: "t"}).Validate(); f != nil {
		t.Fatalf("valid config rejected: %v", f)
	}
	f := (Config{Host: "https://cp.example.com", Port: 70000}).Validate()
	for _, k := range []string{"host", "port", "username", "apiToken"} {
		if _, ok := f[k]; !ok {
			t.Fatalf("missing field error %q in %v", k, f)
		}
	}
}
