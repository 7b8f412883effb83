// Package cpanel is a minimal client for the cPanel UAPI subdomain endpoints.
package cpanel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
)

// DefaultPort is the cPanel HTTPS port.
const DefaultPort = 2083

// Config identifies a cPanel account. BaseURL overrides https://Host:Port.
type Config struct {
	Host     string
	Port     int
	Username string
	APIToken string
	BaseURL  string
}

// Validate returns per-field problems, or nil when the config is usable.
func (c Config) Validate() map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(c.Host) == "" && c.BaseURL == "" {
		fields["host"] = "cPanel host is required."
	} else if strings.Contains(c.Host, "/") || strings.Contains(c.Host, ":") {
		fields["host"] = "cPanel host must be a bare hostname."
	}
	if c.Port < 0 || c.Port > 65535 {
		fields["port"] = "cPanel port must be between 1 and 65535."
	}
	if strings.TrimSpace(c.Username) == "" {
		fields["username"] = "cPanel username is required."
	}
	if strings.TrimSpace(c.APIToken) == "" {
		fields["apiToken"] = "cPanel API token is required."
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Error is a failure reported by cPanel itself (status 0) or by HTTP.
type Error struct {
	Op         string
	StatusCode int
	Messages   []string
	Body       string // start of the response body on HTTP failures
}

func (e *Error) Error() string {
	msg := "request failed"
	if len(e.Messages) > 0 {
		msg = e.Messages[0]
	} else if e.StatusCode != 0 {
		msg = "HTTP " + strconv.Itoa(e.StatusCode)
	}
	return fmt.Sprintf("cpanel %s: %s", e.Op, msg)
}

// Client calls UAPI with token authentication.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
}

// New returns a client for cfg. A nil hc uses a client with a 15s timeout.
func New(cfg Config, hc *http.Client) (*Client, error) {
	if fields := cfg.Validate(); fields != nil {
		return nil, errors.New("invalid cPanel configuration")
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://" + cfg.Host + ":" + strconv.Itoa(cfg.Port)
	}
	return &Client{cfg: cfg, baseURL: strings.TrimRight(base, "/"), http: hc}, nil
}

// SubdomainEntry is one row of SubDomain/list_subdomains.
type SubdomainEntry struct {
	Subdomain  string `json:"subdomain"`
	Domain     string `json:"domain"`
	RootDomain string `json:"rootdomain"`
	DocRoot    string `json:"dir"`
}

type envelope struct {
	Status   int             `json:"status"`
	Errors   []string        `json:"errors"`
	Messages []string        `json:"messages"`
	Data     json.RawMessage `json:"data"`
}

type addSubdomainParams struct {
	Domain       string `url:"domain"`
	RootDomain   string `url:"root_domain"`
	DocumentRoot string `url:"document_root"`
}

// ListSubdomains returns every subdomain on the account.
func (c *Client) ListSubdomains(ctx context.Context) ([]SubdomainEntry, error) {
	var out []SubdomainEntry
	if err := c.call(ctx, "SubDomain/list_subdomains", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IsAvailable reports whether label under root is not yet taken on the account.
func (c *Client) IsAvailable(ctx context.Context, label, root string) (bool, error) {
	list, err := c.ListSubdomains(ctx)
	if err != nil {
		return false, err
	}
	fqdn := strings.ToLower(label + "." + root)
	for _, s := range list {
		if strings.EqualFold(s.Subdomain, label) || strings.EqualFold(s.Domain, fqdn) {
			return false, nil
		}
	}
	return true, nil
}

// AddSubdomain creates label under root with document root public_html/<label>.
func (c *Client) AddSubdomain(ctx context.Context, label, root string) error {
	params := addSubdomainParams{Domain: label, RootDomain: root, DocumentRoot: "public_html/" + label}
	return c.call(ctx, "SubDomain/add_subdomain", params, nil)
}

func (c *Client) call(ctx context.Context, fn string, params any, into any) error {
	u := c.baseURL + "/execute/" + fn
	if params != nil {
		v, err := query.Values(params)
		if err != nil {
			return fmt.Errorf("encode %s params: %w", fn, err)
		}
		u += "?" + v.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "cpanel "+c.cfg.Username+":"+c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("cpanel %s: %w", fn, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("cpanel %s: read body: %w", fn, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Op: fn, StatusCode: resp.StatusCode, Body: bodySnippet(body)}
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("cpanel %s: decode response: %w", fn, err)
	}
	if env.Status == 0 {
		return &Error{Op: fn, StatusCode: resp.StatusCode, Messages: env.Errors}
	}
	if into != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, into); err != nil {
			return fmt.Errorf("cpanel %s: decode data: %w", fn, err)
		}
	}
	return nil
}

const maxErrorBody = 512

func bodySnippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		s = strings.ToValidUTF8(s[:maxErrorBody], "") + "..."
	}
	return s
}
