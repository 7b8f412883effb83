// Package ipinfo looks up anonymising-network signals for client IPs.
package ipinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://ipinfo.io"

// Privacy is the privacy block of an ipinfo response.
type Privacy struct {
	VPN     bool `json:"vpn"`
	Proxy   bool `json:"proxy"`
	Tor     bool `json:"tor"`
	Relay   bool `json:"relay"`
	Hosting bool `json:"hosting"`
}

// Anonymous reports whether the address looks like a VPN, proxy or hosting provider.
func (p Privacy) Anonymous() bool {
	return p.VPN || p.Proxy || p.Hosting || p.Tor
}

// Client queries ipinfo.io.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a client with a short timeout.
func New() *Client {
	return &Client{BaseURL: defaultBaseURL, HTTP: &http.Client{Timeout: 5 * time.Second}}
}

// Lookup fetches the privacy details of ip using token.
func (c *Client) Lookup(ctx context.Context, ip, token string) (*Privacy, error) {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	u := strings.TrimRight(base, "/") + "/" + url.PathEscape(ip) + "/json?token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ipinfo lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ipinfo lookup: HTTP %d", resp.StatusCode)
	}
	var body struct {
		Privacy Privacy `json:"privacy"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ipinfo decode: %w", err)
	}
	return &body.Privacy, nil
}
