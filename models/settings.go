package models

import (
	"encoding/json"
	"time"
)

// Setting sections. Each section is one JSON document in the `settings` table.
const (
	SectionDomain      = "domain"
	SectionDNS         = "dns"
	SectionSMTP        = "smtp"
	SectionMaintenance = "maintenance"
	SectionSecurity    = "security"
	SectionGateways    = "gateways"
	SectionHomepage    = "homepage"

	SectionAdvertisements = "advertisements"
)

// Sections lists every known settings section.
var Sections = []string{
	SectionDomain, SectionDNS, SectionSMTP, SectionMaintenance,
	SectionSecurity, SectionGateways, SectionHomepage, SectionAdvertisements,
}

// Setting is a raw settings document.
type Setting struct {
	Section   string          `db:"section" json:"section"`
	Body      json.RawMessage `db:"body" json:"body"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// DomainSettings holds the root domain free subdomains are created under.
type DomainSettings struct {
	Domain string `json:"domain"`
}

// DefaultCpanelPort is the cPanel HTTPS port used when none is configured.
const DefaultCpanelPort = 2083

// DNSSettings configures automatic subdomain creation through cPanel.
type DNSSettings struct {
	AutoDNSEnabled  bool   `json:"autoDnsEnabled"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	Username        string `json:"username"`
	APIToken        string `json:"apiToken,omitempty"`
	TestModeEnabled bool   `json:"testModeEnabled"`
}

// CpanelPort returns the configured port or DefaultCpanelPort.
func (d DNSSettings) CpanelPort() int {
	if d.Port <= 0 {
		return DefaultCpanelPort
	}
	return d.Port
}

// SMTPSettings configures outgoing mail.
type SMTPSettings struct {
	Host                string `json:"smtpHost"`
	Port                int    `json:"smtpPort"`
	User                string `json:"smtpUser"`
	Pass                string `json:"smtpPass,omitempty"`
	RequireVerification *bool  `json:"requireVerification,omitempty"`
}

// VerificationRequired defaults to true when the flag was never saved.
func (s SMTPSettings) VerificationRequired() bool {
	return s.RequireVerification == nil || *s.RequireVerification
}

// Configured reports whether enough is set to send mail.
func (s SMTPSettings) Configured() bool {
	return s.Host != "" && s.Port > 0 && s.User != "" && s.Pass != ""
}

// Maintenance modes.
const (
	MaintenanceFull    = "full"
	MaintenancePartial = "partial"
)

// MaintenanceSettings controls the customer-facing maintenance gate.
type MaintenanceSettings struct {
	Enabled               bool   `json:"enabled"`
	Type                  string `json:"type"`
	FullMessage           string `json:"fullMessage"`
	PartialMessage        string `json:"partialMessage"`
	ServerOverloadEnabled bool   `json:"serverOverloadEnabled"`
	ServerOverloadMessage string `json:"serverOverloadMessage"`
}

// DDoS protection levels.
const (
	DDoSNormal   = "normal"
	DDoSAdvanced = "advanced"
	DDoSMaximum  = "maximum"
)

// SecuritySettings toggles registration and request protections.
type SecuritySettings struct {
	MultiLoginProtectionEnabled bool   `json:"multiLoginProtectionEnabled"`
	AntiVPNEnabled              bool   `json:"antiVpnEnabled"`
	IPInfoAPIToken              string `json:"ipinfoApiToken,omitempty"`
	AppCheckEnabled             bool   `json:"appCheckEnabled"`
	DDoSProtectionLevel         string `json:"ddosProtectionLevel"`
}

// FakeGatewaySettings configures the manual QR-code payment gateway.
type FakeGatewaySettings struct {
	Enabled   bool   `json:"enabled"`
	QRCodeURL string `json:"qrCodeUrl,omitempty"`
}

// RazorpaySettings configures the Razorpay gateway.
type RazorpaySettings struct {
	Enabled bool `json:"enabled"`
}

// GatewaySettings lists the payment gateways offered at checkout.
type GatewaySettings struct {
	FakeGateway FakeGatewaySettings `json:"fakeGateway"`
	Razorpay    RazorpaySettings    `json:"razorpay"`
}

// DefaultGatewaySettings enables only the fake gateway.
func DefaultGatewaySettings() GatewaySettings {
	return GatewaySettings{FakeGateway: FakeGatewaySettings{Enabled: true}}
}

// HomepageSettings drives the storefront landing content.
type HomepageSettings struct {
	Message         string   `json:"message"`
	FeaturedPlanIDs []string `json:"featuredPlanIds"`
}

// Ad placements.
const (
	AdLocationHome           = "home"
	AdLocationDashboard      = "dashboard"
	AdLocationOrder          = "order"
	AdLocationForgotPassword = "forgot_password"
)

// Ad kinds.
const (
	AdClosable    = "closable"
	AdNonClosable = "nonClosable"
	AdFloating    = "floating"
)

// Advertisement is one configured ad. Which content field applies depends on Type.
type Advertisement struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
	Location string `json:"location"`
	Type     string `json:"type"`

	ClosableAdCode        string `json:"closableAdCode,omitempty"`
	NonClosableAdMessage  string `json:"nonClosableAdMessage,omitempty"`
	NonClosableAdCode     string `json:"nonClosableAdCode,omitempty"`
	NonClosableAdDuration int    `json:"nonClosableAdDuration,omitempty"` // seconds
	FloatingAdMessage     string `json:"floatingAdMessage,omitempty"`
}

// AdvertisementSettings holds every configured ad.
type AdvertisementSettings struct {
	Ads []Advertisement `json:"ads"`
}
