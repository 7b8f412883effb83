package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/cpanel"
	"webHostingPortal/internal/validate"
	"webHostingPortal/models"
)

func invalid(f validate.Fields) error {
	return apperrors.Validation("Please correct the highlighted fields.", f)
}

func (s *Store) decodeAndValidate(ctx context.Context, section string, body json.RawMessage) (any, error) {
	switch section {
	case models.SectionDomain:
		var v models.DomainSettings
		if err := decodeStrict(body, &v); err != nil {
			return nil, err
		}
		v.Domain = strings.ToLower(strings.TrimSpace(v.Domain))
		f := validate.Fields{}
		f.Check(validate.Hostname(v.Domain), "domain", "Enter a valid domain such as example.com.")
		if !f.Empty() {
			return nil, invalid(f)
		}
		return v, nil

	case models.SectionDNS:
		var v models.DNSSettings
		if err := decodeStrict(body, &v); err != nil {
			return nil, err
		}
		prev, _, err := s.DNS(ctx)
		if err != nil {
			return nil, apperrors.Internal("Failed to read settings.", err)
		}
		v.Host = strings.TrimSpace(v.Host)
		v.Username = strings.TrimSpace(v.Username)
		if v.APIToken == "" {
			v.APIToken = prev.APIToken
		}
		if v.Port == 0 {
			v.Port = models.DefaultCpanelPort
		}
		if v.AutoDNSEnabled && !v.TestModeEnabled {
			if fields := CpanelConfig(v).Validate(); fields != nil {
				return nil, invalid(fields)
			}
		} else if v.Port < 1 || v.Port > 65535 {
			return nil, invalid(validate.Fields{"port": "cPanel port must be between 1 and 65535."})
		}
		return v, nil

	case models.SectionSMTP:
		var v models.SMTPSettings
		if err := decodeStrict(body, &v); err != nil {
			return nil, err
		}
		prev, err := s.SMTP(ctx)
		if err != nil {
			return nil, apperrors.Internal("Failed to read settings.", err)
		}
		v.Host = strings.TrimSpace(v.Host)
		v.User = strings.TrimSpace(v.User)
		if v.Pass == "" {
			v.Pass = prev.Pass
		}
		f := validate.Fields{}
		f.Check(v.Host != "", "smtpHost", "SMTP host is required.")
		f.Check(v.Port > 0, "smtpPort", "SMTP port must be a positive number.")
		f.Check(validate.Email(v.User), "smtpUser", "SMTP user must be a valid email address.")
		if !f.Empty() {
			return nil, invalid(f)
		}
		return v, nil

	case models.SectionMaintenance:
		var v models.MaintenanceSettings
		if err := decodeStrict(body, &v); err != nil {
			return nil, err
		}
		if v.Type == "" {
			v.Type = models.MaintenanceFull
		}
		f := validate.Fields{}
		f.Check(validate.OneOf(v.Type, models.MaintenanceFull, models.MaintenancePartial), "type", "Maintenance type must be full or partial.")
		if v.Enabled && v.Type == models.MaintenanceFull {
			f.Check(strings.TrimSpace(v.FullMessage) != "", "fullMessage", "A message is required for full maintenance.")
		}
		if v.Enabled && v.Type == models.MaintenancePartial {
			f.Check(strings.TrimSpace(v.PartialMessage) != "", "partialMessage", "A message is required for partial maintenance.")
		}
		if v.ServerOverloadEnabled {
			f.Check(strings.TrimSpace(v.ServerOverloadMessage) != "", "serverOverloadMessage", "A message is required when the overload notice is on.")
		}
		if !f.Empty() {
			return nil, invalid(f)
		}
		return v, nil

	case models.SectionSecurity:
		var v models.SecuritySettings
		if err := decodeStrict(body, &v); err != nil {
			return nil, err
		}
		prev, err := s.Security(ctx)
		if err != nil {
			return nil, apperrors.Internal("Failed to read settings.", err)
		}
		if v.IPInfoAPIToken == "" {
			v.IPInfoAPIToken = prev.IPInfoAPIToken
		}
		if v.DDoSProtectionLevel == "" {
			v.DDoSProtectionLevel = models.DDoSNormal
		}
		f := validate.Fields{}
		f.Check(validate.OneOf(v.DDoSProtectionLevel, models.DDoSNormal, models.DDoSAdvanced, models.DDoSMaximum),
			"ddosProtectionLevel", "Protection level must be normal, advanced or maximum.")
		if v.AntiVPNEnabled {
			f.Check(v.IPInfoAPIToken != "", "ipinfoApiToken", "An ipinfo API token is required when anti-VPN is enabled.")
		}
		if !f.Empty() {
			return nil, invalid(f)
		}
		return v, nil

	case models.SectionGateways:
		var v models.GatewaySettings
		if err := decodeStrict(body, &v); err != nil {
			return nil, err
		}
		if !v.FakeGateway.Enabled && !v.Razorpay.Enabled {
			return nil, invalid(validate.Fields{"gateways": "At least one payment gateway must be enabled."})
		}
		return v, nil

	case models.SectionHomepage:
		var v models.HomepageSettings
		if err := decodeStrict(body, &v); err != nil {
			return nil, err
		}
		if strings.TrimSpace(v.Message) == "" {
			return nil, invalid(validate.Fields{"message": "Homepage message is required."})
		}
		if v.FeaturedPlanIDs == nil {
			v.FeaturedPlanIDs = []string{}
		}
		return v, nil

	case models.SectionAdvertisements:
		var v models.AdvertisementSettings
		if err := decodeStrict(body, &v); err != nil {
			return nil, err
		}
		if v.Ads == nil {
			v.Ads = []models.Advertisement{}
		}
		f := validate.Fields{}
		seen := make(map[string]bool, len(v.Ads))
		for i := range v.Ads {
			prefix := fmt.Sprintf("ads.%d.", i)
			checkAd(&v.Ads[i], f, prefix)
			f.Check(!seen[v.Ads[i].ID], prefix+"id", "Advertisement ids must be unique.")
			seen[v.Ads[i].ID] = true
		}
		if !f.Empty() {
			return nil, invalid(f)
		}
		return v, nil
	}
	return nil, apperrors.NotFound(fmt.Sprintf("Unknown settings section %q.", section))
}

// checkAd normalises ad in place and records problems under prefix+field.
// A missing id is assigned.
func checkAd(ad *models.Advertisement, f validate.Fields, prefix string) {
	ad.ID = strings.TrimSpace(ad.ID)
	if ad.ID == "" {
		ad.ID = uuid.NewString()
	}
	ad.Name = strings.TrimSpace(ad.Name)
	f.Check(validate.MinLen(ad.Name, 3), prefix+"name", "Ad name is required")
	f.Check(validate.OneOf(ad.Location, models.AdLocationHome, models.AdLocationDashboard, models.AdLocationOrder, models.AdLocationForgotPassword),
		prefix+"location", "Location is required")
	f.Check(validate.OneOf(ad.Type, models.AdClosable, models.AdNonClosable, models.AdFloating), prefix+"type", "Ad type is required")
	f.Check(ad.NonClosableAdDuration >= 0, prefix+"nonClosableAdDuration", "Duration must be a positive number.")
	switch ad.Type {
	case models.AdClosable:
		f.Check(strings.TrimSpace(ad.ClosableAdCode) != "", prefix+"closableAdCode", "Ad code is required for closable ads.")
	case models.AdNonClosable:
		f.Check(strings.TrimSpace(ad.NonClosableAdCode) != "", prefix+"nonClosableAdCode", "Ad code is required for non-closable ads.")
	case models.AdFloating:
		f.Check(strings.TrimSpace(ad.FloatingAdMessage) != "", prefix+"floatingAdMessage", "Message is required for floating ads.")
	}
}

// CpanelConfig converts DNS settings into a cPanel client config.
func CpanelConfig(d models.DNSSettings) cpanel.Config {
	return cpanel.Config{Host: d.Host, Port: d.CpanelPort(), Username: d.Username, APIToken: d.APIToken}
}
