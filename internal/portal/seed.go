package portal

import (
	"context"
	"errors"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/auth"
	"webHostingPortal/internal/logging"
	"webHostingPortal/models"
	"webHostingPortal/repository"
)

// DefaultPlans are installed by Seed. Ids are fixed so reseeding updates them.
var DefaultPlans = []models.Plan{
	{ID: "plan-free", Name: "Free", Price: 0, Websites: 1, StorageMB: 100,
		Features: []string{"1 Subdomain", "100 MB Storage", "1 Database"}},
	{ID: "plan-basic", Name: "Basic", Price: 5, Websites: 5, StorageMB: 1024,
		Features: []string{"5 Subdomains", "1 GB Storage", "5 Databases", "Email Support"}},
	{ID: "plan-premium", Name: "Premium", Price: 15, Websites: models.UnlimitedWebsites, StorageMB: 10240,
		Features: []string{"Unlimited Subdomains", "10 GB Storage", "Unlimited Databases", "Priority Support"}},
}

// DefaultSettings are written for sections that were never saved.
func DefaultSettings(domain string) map[string]any {
	verify := true
	return map[string]any{
		models.SectionDomain: models.DomainSettings{Domain: domain},
		models.SectionDNS:    models.DNSSettings{TestModeEnabled: true, Port: models.DefaultCpanelPort},
		models.SectionGateways: models.GatewaySettings{
			FakeGateway: models.FakeGatewaySettings{Enabled: true, QRCodeURL: "https://placehold.co/200x200.png"},
		},
		models.SectionSMTP:        models.SMTPSettings{RequireVerification: &verify},
		models.SectionSecurity:    models.SecuritySettings{DDoSProtectionLevel: models.DDoSNormal},
		models.SectionMaintenance: models.MaintenanceSettings{Type: models.MaintenanceFull},
		models.SectionHomepage: models.HomepageSettings{
			Message:         "Fast, reliable hosting with a free subdomain.",
			FeaturedPlanIDs: []string{"plan-basic", "plan-premium"},
		},
		models.SectionAdvertisements: models.AdvertisementSettings{Ads: []models.Advertisement{}},
	}
}

// SettingsSeeder is the part of the settings store Seed writes through.
type SettingsSeeder interface {
	Saved(ctx context.Context, section string) (bool, error)
	Put(ctx context.Context, section string, v any) error
}

// SeedInput configures Seed.
type SeedInput struct {
	AdminEmail    string
	AdminPassword string
	Domain        string
}

// SeedResult reports what Seed changed.
type SeedResult struct {
	Plans           int      `json:"plans"`
	AdminCreated    bool     `json:"adminCreated"`
	SettingsWritten []string `json:"settingsWritten"`
}

// Seed installs the default plans, the superadmin account and default
// settings. It is safe to run repeatedly: plans are upserted, an existing
// admin keeps its password and saved settings are left alone.
func Seed(ctx context.Context, plans *repository.PlanRepository, admins *repository.AdminRepository, st SettingsSeeder, in SeedInput) (*SeedResult, error) {
	if in.AdminEmail == "" || in.AdminPassword == "" {
		return nil, apperrors.Validation("Admin email and password are required to seed.", nil)
	}
	if in.Domain == "" {
		in.Domain = "aquahost.app"
	}
	res := &SeedResult{SettingsWritten: []string{}}
	for _, p := range DefaultPlans {
		p := p
		if _, err := plans.Save(ctx, &p); err != nil {
			return nil, apperrors.Internal("Failed to seed plans.", err)
		}
		res.Plans++
	}

	existing, err := admins.GetByEmail(ctx, in.AdminEmail)
	if err != nil {
		return nil, apperrors.Internal("Failed to seed admin.", err)
	}
	if existing == nil {
		hash, err := auth.HashPassword(in.AdminPassword)
		if err != nil {
			return nil, apperrors.Internal("Failed to seed admin.", err)
		}
		_, err = admins.Create(ctx, &models.Admin{Email: normalizeEmail(in.AdminEmail), PasswordHash: hash, Role: models.RoleSuperAdmin})
		if err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Internal("Failed to seed admin.", err)
		}
		res.AdminCreated = err == nil
	}

	defaults := DefaultSettings(in.Domain)
	for _, section := range models.Sections {
		saved, err := st.Saved(ctx, section)
		if err != nil {
			return nil, apperrors.Internal("Failed to seed settings.", err)
		}
		if saved {
			continue
		}
		if err := st.Put(ctx, section, defaults[section]); err != nil {
			return nil, apperrors.Internal("Failed to seed settings.", err)
		}
		res.SettingsWritten = append(res.SettingsWritten, section)
	}
	logging.Infof("seed complete: %d plans, admin created=%v, settings %v", res.Plans, res.AdminCreated, res.SettingsWritten)
	return res, nil
}
