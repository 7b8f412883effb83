// Package settings exposes the admin-managed settings sections with typed
// accessors, validation on save and a short read cache.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/validate"
	"webHostingPortal/models"
	"webHostingPortal/repository"
)

// DefaultTTL bounds how stale a cached section may be.
const DefaultTTL = 30 * time.Second

type cacheItem struct {
	body    json.RawMessage // nil when the section was never saved
	expires time.Time
}

// Store reads and writes settings sections.
type Store struct {
	repo  repository.SettingsRepositoryI
	clock clock.Clock
	ttl   time.Duration

	cacheMu sync.RWMutex
	cache   map[string]cacheItem
	// Bumped by Invalidate so a read that raced a write does not cache
	// what it saw.
	gens  map[string]uint64
	epoch uint64

	adsMu sync.Mutex
}

// NewStore returns a Store. A nil clk uses the wall clock; ttl <= 0 uses DefaultTTL.
func NewStore(repo repository.SettingsRepositoryI, clk clock.Clock, ttl time.Duration) *Store {
	if clk == nil {
		clk = clock.WallClock
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{repo: repo, clock: clk, ttl: ttl, cache: map[string]cacheItem{}, gens: map[string]uint64{}}
}

func (s *Store) raw(ctx context.Context, section string) (json.RawMessage, error) {
	now := s.clock.Now()
	s.cacheMu.RLock()
	item, ok := s.cache[section]
	gen := s.epoch + s.gens[section]
	s.cacheMu.RUnlock()
	if ok && now.Before(item.expires) {
		return item.body, nil
	}
	rec, err := s.repo.Get(ctx, section)
	if err != nil {
		return nil, err
	}
	var body json.RawMessage
	if rec != nil {
		body = rec.Body
	}
	s.cacheMu.Lock()
	if s.epoch+s.gens[section] == gen {
		s.cache[section] = cacheItem{body: body, expires: now.Add(s.ttl)}
	}
	s.cacheMu.Unlock()
	return body, nil
}

// load decodes section into v and reports whether it was ever saved.
func (s *Store) load(ctx context.Context, section string, v any) (bool, error) {
	body, err := s.raw(ctx, section)
	if err != nil {
		return false, fmt.Errorf("read %s settings: %w", section, err)
	}
	if len(body) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return false, fmt.Errorf("decode %s settings: %w", section, err)
	}
	return true, nil
}

// Invalidate drops cached sections. With no arguments every section is dropped.
func (s *Store) Invalidate(sections ...string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if len(sections) == 0 {
		s.cache = map[string]cacheItem{}
		s.epoch++
		return
	}
	for _, sec := range sections {
		delete(s.cache, sec)
		s.gens[sec]++
	}
}

func (s *Store) Domain(ctx context.Context) (models.DomainSettings, bool, error) {
	var v models.DomainSettings
	ok, err := s.load(ctx, models.SectionDomain, &v)
	return v, ok, err
}

func (s *Store) DNS(ctx context.Context) (models.DNSSettings, bool, error) {
	var v models.DNSSettings
	ok, err := s.load(ctx, models.SectionDNS, &v)
	return v, ok, err
}

func (s *Store) SMTP(ctx context.Context) (models.SMTPSettings, error) {
	var v models.SMTPSettings
	_, err := s.load(ctx, models.SectionSMTP, &v)
	return v, err
}

func (s *Store) Maintenance(ctx context.Context) (models.MaintenanceSettings, error) {
	var v models.MaintenanceSettings
	_, err := s.load(ctx, models.SectionMaintenance, &v)
	return v, err
}

func (s *Store) Security(ctx context.Context) (models.SecuritySettings, error) {
	var v models.SecuritySettings
	_, err := s.load(ctx, models.SectionSecurity, &v)
	if v.DDoSProtectionLevel == "" {
		v.DDoSProtectionLevel = models.DDoSNormal
	}
	return v, err
}

// Gateways never fails: unsaved or unreadable settings fall back to the fake gateway.
func (s *Store) Gateways(ctx context.Context) models.GatewaySettings {
	var v models.GatewaySettings
	ok, err := s.load(ctx, models.SectionGateways, &v)
	if err != nil || !ok {
		return models.DefaultGatewaySettings()
	}
	return v
}

func (s *Store) Homepage(ctx context.Context) (models.HomepageSettings, error) {
	var v models.HomepageSettings
	_, err := s.load(ctx, models.SectionHomepage, &v)
	return v, err
}

func (s *Store) Advertisements(ctx context.Context) (models.AdvertisementSettings, error) {
	var v models.AdvertisementSettings
	_, err := s.load(ctx, models.SectionAdvertisements, &v)
	if v.Ads == nil {
		v.Ads = []models.Advertisement{}
	}
	return v, err
}

// ActiveAdvertisements returns the enabled ads placed at location.
func (s *Store) ActiveAdvertisements(ctx context.Context, location string) ([]models.Advertisement, error) {
	all, err := s.Advertisements(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Advertisement{}
	for _, ad := range all.Ads {
		if ad.Enabled && ad.Location == location {
			out = append(out, ad)
		}
	}
	return out, nil
}

// SaveAdvertisement adds ad, or replaces the ad with the same id, and returns
// it with its id assigned.
func (s *Store) SaveAdvertisement(ctx context.Context, ad models.Advertisement) (*models.Advertisement, error) {
	f := validate.Fields{}
	checkAd(&ad, f, "")
	if !f.Empty() {
		return nil, invalid(f)
	}
	s.adsMu.Lock()
	defer s.adsMu.Unlock()
	s.Invalidate(models.SectionAdvertisements)
	cur, err := s.Advertisements(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to read advertisements.", err)
	}
	replaced := false
	for i := range cur.Ads {
		if cur.Ads[i].ID == ad.ID {
			cur.Ads[i] = ad
			replaced = true
		}
	}
	if !replaced {
		cur.Ads = append(cur.Ads, ad)
	}
	if err := s.Put(ctx, models.SectionAdvertisements, cur); err != nil {
		return nil, apperrors.Internal("Failed to save advertisement.", err)
	}
	return &ad, nil
}

// DeleteAdvertisement removes the ad with the given id.
func (s *Store) DeleteAdvertisement(ctx context.Context, id string) error {
	s.adsMu.Lock()
	defer s.adsMu.Unlock()
	s.Invalidate(models.SectionAdvertisements)
	cur, err := s.Advertisements(ctx)
	if err != nil {
		return apperrors.Internal("Failed to read advertisements.", err)
	}
	kept := make([]models.Advertisement, 0, len(cur.Ads))
	for _, ad := range cur.Ads {
		if ad.ID != id {
			kept = append(kept, ad)
		}
	}
	if len(kept) == len(cur.Ads) {
		return apperrors.NotFound("Advertisement not found.")
	}
	if err := s.Put(ctx, models.SectionAdvertisements, models.AdvertisementSettings{Ads: kept}); err != nil {
		return apperrors.Internal("Failed to delete advertisement.", err)
	}
	return nil
}

// Get returns a section for display. Secrets are blanked.
func (s *Store) Get(ctx context.Context, section string) (any, error) {
	switch section {
	case models.SectionDomain:
		v, _, err := s.Domain(ctx)
		return v, err
	case models.SectionDNS:
		v, _, err := s.DNS(ctx)
		v.APIToken = ""
		return v, err
	case models.SectionSMTP:
		v, err := s.SMTP(ctx)
		v.Pass = ""
		return v, err
	case models.SectionMaintenance:
		return s.Maintenance(ctx)
	case models.SectionSecurity:
		v, err := s.Security(ctx)
		v.IPInfoAPIToken = ""
		return v, err
	case models.SectionGateways:
		return s.Gateways(ctx), nil
	case models.SectionHomepage:
		return s.Homepage(ctx)
	case models.SectionAdvertisements:
		return s.Advertisements(ctx)
	}
	return nil, apperrors.NotFound(fmt.Sprintf("Unknown settings section %q.", section))
}

// Save validates body for section and stores it. Blank secrets keep the
// previously stored value. The stored (unmasked) value is returned.
func (s *Store) Save(ctx context.Context, section string, body json.RawMessage) (any, error) {
	v, err := s.decodeAndValidate(ctx, section, body)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Put(ctx, section, v); err != nil {
		return nil, apperrors.Internal("Failed to save settings.", err)
	}
	s.Invalidate(section)
	return v, nil
}

// Saved reports whether section was ever stored.
func (s *Store) Saved(ctx context.Context, section string) (bool, error) {
	body, err := s.raw(ctx, section)
	return len(body) > 0, err
}

// Put stores v without validation. Used for seeding.
func (s *Store) Put(ctx context.Context, section string, v any) error {
	if err := s.repo.Put(ctx, section, v); err != nil {
		return err
	}
	s.Invalidate(section)
	return nil
}

func decodeStrict(body json.RawMessage, v any) error {
	if len(body) == 0 {
		return apperrors.Validation("Settings body is required.", nil)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.Validation("Invalid settings payload.", nil)
	}
	return nil
}
