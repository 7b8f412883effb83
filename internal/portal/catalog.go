package portal

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/validate"
	"webHostingPortal/models"
	"webHostingPortal/repository"
)

// HomepageSource supplies the storefront message and featured plan ids.
type HomepageSource interface {
	Homepage(ctx context.Context) (models.HomepageSettings, error)
}

// Catalog serves hosting plans.
type Catalog struct {
	plans    *repository.PlanRepository
	homepage HomepageSource
}

func NewCatalog(plans *repository.PlanRepository, homepage HomepageSource) *Catalog {
	return &Catalog{plans: plans, homepage: homepage}
}

func (c *Catalog) ListPlans(ctx context.Context) ([]models.Plan, error) {
	list, err := c.plans.List(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to load plans.", err)
	}
	return list, nil
}

func (c *Catalog) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	p, err := c.plans.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("Failed to load plan.", err)
	}
	if p == nil {
		return nil, apperrors.NotFound("Plan not found.")
	}
	return p, nil
}

// Storefront is the public landing payload.
type Storefront struct {
	Message  string        `json:"message"`
	Featured []models.Plan `json:"featured"`
	Plans    []models.Plan `json:"plans"`
}

// Storefront returns the homepage message, featured plans in the configured
// order and the full catalog. Featured ids that no longer exist are skipped.
func (c *Catalog) Storefront(ctx context.Context) (*Storefront, error) {
	hp, err := c.homepage.Homepage(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to load homepage settings.", err)
	}
	plans, err := c.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Plan, len(plans))
	for _, p := range plans {
		byID[p.ID] = p
	}
	out := &Storefront{Message: hp.Message, Featured: []models.Plan{}, Plans: plans}
	for _, id := range hp.FeaturedPlanIDs {
		if p, ok := byID[id]; ok {
			out.Featured = append(out.Featured, p)
		}
	}
	return out, nil
}

// PlanInput is the admin plan form. An empty ID creates a plan.
type PlanInput struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	Websites  int      `json:"websites"`
	StorageMB int      `json:"storage"`
	Features  []string `json:"features"`
}

func (in PlanInput) validate() (*models.Plan, error) {
	f := validate.Fields{}
	name := strings.TrimSpace(in.Name)
	f.Check(validate.MinLen(name, 3), "name", "Plan name is required")
	f.Check(in.Price >= 0, "price", "Price must be a positive number")
	f.Check(in.Websites >= models.UnlimitedWebsites, "websites", "Limit cannot be less than -1")
	f.Check(in.StorageMB >= 0, "storage", "Storage cannot be less than 0")
	features := make([]string, 0, len(in.Features))
	for _, ft := range in.Features {
		if ft = strings.TrimSpace(ft); ft == "" {
			f.Add("features", "Feature cannot be empty")
			continue
		}
		features = append(features, ft)
	}
	if len(in.Features) == 0 {
		f.Add("features", "At least one feature is required")
	}
	if !f.Empty() {
		return nil, apperrors.Validation("Validation failed. Please check the form.", f)
	}
	return &models.Plan{ID: in.ID, Name: name, Price: in.Price, Websites: in.Websites, StorageMB: in.StorageMB, Features: features}, nil
}

// SavePlan creates or replaces a plan. Existing services keep their snapshot.
func (c *Catalog) SavePlan(ctx context.Context, in PlanInput) (*models.Plan, error) {
	p, err := in.validate()
	if err != nil {
		return nil, err
	}
	if p.ID != "" {
		existing, err := c.plans.GetByID(ctx, p.ID)
		if err != nil {
			return nil, apperrors.Internal("Failed to save plan.", err)
		}
		if existing != nil {
			p.CreatedAt = existing.CreatedAt
		}
	}
	saved, err := c.plans.Save(ctx, p)
	if err != nil {
		return nil, apperrors.Internal("Failed to save plan.", err)
	}
	return saved, nil
}

func (c *Catalog) DeletePlan(ctx context.Context, id string) error {
	if err := c.plans.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("Plan not found.")
		}
		return apperrors.Internal("Failed to delete plan.", err)
	}
	return nil
}
