package portal

import (
	"context"
	"errors"
	"testing"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/testutil"
	"webHostingPortal/models"
	"webHostingPortal/repository"
)

type staticHomepage models.HomepageSettings

func (h staticHomepage) Homepage(context.Context) (models.HomepageSettings, error) {
	return models.HomepageSettings(h), nil
}

func TestSavePlan_Validation(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "catalog_validation")
	c := NewCatalog(repository.NewPlanRepository(d), staticHomepage{})
	_, err := c.SavePlan(context.Background(), PlanInput{Name: " ", Price: -1, Websites: -2, StorageMB: -5, Features: []string{"ok", " "}})
	var ae *apperrors.Error
	if !errors.As(err, &ae) || ae.Code != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := map[string]string{
		"name":     "Plan name is required",
		"price":    "Price must be a positive number",
		"websites": "Limit cannot be less than -1",
		"storage":  "Storage cannot be less than 0",
		"features": "Feature cannot be empty",
	}
	for k, v := range want {
		if ae.Fields[k] != v {
			t.Fatalf("field %s: want %q got %q", k, v, ae.Fields[k])
		}
	}

	_, err = c.SavePlan(context.Background(), PlanInput{Name: "Basic", Price: 1})
	if !errors.As(err, &ae) || ae.Fields["features"] != "At least one feature is required" {
		t.Fatalf("expected features error, got %v", err)
	}
}

func TestCatalog_SaveUpdateDelete(t *testing.T) {
	ctx := context.Background()
	d := testutil.OpenInMemoryDB(t, "catalog_crud")
	c := NewCatalog(repository.NewPlanRepository(d), staticHomepage{})

	p, err := c.SavePlan(ctx, PlanInput{Name: "Starter", Price: 2, Websites: 3, StorageMB: 500, Features: []string{" 3 Sites "}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" || p.Features[0] != "3 Sites" {
		t.Fatalf("unexpected plan %+v", p)
	}
	updated, err := c.SavePlan(ctx, PlanInput{ID: p.ID, Name: "Starter+", Price: 3, Websites: models.UnlimitedWebsites, Features: []string{"Unlimited"}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.CreatedAt.Equal(p.CreatedAt) {
		t.Fatalf("update must keep created time")
	}
	got, err := c.GetPlan(ctx, p.ID)
	if err != nil || got.Name != "Starter+" || got.Websites != models.UnlimitedWebsites {
		t.Fatalf("get: %+v %v", got, err)
	}
	if err := c.DeletePlan(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetPlan(ctx, p.ID); apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := c.DeletePlan(ctx, p.ID); apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("second delete: %v", err)
	}
}

func TestStorefront_FeaturedOrder(t *testing.T) {
	ctx := context.Background()
	d := testutil.OpenInMemoryDB(t, "catalog_storefront")
	plans := repository.NewPlanRepository(d)
	for _, p := range DefaultPlans {
		p := p
		if _, err := plans.Save(ctx, &p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	c := NewCatalog(plans, staticHomepage{Message: "Hello", FeaturedPlanIDs: []string{"plan-premium", "gone", "plan-free"}})
	sf, err := c.Storefront(ctx)
	if err != nil {
		t.Fatalf("storefront: %v", err)
	}
	if sf.Message != "Hello" || len(sf.Plans) != 3 {
		t.Fatalf("unexpected %+v", sf)
	}
	if len(sf.Featured) != 2 || sf.Featured[0].ID != "plan-premium" || sf.Featured[1].ID != "plan-free" {
		t.Fatalf("featured order wrong: %+v", sf.Featured)
	}
}
