package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"webHostingPortal/internal/testutil"
	"webHostingPortal/models"
)

func TestServiceRepository_SnapshotAndKeysetPaging(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "servicerepo")
	repo := NewServiceRepository(d)
	ctx := context.Background()

	plan := &models.Plan{ID: "plan-basic", Name: "Basic", Price: 5, Websites: 5, StorageMB: 1024, Features: []string{"5 Websites", "Free SSL"}}
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		s := models.NewServiceFromPlan("u1", plan, models.PaymentFakeGateway, models.ServiceStatusActive)
		s.OrderDate = base.Add(time.Duration(i) * time.Hour)
		got, err := repo.Create(ctx, s)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids = append(ids, got.ID)
	}

	first, err := repo.GetByID(ctx, ids[0])
	if err != nil || first == nil {
		t.Fatalf("get: %v %+v", err, first)
	}
	if diff := cmp.Diff(plan.Features, first.Features); diff != "" {
		t.Fatalf("features mismatch (-want +got):\n%s", diff)
	}

	page1, next, err := repo.ListAdmin(ctx, ListServicesAdminParams{PageSize: 2})
	if err != nil {
		t.Fatalf("page1: %v", err)
	}
	if len(page1) != 2 || page1[0].ID != ids[4] || page1[1].ID != ids[3] || next == "" {
		t.Fatalf("unexpected page1: %d next=%q", len(page1), next)
	}
	cur, err := DecodeCursor(next)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	page2, _, err := repo.ListAdmin(ctx, ListServicesAdminParams{PageSize: 2, After: cur})
	if err != nil || len(page2) != 2 || page2[0].ID != ids[2] {
		t.Fatalf("page2: %v %+v", err, page2)
	}

	if err := repo.SetSubdomain(ctx, ids[1], "blog.example.com"); err != nil {
		t.Fatalf("set subdomain: %v", err)
	}
	bound, err := repo.GetBySubdomain(ctx, "blog.example.com")
	if err != nil || bound == nil || bound.ID != ids[1] {
		t.Fatalf("get by subdomain: %v %+v", err, bound)
	}

	paid, err := repo.HasPaidService(ctx, "u1")
	if err != nil || !paid {
		t.Fatalf("has paid: %v %v", err, paid)
	}
	paid, _ = repo.HasPaidService(ctx, "u2")
	if paid {
		t.Fatalf("u2 has no services")
	}
	// An order still waiting on payment does not make the user a paying customer.
	if _, err := repo.Create(ctx, models.NewServiceFromPlan("u3", plan, models.PaymentRazorpay, models.ServiceStatusPending)); err != nil {
		t.Fatalf("create pending: %v", err)
	}
	if paid, _ = repo.HasPaidService(ctx, "u3"); paid {
		t.Fatalf("pending service counted as paid")
	}

	filtered, _, err := repo.ListAdmin(ctx, ListServicesAdminParams{Statuses: []models.ServiceStatus{models.ServiceStatusPending}})
	if err != nil || len(filtered) != 1 || filtered[0].UserID != "u3" {
		t.Fatalf("status filter: %v %d", err, len(filtered))
	}
}

func TestCursor_RoundTripAndErrors(t *testing.T) {
	c := Cursor{At: "2024-03-01T12:00:00.000000Z", ID: "abc"}
	got, err := DecodeCursor(EncodeCursor(c))
	if err != nil || got != c {
		t.Fatalf("round trip: %+v %v", got, err)
	}
	if _, err := DecodeCursor("!!not-base64!!"); err == nil {
		t.Fatalf("expected error for non-base64 token")
	}
	if z, err := DecodeCursor(""); err != nil || !z.IsZero() {
		t.Fatalf("empty token should be first page")
	}
}
