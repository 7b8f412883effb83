package portal

import (
	"context"
	"testing"
	"time"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/testutil"
	"webHostingPortal/models"
	"webHostingPortal/repository"
)

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	d := testutil.OpenInMemoryDB(t, "dashboard_stats")
	users := repository.NewUserRepository(d)
	svcs := repository.NewServiceRepository(d)
	plans := repository.NewPlanRepository(d)
	tickets := repository.NewTicketRepository(d)

	var ids []string
	for i, email := range []string{"a@x.co", "b@x.co", "c@x.co"} {
		u, err := users.Create(ctx, &models.User{Email: email, PasswordHash: "h", Status: models.UserStatusActive, CreatedAt: time.Now().Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("user: %v", err)
		}
		ids = append(ids, u.ID)
	}
	for _, s := range []models.Service{
		{UserID: ids[0], PlanName: "Basic", Price: 5, StorageMB: 1024},
		{UserID: ids[0], PlanName: "Premium", Price: 15, StorageMB: 10240},
		{UserID: ids[1], PlanName: "Free", Price: 0},
	} {
		s := s
		if _, err := svcs.Create(ctx, &s); err != nil {
			t.Fatalf("service: %v", err)
		}
	}
	if _, err := plans.Save(ctx, &models.Plan{Name: "Free", Features: []string{"x"}}); err != nil {
		t.Fatalf("plan: %v", err)
	}
	if _, err := tickets.Create(ctx, &models.Ticket{UserID: ids[2], Title: "Hello", Description: "desc"}); err != nil {
		t.Fatalf("ticket: %v", err)
	}

	st, err := NewDashboard(users, tickets, plans, svcs).Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalUsers != 3 || st.TotalTickets != 1 || st.TotalPlans != 1 {
		t.Fatalf("counts: %+v", st)
	}
	if st.MonthlyRevenue != 20 || st.PaidUsers != 1 || st.FreeUsers != 2 {
		t.Fatalf("revenue split: %+v", st)
	}
	if st.StorageUsedMB != 1024+10240+models.DefaultServiceStorageMB {
		t.Fatalf("storage: %d", st.StorageUsedMB)
	}
	if len(st.RecentUsers) != 3 || st.RecentUsers[0].Email != "c@x.co" {
		t.Fatalf("recent users: %+v", st.RecentUsers)
	}
}

func TestServices_AdminDesk(t *testing.T) {
	ctx := context.Background()
	d := testutil.OpenInMemoryDB(t, "services_admin")
	users := repository.NewUserRepository(d)
	svcs := repository.NewServiceRepository(d)
	s := NewServices(svcs, users, repository.NewSubdomainRepository(d))

	u, _ := users.Create(ctx, &models.User{Email: "owner@x.co", PasswordHash: "h", Status: models.UserStatusActive})
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		if _, err := svcs.Create(ctx, &models.Service{UserID: u.ID, PlanName: "Basic", Price: 5, OrderDate: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("service: %v", err)
		}
	}

	page, err := s.ListOrders(ctx, OrderQuery{PageSize: 2})
	if err != nil || len(page.Orders) != 2 || page.NextPageToken == "" {
		t.Fatalf("page 1: %+v %v", page, err)
	}
	page2, err := s.ListOrders(ctx, OrderQuery{PageSize: 2, PageToken: page.NextPageToken})
	if err != nil || len(page2.Orders) != 1 {
		t.Fatalf("page 2: %+v %v", page2, err)
	}
	if _, err := s.ListOrders(ctx, OrderQuery{PageToken: "%%%"}); apperrors.CodeOf(err) != apperrors.CodeValidation {
		t.Fatalf("bad token: %v", err)
	}

	id := page.Orders[0].ID
	got, err := s.UpdateServiceStatus(ctx, id, models.ServiceStatusSuspended)
	if err != nil || got.Status != models.ServiceStatusSuspended {
		t.Fatalf("update: %+v %v", got, err)
	}
	if _, err := s.UpdateServiceStatus(ctx, id, models.ServiceStatusSuspended); err != nil {
		t.Fatalf("repeat update should succeed: %v", err)
	}
	if _, err := s.UpdateServiceStatus(ctx, "missing", models.ServiceStatusActive); apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("missing: %v", err)
	}
	if _, err := s.GetOwn(ctx, "someone-else", id); apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("foreign service should be hidden: %v", err)
	}

	detail, err := s.GetUser(ctx, u.ID)
	if err != nil || len(detail.Services) != 3 || len(detail.Subdomains) != 0 {
		t.Fatalf("detail: %+v %v", detail, err)
	}
	if _, err := s.UpdateUserStatus(ctx, u.ID, models.UserStatusBanned); err != nil {
		t.Fatalf("ban: %v", err)
	}
	up, err := s.ListUsers(ctx, 10, 0)
	if err != nil || up.Total != 1 || up.Users[0].Status != models.UserStatusBanned {
		t.Fatalf("users: %+v %v", up, err)
	}
}
