package portal

import (
	"context"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/models"
	"webHostingPortal/repository"
)

// RecentUsersShown is how many newest accounts the dashboard lists.
const RecentUsersShown = 5

// Stats are the admin dashboard totals.
type Stats struct {
	TotalUsers     int           `json:"totalUsers"`
	TotalTickets   int           `json:"totalTickets"`
	TotalPlans     int           `json:"totalPlans"`
	MonthlyRevenue float64       `json:"monthlyRevenue"`
	PaidUsers      int           `json:"paidUsers"`
	FreeUsers      int           `json:"freeUsers"`
	StorageUsedMB  int           `json:"storageUsedMb"`
	RecentUsers    []models.User `json:"recentUsers"`
}

// Dashboard computes admin overview numbers.
type Dashboard struct {
	users    *repository.UserRepository
	tickets  *repository.TicketRepository
	plans    *repository.PlanRepository
	services *repository.ServiceRepository
}

func NewDashboard(users *repository.UserRepository, tickets *repository.TicketRepository, plans *repository.PlanRepository, services *repository.ServiceRepository) *Dashboard {
	return &Dashboard{users: users, tickets: tickets, plans: plans, services: services}
}

// Stats sums every service: revenue is the total of service prices and
// storage defaults to models.DefaultServiceStorageMB for services without one.
// A user is paid when any of their services has a positive price.
func (d *Dashboard) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	var err error
	if st.TotalUsers, err = d.users.Count(ctx); err != nil {
		return nil, apperrors.Internal("Failed to count users.", err)
	}
	if st.TotalTickets, err = d.tickets.Count(ctx); err != nil {
		return nil, apperrors.Internal("Failed to count tickets.", err)
	}
	if st.TotalPlans, err = d.plans.Count(ctx); err != nil {
		return nil, apperrors.Internal("Failed to count plans.", err)
	}
	services, err := d.services.ListAll(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to load services.", err)
	}
	paid := map[string]bool{}
	for _, s := range services {
		st.MonthlyRevenue += s.Price
		if s.Price > 0 {
			paid[s.UserID] = true
		}
		if s.StorageMB > 0 {
			st.StorageUsedMB += s.StorageMB
		} else {
			st.StorageUsedMB += models.DefaultServiceStorageMB
		}
	}
	st.PaidUsers = len(paid)
	st.FreeUsers = st.TotalUsers - st.PaidUsers
	if st.FreeUsers < 0 {
		st.FreeUsers = 0
	}
	recent, err := d.users.List(ctx, RecentUsersShown, 0)
	if err != nil {
		return nil, apperrors.Internal("Failed to load recent users.", err)
	}
	if recent == nil {
		recent = []models.User{}
	}
	st.RecentUsers = recent
	return &st, nil
}
