package portal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	clog "github.com/charmbracelet/log"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/logging"
	"webHostingPortal/models"
	"webHostingPortal/repository"
)

// Services covers customer service views and the admin order and user desks.
type Services struct {
	services   *repository.ServiceRepository
	users      *repository.UserRepository
	subdomains *repository.SubdomainRepository
	log        *clog.Logger
}

func NewServices(services *repository.ServiceRepository, users *repository.UserRepository, subdomains *repository.SubdomainRepository) *Services {
	return &Services{services: services, users: users, subdomains: subdomains, log: logging.For("services")}
}

// ListOwn returns the customer's services, newest first.
func (s *Services) ListOwn(ctx context.Context, userID string) ([]models.Service, error) {
	list, err := s.services.ListByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load services.", err)
	}
	return list, nil
}

// GetOwn returns one of the customer's services.
func (s *Services) GetOwn(ctx context.Context, userID, id string) (*models.Service, error) {
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("Failed to load the service.", err)
	}
	if svc == nil || svc.UserID != userID {
		return nil, apperrors.NotFound("Service not found.")
	}
	return svc, nil
}

// OrderQuery filters the admin order list.
type OrderQuery struct {
	Statuses  []models.ServiceStatus
	UserID    string
	From, To  *time.Time
	PageSize  int
	PageToken string
}

// OrderPage is one page of orders.
type OrderPage struct {
	Orders        []models.Service `json:"orders"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
}

func (s *Services) ListOrders(ctx context.Context, q OrderQuery) (*OrderPage, error) {
	for _, st := range q.Statuses {
		if !st.Valid() {
			return nil, apperrors.Validation("Unknown service status.", map[string]string{"status": string(st)})
		}
	}
	var after repository.Cursor
	if q.PageToken != "" {
		c, err := repository.DecodeCursor(q.PageToken)
		if err != nil {
			return nil, apperrors.Validation("Invalid page token.", nil)
		}
		after = c
	}
	list, next, err := s.services.ListAdmin(ctx, repository.ListServicesAdminParams{
		Statuses:  q.Statuses,
		UserID:    q.UserID,
		OrderFrom: q.From,
		OrderTo:   q.To,
		PageSize:  q.PageSize,
		After:     after,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to load orders.", err)
	}
	return &OrderPage{Orders: list, NextPageToken: next}, nil
}

func (s *Services) UpdateServiceStatus(ctx context.Context, id string, status models.ServiceStatus) (*models.Service, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("Unknown service status.", map[string]string{"status": "Choose Active, Pending, Suspended, Terminated or Banned."})
	}
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("Failed to load the service.", err)
	}
	if svc == nil {
		return nil, apperrors.NotFound("Service not found.")
	}
	// MySQL reports zero affected rows when the status is unchanged.
	if err := s.services.UpdateStatus(ctx, id, status); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Internal("Failed to update the service.", err)
	}
	svc.Status = status
	s.log.Info("service status changed", "service", id, "status", status)
	return svc, nil
}

// UserPage is one page of customer accounts.
type UserPage struct {
	Users []models.User `json:"users"`
	Total int           `json:"total"`
}

func (s *Services) ListUsers(ctx context.Context, limit, offset int) (*UserPage, error) {
	list, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("Failed to load users.", err)
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to load users.", err)
	}
	if list == nil {
		list = []models.User{}
	}
	return &UserPage{Users: list, Total: total}, nil
}

// UserDetail is an account with everything it owns.
type UserDetail struct {
	User       *models.User       `json:"user"`
	Services   []models.Service   `json:"services"`
	Subdomains []models.Subdomain `json:"subdomains"`
}

func (s *Services) GetUser(ctx context.Context, id string) (*UserDetail, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("Failed to load the user.", err)
	}
	if u == nil {
		return nil, apperrors.NotFound("User not found.")
	}
	svcs, err := s.services.ListByUserID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("Failed to load the user's services.", err)
	}
	subs, err := s.subdomains.ListByUserID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("Failed to load the user's subdomains.", err)
	}
	return &UserDetail{User: u, Services: svcs, Subdomains: subs}, nil
}

func (s *Services) UpdateUserStatus(ctx context.Context, id string, status models.UserStatus) (*models.User, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("Unknown user status.", map[string]string{"status": "Choose Pending, Active, Suspended, Banned or Terminated."})
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("Failed to load the user.", err)
	}
	if u == nil {
		return nil, apperrors.NotFound("User not found.")
	}
	if err := s.users.UpdateStatus(ctx, id, status); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Internal("Failed to update the user.", err)
	}
	u.Status = status
	s.log.Info("user status changed", "user", id, "status", status)
	return u, nil
}
