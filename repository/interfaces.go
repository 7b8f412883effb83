package repository

import (
	"context"
	"time"

	"webHostingPortal/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Count(ctx context.Context) (int, error)
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SetCode(ctx context.Context, id string, kind CodeKind, code string, expires time.Time) error
}

// AdminRepositoryI defines operations on Admin entities.
type AdminRepositoryI interface {
	Create(ctx context.Context, a *models.Admin) (*models.Admin, error)
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
}

// ServiceRepositoryI defines operations on purchased services.
type ServiceRepositoryI interface {
	Create(ctx context.Context, s *models.Service) (*models.Service, error)
	GetByID(ctx context.Context, id string) (*models.Service, error)
	GetBySubdomain(ctx context.Context, fqdn string) (*models.Service, error)
	ListByUserID(ctx context.Context, userID string) ([]models.Service, error)
	HasPaidService(ctx context.Context, userID string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status models.ServiceStatus) error
	SetSubdomain(ctx context.Context, id, fqdn string) error
}

// SubdomainRepositoryI defines operations on provisioned subdomains.
type SubdomainRepositoryI interface {
	Create(ctx context.Context, s *models.Subdomain) (*models.Subdomain, error)
	GetByFQDN(ctx context.Context, fqdn string) (*models.Subdomain, error)
	ListByUserID(ctx context.Context, userID string) ([]models.Subdomain, error)
}

// SettingsRepositoryI defines operations on settings documents.
type SettingsRepositoryI interface {
	Get(ctx context.Context, section string) (*models.Setting, error)
	Put(ctx context.Context, section string, v any) error
}

// AuthLogRepositoryI defines operations on the authentication event log.
type AuthLogRepositoryI interface {
	Create(ctx context.Context, l *models.AuthLog) (*models.AuthLog, error)
	ExistsForIP(ctx context.Context, action, ip string) (bool, error)
}

var (
	_ UserRepositoryI      = (*UserRepository)(nil)
	_ AdminRepositoryI     = (*AdminRepository)(nil)
	_ ServiceRepositoryI   = (*ServiceRepository)(nil)
	_ SubdomainRepositoryI = (*SubdomainRepository)(nil)
	_ SettingsRepositoryI  = (*SettingsRepository)(nil)
	_ AuthLogRepositoryI   = (*AuthLogRepository)(nil)
)
