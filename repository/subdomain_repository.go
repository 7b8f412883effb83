package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"webHostingPortal/internal/db"
	"webHostingPortal/models"
)

type SubdomainRepository struct {
	db *db.DB
}

func NewSubdomainRepository(d *db.DB) *SubdomainRepository {
	return &SubdomainRepository{db: d}
}

const subdomainColumns = `id, user_id, label, fqdn, service_id, created_at`

// Create records a provisioned subdomain. The fqdn column is unique, so a
// second record for the same name yields ErrDuplicate.
func (r *SubdomainRepository) Create(ctx context.Context, s *models.Subdomain) (*models.Subdomain, error) {
	if s == nil {
		return nil, errors.New("subdomain is nil")
	}
	if s.ID == "" {
		s.ID = newID()
	}
	s.CreatedAt = stamp(s.CreatedAt)
	s.FQDN = strings.ToLower(s.FQDN)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO subdomains (`+subdomainColumns+`) VALUES (?,?,?,?,?,?)`,
		s.ID, s.UserID, s.Label, s.FQDN, s.ServiceID, ts(s.CreatedAt))
	if err != nil {
		return nil, mapInsertErr(err)
	}
	return s, nil
}

func (r *SubdomainRepository) GetByFQDN(ctx context.Context, fqdn string) (*models.Subdomain, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanSubdomain(r.db.QueryRowContext(ctx, `SELECT `+subdomainColumns+` FROM subdomains WHERE fqdn = ?`, strings.ToLower(fqdn)))
}

// ListByUserID returns a user's subdomains newest first.
func (r *SubdomainRepository) ListByUserID(ctx context.Context, userID string) ([]models.Subdomain, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+subdomainColumns+` FROM subdomains WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Subdomain{}
	for rows.Next() {
		s, err := scanSubdomain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanSubdomain(row rowScanner) (*models.Subdomain, error) {
	var s models.Subdomain
	var created string
	if err := row.Scan(&s.ID, &s.UserID, &s.Label, &s.FQDN, &s.ServiceID, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.CreatedAt = parseTS(created)
	return &s, nil
}
