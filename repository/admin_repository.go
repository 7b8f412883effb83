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

type AdminRepository struct {
	db *db.DB
}

func NewAdminRepository(d *db.DB) *AdminRepository {
	return &AdminRepository{db: d}
}

// Create inserts an admin account. Role defaults to admin.
func (r *AdminRepository) Create(ctx context.Context, a *models.Admin) (*models.Admin, error) {
	if a == nil {
		return nil, errors.New("admin is nil")
	}
	if a.ID == "" {
		a.ID = newID()
	}
	if a.Role == "" {
		a.Role = models.RoleAdmin
	}
	a.CreatedAt = stamp(a.CreatedAt)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO admins (id, email, password_hash, role, created_at) VALUES (?,?,?,?,?)`,
		a.ID, a.Email, a.PasswordHash, a.Role, ts(a.CreatedAt))
	if err != nil {
		return nil, mapInsertErr(err)
	}
	return a, nil
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var a models.Admin
	var created string
	err := r.db.QueryRowContext(ctx, `SELECT id, email, password_hash, role, created_at FROM admins WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.CreatedAt = parseTS(created)
	return &a, nil
}

// UpdateRole changes the role of the admin with the given email.
func (r *AdminRepository) UpdateRole(ctx context.Context, email, role string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE admins SET role = ? WHERE email = ?`, role, strings.ToLower(strings.TrimSpace(email)))
	return err
}
