package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"webHostingPortal/internal/db"
	"webHostingPortal/models"
)

// ServiceRepository stores purchased services (customer orders).
type ServiceRepository struct {
	db *db.DB
}

func NewServiceRepository(d *db.DB) *ServiceRepository {
	return &ServiceRepository{db: d}
}

const serviceColumns = `id, user_id, plan_id, plan_name, price, websites, storage_mb, features, status, payment_method, subdomain, order_date`

// Create inserts a service. Status defaults to Pending.
func (r *ServiceRepository) Create(ctx context.Context, s *models.Service) (*models.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return insertService(ctx, r.db, s)
}

// CreateTx is Create inside an existing transaction.
func (r *ServiceRepository) CreateTx(ctx context.Context, tx *db.Tx, s *models.Service) (*models.Service, error) {
	return insertService(ctx, tx, s)
}

func insertService(ctx context.Context, ex execer, s *models.Service) (*models.Service, error) {
	if s == nil {
		return nil, errors.New("service is nil")
	}
	if s.ID == "" {
		s.ID = newID()
	}
	if s.Status == "" {
		s.Status = models.ServiceStatusPending
	}
	s.OrderDate = stamp(s.OrderDate)
	_, err := ex.ExecContext(ctx, `INSERT INTO services (`+serviceColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.UserID, s.PlanID, s.PlanName, s.Price, s.Websites, s.StorageMB, encodeList(s.Features),
		string(s.Status), s.PaymentMethod, s.Subdomain, ts(s.OrderDate))
	if err != nil {
		return nil, mapInsertErr(err)
	}
	return s, nil
}

func (r *ServiceRepository) GetByID(ctx context.Context, id string) (*models.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanService(r.db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = ?`, id))
}

// GetBySubdomain returns the service bound to the given fully qualified subdomain.
func (r *ServiceRepository) GetBySubdomain(ctx context.Context, fqdn string) (*models.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanService(r.db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE subdomain = ? ORDER BY order_date DESC LIMIT 1`, fqdn))
}

// ListByUserID returns a user's services newest first.
func (r *ServiceRepository) ListByUserID(ctx context.Context, userID string) ([]models.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE user_id = ? ORDER BY order_date DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanServiceRows(rows)
}

// ListAll returns every service. Used for dashboard aggregates.
func (r *ServiceRepository) ListAll(ctx context.Context) ([]models.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY order_date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanServiceRows(rows)
}

// HasPaidService reports whether the user owns an active service with a
// non-zero price. Pending orders from unfinished payments do not count.
func (r *ServiceRepository) HasPaidService(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM services WHERE user_id = ? AND price > 0 AND status = ?`, userID, string(models.ServiceStatusActive)).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateStatus sets a service status. Returns sql.ErrNoRows for an unknown id.
func (r *ServiceRepository) UpdateStatus(ctx context.Context, id string, status models.ServiceStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE services SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetSubdomain binds a provisioned subdomain to a service.
func (r *ServiceRepository) SetSubdomain(ctx context.Context, id, fqdn string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE services SET subdomain = ? WHERE id = ?`, fqdn, id)
	return err
}

func scanService(row rowScanner) (*models.Service, error) {
	var s models.Service
	var status, features, orderDate string
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.PlanName, &s.Price, &s.Websites, &s.StorageMB, &features,
		&status, &s.PaymentMethod, &s.Subdomain, &orderDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.Status = models.ServiceStatus(status)
	s.Features = decodeList(features)
	s.OrderDate = parseTS(orderDate)
	return &s, nil
}

func scanServiceRows(rows *sql.Rows) ([]models.Service, error) {
	out := []models.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
