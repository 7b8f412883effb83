package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"webHostingPortal/internal/db"
	"webHostingPortal/models"
)

type PlanRepository struct {
	db *db.DB
}

func NewPlanRepository(d *db.DB) *PlanRepository {
	return &PlanRepository{db: d}
}

const planColumns = `id, name, price, websites, storage_mb, features, created_at`

// Save inserts the plan or replaces an existing plan with the same id.
func (r *PlanRepository) Save(ctx context.Context, p *models.Plan) (*models.Plan, error) {
	if p == nil {
		return nil, errors.New("plan is nil")
	}
	if p.ID == "" {
		p.ID = newID()
	}
	p.CreatedAt = stamp(p.CreatedAt)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `UPDATE plans SET name = ?, price = ?, websites = ?, storage_mb = ?, features = ? WHERE id = ?`,
		p.Name, p.Price, p.Websites, p.StorageMB, encodeList(p.Features), p.ID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return p, nil
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO plans (`+planColumns+`) VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.Price, p.Websites, p.StorageMB, encodeList(p.Features), ts(p.CreatedAt))
	if err = mapInsertErr(err); err != nil && !errors.Is(err, ErrDuplicate) {
		return nil, err
	}
	// ErrDuplicate here means the UPDATE matched a row but changed nothing
	// (MySQL reports changed rows, not matched rows).
	return p, nil
}

func (r *PlanRepository) GetByID(ctx context.Context, id string) (*models.Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanPlan(r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id))
}

// List returns all plans cheapest first.
func (r *PlanRepository) List(ctx context.Context) ([]models.Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+planColumns+` FROM plans ORDER BY price ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PlanRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plans`).Scan(&n)
	return n, err
}

// Delete removes a plan. Returns sql.ErrNoRows for an unknown id.
func (r *PlanRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanPlan(row rowScanner) (*models.Plan, error) {
	var p models.Plan
	var features, created string
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Websites, &p.StorageMB, &features, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.Features = decodeList(features)
	p.CreatedAt = parseTS(created)
	return &p, nil
}
