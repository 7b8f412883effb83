package repository

import (
	"context"
	"strings"
	"time"

	"webHostingPortal/models"
)

// ListServicesAdminParams represents filters and pagination for ListAdmin.
type ListServicesAdminParams struct {
	Statuses  []models.ServiceStatus
	UserID    string
	OrderFrom *time.Time // inclusive lower bound on order_date
	OrderTo   *time.Time // inclusive upper bound on order_date
	PageSize  int
	After     Cursor
}

// ListAdmin returns services matching filters ordered by order_date desc, id desc
// with keyset pagination. The second return value is the next page token, empty
// on the last page.
func (r *ServiceRepository) ListAdmin(ctx context.Context, p ListServicesAdminParams) ([]models.Service, string, error) {
	p.PageSize = clampPageSize(p.PageSize)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var where []string
	var args []any

	if len(p.Statuses) > 0 {
		placeholders := make([]string, len(p.Statuses))
		for i, s := range p.Statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if p.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, p.UserID)
	}
	if p.OrderFrom != nil {
		where = append(where, "order_date >= ?")
		args = append(args, ts(*p.OrderFrom))
	}
	if p.OrderTo != nil {
		where = append(where, "order_date <= ?")
		args = append(args, ts(*p.OrderTo))
	}
	if !p.After.IsZero() {
		where = append(where, "(order_date < ? OR (order_date = ? AND id < ?))")
		args = append(args, p.After.At, p.After.At, p.After.ID)
	}

	query := `SELECT ` + serviceColumns + ` FROM services`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY order_date DESC, id DESC LIMIT ?"
	args = append(args, p.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	list, err := scanServiceRows(rows)
	if err != nil {
		return nil, "", err
	}
	var next string
	if len(list) == p.PageSize {
		last := list[len(list)-1]
		next = EncodeCursor(Cursor{At: ts(last.OrderDate), ID: last.ID})
	}
	return list, next, nil
}
