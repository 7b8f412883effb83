package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"webHostingPortal/internal/db"
	"webHostingPortal/models"
)

type AuthLogRepository struct {
	db *db.DB
}

func NewAuthLogRepository(d *db.DB) *AuthLogRepository {
	return &AuthLogRepository{db: d}
}

func (r *AuthLogRepository) Create(ctx context.Context, l *models.AuthLog) (*models.AuthLog, error) {
	if l == nil {
		return nil, errors.New("auth log is nil")
	}
	if l.ID == "" {
		l.ID = newID()
	}
	l.CreatedAt = stamp(l.CreatedAt)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO auth_logs (id, email, action, ip, created_at) VALUES (?,?,?,?,?)`,
		l.ID, l.Email, l.Action, l.IP, ts(l.CreatedAt))
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ExistsForIP reports whether an event with action was logged from ip.
func (r *AuthLogRepository) ExistsForIP(ctx context.Context, action, ip string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM auth_logs WHERE action = ? AND ip = ?`, action, ip).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns the most recent events first. limit <= 0 means 200.
func (r *AuthLogRepository) List(ctx context.Context, limit int) ([]models.AuthLog, error) {
	if limit <= 0 {
		limit = 200
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, email, action, ip, created_at FROM auth_logs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.AuthLog{}
	for rows.Next() {
		var l models.AuthLog
		var created string
		if err := rows.Scan(&l.ID, &l.Email, &l.Action, &l.IP, &created); err != nil {
			return nil, err
		}
		l.CreatedAt = parseTS(created)
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteAll clears the log and returns the number of rows removed.
func (r *AuthLogRepository) DeleteAll(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM auth_logs`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MultiLoginReport groups registrations by IP and returns the IPs that
// registered more than one distinct email, most emails first.
func (r *AuthLogRepository) MultiLoginReport(ctx context.Context) ([]models.MultiLoginGroup, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT ip, email FROM auth_logs WHERE action = ? AND ip <> '' ORDER BY ip, email`, models.AuthActionRegister)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byIP := map[string][]string{}
	var order []string
	for rows.Next() {
		var ip, email string
		if err := rows.Scan(&ip, &email); err != nil {
			return nil, err
		}
		if _, ok := byIP[ip]; !ok {
			order = append(order, ip)
		}
		byIP[ip] = append(byIP[ip], email)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := []models.MultiLoginGroup{}
	for _, ip := range order {
		if emails := byIP[ip]; len(emails) > 1 {
			out = append(out, models.MultiLoginGroup{IP: ip, Emails: emails, Count: len(emails)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}
