package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"webHostingPortal/internal/db"
	"webHostingPortal/models"
)

// SettingsRepository stores one JSON document per settings section.
type SettingsRepository struct {
	db *db.DB
}

func NewSettingsRepository(d *db.DB) *SettingsRepository {
	return &SettingsRepository{db: d}
}

// Get returns the raw section document, or nil when it was never saved.
func (r *SettingsRepository) Get(ctx context.Context, section string) (*models.Setting, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var s models.Setting
	var body, updated string
	err := r.db.QueryRowContext(ctx, `SELECT section, body, updated_at FROM settings WHERE section = ?`, section).Scan(&s.Section, &body, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.Body = json.RawMessage(body)
	s.UpdatedAt = parseTS(updated)
	return &s, nil
}

// Put replaces the section document with the JSON encoding of v.
func (r *SettingsRepository) Put(ctx context.Context, section string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	now := ts(time.Now())
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE settings SET body = ?, updated_at = ? WHERE section = ?`, string(body), now, section)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO settings (section, body, updated_at) VALUES (?,?,?)`, section, string(body), now)
	return mapInsertErr(err)
}

// List returns every saved section.
func (r *SettingsRepository) List(ctx context.Context) ([]models.Setting, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT section, body, updated_at FROM settings ORDER BY section`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Setting{}
	for rows.Next() {
		var s models.Setting
		var body, updated string
		if err := rows.Scan(&s.Section, &body, &updated); err != nil {
			return nil, err
		}
		s.Body = json.RawMessage(body)
		s.UpdatedAt = parseTS(updated)
		out = append(out, s)
	}
	return out, rows.Err()
}
