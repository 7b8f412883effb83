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

type TicketRepository struct {
	db *db.DB
}

func NewTicketRepository(d *db.DB) *TicketRepository {
	return &TicketRepository{db: d}
}

const ticketColumns = `id, user_id, user_email, title, description, user_type, priority, priority_reason, status, created_at, updated_at`

// Create inserts a ticket. Status defaults to Open.
func (r *TicketRepository) Create(ctx context.Context, t *models.Ticket) (*models.Ticket, error) {
	if t == nil {
		return nil, errors.New("ticket is nil")
	}
	if t.ID == "" {
		t.ID = newID()
	}
	if t.Status == "" {
		t.Status = models.TicketStatusOpen
	}
	t.CreatedAt = stamp(t.CreatedAt)
	t.UpdatedAt = t.CreatedAt
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO tickets (`+ticketColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.UserID, t.UserEmail, t.Title, t.Description, t.UserType, t.Priority, t.PriorityReason,
		string(t.Status), ts(t.CreatedAt), ts(t.UpdatedAt))
	if err != nil {
		return nil, mapInsertErr(err)
	}
	return t, nil
}

// GetByID returns the ticket with its replies oldest first.
func (r *TicketRepository) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	t, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id))
	if err != nil || t == nil {
		return t, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, ticket_id, author, author_name, message, created_at FROM ticket_replies WHERE ticket_id = ? ORDER BY created_at ASC, id ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	t.Replies = []models.TicketReply{}
	for rows.Next() {
		var rp models.TicketReply
		var created string
		if err := rows.Scan(&rp.ID, &rp.TicketID, &rp.Author, &rp.AuthorName, &rp.Message, &created); err != nil {
			return nil, err
		}
		rp.CreatedAt = parseTS(created)
		t.Replies = append(t.Replies, rp)
	}
	return t, rows.Err()
}

// ListTicketsParams filters List. Empty fields match everything.
type ListTicketsParams struct {
	UserID   string
	Statuses []models.TicketStatus
}

// List returns tickets newest first, without replies.
func (r *TicketRepository) List(ctx context.Context, p ListTicketsParams) ([]models.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var where []string
	var args []any
	if p.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, p.UserID)
	}
	if len(p.Statuses) > 0 {
		ph := make([]string, len(p.Statuses))
		for i, s := range p.Statuses {
			ph[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+strings.Join(ph, ",")+")")
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TicketRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&n)
	return n, err
}

// UpdateStatus sets the ticket status. Returns sql.ErrNoRows for an unknown id.
func (r *TicketRepository) UpdateStatus(ctx context.Context, id string, status models.TicketStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`, string(status), ts(now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddReply appends a reply and moves the ticket to status in one transaction.
func (r *TicketRepository) AddReply(ctx context.Context, rp *models.TicketReply, status models.TicketStatus) (*models.TicketReply, error) {
	if rp == nil {
		return nil, errors.New("reply is nil")
	}
	if rp.ID == "" {
		rp.ID = newID()
	}
	rp.CreatedAt = stamp(rp.CreatedAt)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, `UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`, string(status), ts(rp.CreatedAt), rp.TicketID)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return nil, sql.ErrNoRows
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO ticket_replies (id, ticket_id, author, author_name, message, created_at) VALUES (?,?,?,?,?,?)`,
		rp.ID, rp.TicketID, rp.Author, rp.AuthorName, rp.Message, ts(rp.CreatedAt)); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rp, nil
}

// DeleteAll removes every ticket and reply and returns the number of tickets removed.
func (r *TicketRepository) DeleteAll(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ticket_replies`); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tickets`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

func scanTicket(row rowScanner) (*models.Ticket, error) {
	var t models.Ticket
	var status, created, updated string
	err := row.Scan(&t.ID, &t.UserID, &t.UserEmail, &t.Title, &t.Description, &t.UserType, &t.Priority,
		&t.PriorityReason, &status, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.Status = models.TicketStatus(status)
	t.CreatedAt = parseTS(created)
	t.UpdatedAt = parseTS(updated)
	return &t, nil
}
