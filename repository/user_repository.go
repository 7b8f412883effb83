package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"webHostingPortal/internal/db"
	"webHostingPortal/models"
)

// CodeKind selects which one-time code column pair to update.
type CodeKind int

const (
	CodeVerification CodeKind = iota
	CodeLogin
	CodeReset
)

func (k CodeKind) columns() (string, string, error) {
	switch k {
	case CodeVerification:
		return "verification_code", "verification_expires", nil
	case CodeLogin:
		return "login_code", "login_code_expires", nil
	case CodeReset:
		return "reset_otp", "reset_otp_expires", nil
	}
	return "", "", fmt.Errorf("unknown code kind %d", k)
}

type UserRepository struct {
	db *db.DB
}

func NewUserRepository(d *db.DB) *UserRepository {
	return &UserRepository{db: d}
}

const userColumns = `id, email, password_hash, status, verification_code, verification_expires, login_code, login_code_expires, reset_otp, reset_otp_expires, created_at`

// Create inserts a new user. ID and CreatedAt are filled in when empty and the
// email is stored lowercased. A taken email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if u == nil {
		return nil, errors.New("user is nil")
	}
	if u.ID == "" {
		u.ID = newID()
	}
	u.CreatedAt = stamp(u.CreatedAt)
	if u.Status == "" {
		u.Status = models.UserStatusActive
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.PasswordHash, string(u.Status),
		u.VerificationCode, ts(u.VerificationExpires),
		u.LoginCode, ts(u.LoginCodeExpires),
		u.ResetOTP, ts(u.ResetOTPExpires),
		ts(u.CreatedAt))
	if err != nil {
		return nil, mapInsertErr(err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email))))
}

// List returns users newest first.
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// UpdateStatus sets the account status. Returns sql.ErrNoRows for an unknown id.
func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE users SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	return err
}

// SetCode stores a one-time code and its expiry. An empty code clears it.
func (r *UserRepository) SetCode(ctx context.Context, id string, kind CodeKind, code string, expires time.Time) error {
	codeCol, expCol, err := kind.columns()
	if err != nil {
		return err
	}
	if code == "" {
		expires = time.Time{}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err = r.db.ExecContext(ctx, `UPDATE users SET `+codeCol+` = ?, `+expCol+` = ? WHERE id = ?`, code, ts(expires), id)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var status, verExp, loginExp, resetExp, created string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &status,
		&u.VerificationCode, &verExp, &u.LoginCode, &loginExp, &u.ResetOTP, &resetExp, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Status = models.UserStatus(status)
	u.VerificationExpires = parseTS(verExp)
	u.LoginCodeExpires = parseTS(loginExp)
	u.ResetOTPExpires = parseTS(resetExp)
	u.CreatedAt = parseTS(created)
	return &u, nil
}
