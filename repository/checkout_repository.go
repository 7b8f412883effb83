package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"webHostingPortal/internal/db"
	"webHostingPortal/models"
)

// ErrStaleState is returned when a checkout was moved by someone else first.
var ErrStaleState = errors.New("checkout state changed concurrently")

type CheckoutRepository struct {
	db *db.DB
}

func NewCheckoutRepository(d *db.DB) *CheckoutRepository {
	return &CheckoutRepository{db: d}
}

const checkoutColumns = `id, user_id, plan_id, status, payment_method, service_id, created_at, updated_at`

// Create inserts a checkout in the review step.
func (r *CheckoutRepository) Create(ctx context.Context, c *models.Checkout) (*models.Checkout, error) {
	if c == nil {
		return nil, errors.New("checkout is nil")
	}
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Status == "" {
		c.Status = models.CheckoutReview
	}
	c.CreatedAt = stamp(c.CreatedAt)
	c.UpdatedAt = c.CreatedAt
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO checkouts (`+checkoutColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.UserID, c.PlanID, string(c.Status), c.PaymentMethod, c.ServiceID, ts(c.CreatedAt), ts(c.UpdatedAt))
	if err != nil {
		return nil, mapInsertErr(err)
	}
	return c, nil
}

func (r *CheckoutRepository) GetByID(ctx context.Context, id string) (*models.Checkout, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var c models.Checkout
	var status, created, updated string
	err := r.db.QueryRowContext(ctx, `SELECT `+checkoutColumns+` FROM checkouts WHERE id = ?`, id).
		Scan(&c.ID, &c.UserID, &c.PlanID, &status, &c.PaymentMethod, &c.ServiceID, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.Status = models.CheckoutStatus(status)
	c.CreatedAt = parseTS(created)
	c.UpdatedAt = parseTS(updated)
	return &c, nil
}

// Transition moves c from the status `from` to c.Status, persisting payment
// method and service id. It fails with ErrStaleState if the stored status is
// no longer `from`.
func (r *CheckoutRepository) Transition(ctx context.Context, c *models.Checkout, from models.CheckoutStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return transitionCheckout(ctx, r.db, c, from)
}

// TransitionTx is Transition inside an existing transaction.
func (r *CheckoutRepository) TransitionTx(ctx context.Context, tx *db.Tx, c *models.Checkout, from models.CheckoutStatus) error {
	return transitionCheckout(ctx, tx, c, from)
}

func transitionCheckout(ctx context.Context, ex execer, c *models.Checkout, from models.CheckoutStatus) error {
	c.UpdatedAt = now()
	res, err := ex.ExecContext(ctx, `UPDATE checkouts SET status = ?, payment_method = ?, service_id = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(c.Status), c.PaymentMethod, c.ServiceID, ts(c.UpdatedAt), c.ID, string(from))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleState
	}
	return nil
}
