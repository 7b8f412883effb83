package models

import "time"

// CheckoutStatus is a step of the checkout flow.
type CheckoutStatus string

const (
	CheckoutReview    CheckoutStatus = "review"
	CheckoutPayment   CheckoutStatus = "payment"
	CheckoutCompleted CheckoutStatus = "completed"
	CheckoutCancelled CheckoutStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s CheckoutStatus) Terminal() bool {
	return s == CheckoutCompleted || s == CheckoutCancelled
}

// Checkout tracks one customer's progress from plan selection to a purchased service.
type Checkout struct {
	ID            string         `db:"id" json:"id"`
	UserID        string         `db:"user_id" json:"userId"`
	PlanID        string         `db:"plan_id" json:"planId"`
	Status        CheckoutStatus `db:"status" json:"status"`
	PaymentMethod string         `db:"payment_method" json:"paymentMethod,omitempty"`
	ServiceID     string         `db:"service_id" json:"serviceId,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}
