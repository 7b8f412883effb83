package models

import "time"

// ServiceStatus represents the state of a purchased hosting service.
type ServiceStatus string

const (
	ServiceStatusActive     ServiceStatus = "Active"
	ServiceStatusPending    ServiceStatus = "Pending"
	ServiceStatusSuspended  ServiceStatus = "Suspended"
	ServiceStatusTerminated ServiceStatus = "Terminated"
	ServiceStatusBanned     ServiceStatus = "Banned"
)

// Valid reports whether s is a known service status.
func (s ServiceStatus) Valid() bool {
	switch s {
	case ServiceStatusActive, ServiceStatusPending, ServiceStatusSuspended, ServiceStatusTerminated, ServiceStatusBanned:
		return true
	}
	return false
}

// Payment methods offered at checkout.
const (
	PaymentFakeGateway = "fake"
	PaymentRazorpay    = "razorpay"
)

// DefaultServiceStorageMB is assumed when a service snapshot carries no storage size.
const DefaultServiceStorageMB = 100

// Service is an order: a plan bought by a user. The plan's terms are copied at
// purchase time so later catalog edits do not change what the customer bought.
type Service struct {
	ID            string        `db:"id" json:"id"`
	UserID        string        `db:"user_id" json:"userId"`
	PlanID        string        `db:"plan_id" json:"planId"`
	PlanName      string        `db:"plan_name" json:"name"`
	Price         float64       `db:"price" json:"price"`
	Websites      int           `db:"websites" json:"websites"`
	StorageMB     int           `db:"storage_mb" json:"storage"`
	Features      []string      `db:"features" json:"features"`
	Status        ServiceStatus `db:"status" json:"status"`
	PaymentMethod string        `db:"payment_method" json:"paymentMethod"`
	Subdomain     string        `db:"subdomain" json:"subdomain,omitempty"`
	OrderDate     time.Time     `db:"order_date" json:"orderDate"`
}

// NewServiceFromPlan snapshots p into a service owned by userID.
func NewServiceFromPlan(userID string, p *Plan, method string, status ServiceStatus) *Service {
	features := make([]string, len(p.Features))
	copy(features, p.Features)
	return &Service{
		UserID:        userID,
		PlanID:        p.ID,
		PlanName:      p.Name,
		Price:         p.Price,
		Websites:      p.Websites,
		StorageMB:     p.StorageMB,
		Features:      features,
		Status:        status,
		PaymentMethod: method,
	}
}
