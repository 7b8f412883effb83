package models

import "time"

// Subdomain is a free hostname provisioned under the configured root domain.
type Subdomain struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Label     string    `db:"label" json:"label"`
	FQDN      string    `db:"fqdn" json:"subdomain"`
	ServiceID string    `db:"service_id" json:"serviceId,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
