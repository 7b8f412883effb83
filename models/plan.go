package models

import "time"

// UnlimitedWebsites is the Websites value for plans without a site cap.
const UnlimitedWebsites = -1

// Plan is a hosting offer in the storefront catalog.
type Plan struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Price     float64   `db:"price" json:"price"`
	Websites  int       `db:"websites" json:"websites"`
	StorageMB int       `db:"storage_mb" json:"storage"`
	Features  []string  `db:"features" json:"features"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// IsFree reports whether the plan costs nothing.
func (p *Plan) IsFree() bool { return p.Price <= 0 }
