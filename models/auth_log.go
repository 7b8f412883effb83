package models

import "time"

// Auth log actions.
const (
	AuthActionLogin        = "Login"
	AuthActionRegister     = "Register"
	AuthActionVerification = "Verification"
)

// AuthLog records an authentication event and the client IP it came from.
type AuthLog struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Action    string    `db:"action" json:"action"`
	IP        string    `db:"ip" json:"ip"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// MultiLoginGroup lists the distinct accounts registered from one IP.
type MultiLoginGroup struct {
	IP     string   `json:"ip"`
	Emails []string `json:"emails"`
	Count  int      `json:"count"`
}
