package models

import "time"

// UserStatus is the lifecycle state of a customer account.
type UserStatus string

const (
	UserStatusPending    UserStatus = "Pending"
	UserStatusActive     UserStatus = "Active"
	UserStatusSuspended  UserStatus = "Suspended"
	UserStatusBanned     UserStatus = "Banned"
	UserStatusTerminated UserStatus = "Terminated"
)

// Valid reports whether s is a known user status.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusPending, UserStatusActive, UserStatusSuspended, UserStatusBanned, UserStatusTerminated:
		return true
	}
	return false
}

// User is a customer account. It maps to the `users` table.
// One-time codes are stored alongside their expiry; an empty code means none is pending.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Status       UserStatus `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`

	VerificationCode    string    `db:"verification_code" json:"-"`
	VerificationExpires time.Time `db:"verification_expires" json:"-"`
	LoginCode           string    `db:"login_code" json:"-"`
	LoginCodeExpires    time.Time `db:"login_code_expires" json:"-"`
	ResetOTP            string    `db:"reset_otp" json:"-"`
	ResetOTPExpires     time.Time `db:"reset_otp_expires" json:"-"`
}

// CanSignIn reports whether the account may complete a login.
func (u *User) CanSignIn() bool {
	return u != nil && u.Status == UserStatusActive
}
