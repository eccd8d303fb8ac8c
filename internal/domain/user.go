package domain

import "time"

// User is a local account of the order dashboard. Accounts are provisioned
// out-of-band and never created by auto-login.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
