// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered principal. Deleted users keep their row but can never
// authenticate again.
type User struct {
	ID        string
	Email     string
	Password  string // bcrypt hash, never the plaintext
	Name      string
	AccountID *string
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasAccount reports whether the user row carries an account reference.
func (u User) HasAccount() bool {
	return u.AccountID != nil && *u.AccountID != ""
}
