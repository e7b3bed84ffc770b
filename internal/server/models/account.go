package models

import "time"

// Account is the organizational account a user may be linked to.
type Account struct {
	ID        string
	Name      string
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
