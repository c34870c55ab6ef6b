package users

import "time"

// User represents a platform user account. The string UserID is what the
// access control layer keys role assignments on.
type User struct {
	ID           int64
	UserID       string
	Email        string
	DisplayName  string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
