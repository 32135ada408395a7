package model

import "time"

// User is an account holder. Preferences carries signup profile fields.
type User struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	Name         string            `json:"name"`
	PasswordHash string            `json:"-"`
	Preferences  map[string]string `json:"preferences"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Session is a login; deleting it invalidates tokens issued for it.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}
