package model

import "time"

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"date_joined"`
}

// AuthToken is an opaque API key bound to a user.
type AuthToken struct {
	Key       string    `json:"token"`
	UserID    int64     `json:"-"`
	CreatedAt time.Time `json:"-"`
}
