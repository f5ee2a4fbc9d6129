// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered identity. The email is the sole login key and is
// unique across the users table; Username is a display handle and has nothing
// to do with GitHub.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserUpdate is a partial update. A nil field keeps the stored value.
type UserUpdate struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Name     *string `json:"name,omitempty"`
}

// Empty reports whether the update carries no fields at all.
func (u UserUpdate) Empty() bool {
	return u.Username == nil && u.Email == nil && u.Name == nil
}
