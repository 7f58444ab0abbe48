package users

import "time"

// User is a tenant account. Accounts are created through Google sign-in;
// the stored refresh token backs the transparent session refresh flow.
type User struct {
	ID       string `json:"id" db:"id"`
	Email    string `json:"email" db:"email"`
	Name     string `json:"name" db:"name"`
	Avatar   string `json:"avatar,omitempty" db:"avatar"`
	Verified bool   `json:"verified" db:"verified"`

	// GoogleRefreshToken is never serialized to clients.
	GoogleRefreshToken string `json:"-" db:"google_refresh_token"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
