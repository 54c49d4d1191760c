package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is an admin-panel account.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Claims defines the structure of the JWT session claims. Expiry is enforced
// server-side on every request; client timers only drive UI refresh.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
