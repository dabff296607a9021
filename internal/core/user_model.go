package core

import (
	"context"
	"time"
)

// User is an account that can authenticate against the service.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Actor returns the identity the user acts as.
func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

// UserService provides user lookup and credential checks.
type UserService interface {
	// GetByUsername finds an active user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int64) (*User, error)

	// Authenticate verifies a password against the stored bcrypt hash.
	// Unknown users and wrong passwords both yield ErrUnauthorized.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	// CreateUser stores a new user with a bcrypt hash of password.
	CreateUser(ctx context.Context, username, email, password string, role Role) (*User, error)
}
