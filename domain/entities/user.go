package entities

import (
	"errors"
	"strings"
	"time"
)

// UserRole represents the role of a user account
type UserRole string

const (
	UserRoleClient UserRole = "cliente"
	UserRoleAdmin  UserRole = "admin"
)

// User represents an account in the `usuarios` collection. The password hash
// never leaves the server.
type User struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	Email        string    `json:"email" bson:"email"`
	Name         string    `json:"nombre" bson:"nombre"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	Role         UserRole  `json:"rol" bson:"rol"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// Validate validates the user data
func (u *User) Validate() error {
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return errors.New("a valid email is required")
	}
	if u.Name == "" {
		return errors.New("nombre is required")
	}
	if u.Role != UserRoleClient && u.Role != UserRoleAdmin {
		return errors.New("invalid role")
	}
	return nil
}

// IsAdmin reports whether the user may manage the catalog and see all
// appointments.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
