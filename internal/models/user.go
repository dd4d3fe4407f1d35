package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id" bson:"_id"`

	// Email is the user's email address (unique). Used for login.
	Email string `json:"email" bson:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"-" bson:"passwordHash"`

	// CreatedAt is when the account was registered.
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// NewUser creates a user with a fresh ID and creation time.
func NewUser(email, passwordHash string) *User {
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
}
