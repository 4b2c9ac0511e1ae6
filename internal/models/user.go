package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered member account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique). Used for login.
	Email string

	// DisplayName is the name shown to other group members.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// UpiVPA is the user's UPI virtual payment address (e.g. "name@upi").
	// Optional; when set, obligations owed to this user carry a UPI deep
	// link so the payer can settle out of band.
	UpiVPA string

	// TotalPaid is the lifetime sum of confirmed obligation amounts this
	// user has paid out, in paise.
	TotalPaid int64

	// TotalEarned is the lifetime sum of confirmed obligation amounts this
	// user has received, in paise.
	TotalEarned int64

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// NewUser creates a user with a fresh ID and creation timestamp.
func NewUser(email, displayName, passwordHash string) *User {
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	}
}
