package domain

import (
	"fmt"
	"time"
)

// User is an account that owns documents and a tenant vector namespace.
type User struct {
	ID        string
	Email     string
	Active    bool
	CreatedAt time.Time
}

// Principal is the authenticated identity attached to a request by the
// authentication layer. Every ingestion and query call requires an active
// principal.
type Principal struct {
	UserID string
	Email  string
	Active bool
}

// AccessToken is an opaque bearer credential for a user. Only the SHA-256
// hash of the token is stored.
type AccessToken struct {
	ID        string
	UserID    string
	Name      string
	TokenHash string
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Revoked reports whether the token has been revoked.
func (t *AccessToken) Revoked() bool {
	return t.RevokedAt != nil
}

// ValidateUser validates a User instance
func ValidateUser(u *User) error {
	if u == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if u.ID == "" {
		return fmt.Errorf("user ID is required")
	}
	if u.Email == "" {
		return fmt.Errorf("user Email is required")
	}
	return nil
}

// ValidateAccessToken validates an AccessToken instance
func ValidateAccessToken(t *AccessToken) error {
	if t == nil {
		return fmt.Errorf("access token cannot be nil")
	}
	if t.ID == "" {
		return fmt.Errorf("access token ID is required")
	}
	if t.UserID == "" {
		return fmt.Errorf("access token UserID is required")
	}
	if t.TokenHash == "" {
		return fmt.Errorf("access token TokenHash is required")
	}
	return nil
}
