package auth

import "time"

// DefaultAccountTier is assigned by storage when registration omits a tier.
const DefaultAccountTier = "standard"

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// User represents a registered account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	DisplayName  *string
	AccountTier  string
	CreatedAt    time.Time
}

// UserSummary is the client-facing view of a user; it never carries the hash.
type UserSummary struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	DisplayName *string    `json:"displayName"`
	AccountTier string     `json:"accountTier"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// Summary projects the user for responses.
func (u *User) Summary(withCreated bool) UserSummary {
	s := UserSummary{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AccountTier: u.AccountTier,
	}
	if withCreated {
		created := u.CreatedAt
		s.CreatedAt = &created
	}
	return s
}

// NewUser holds the fields written at registration.
type NewUser struct {
	Email        string
	PasswordHash string
	DisplayName  *string
}
