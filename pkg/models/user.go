package models

import "time"

// User is the persisted account record. Username keeps the casing the
// user typed; the store enforces case-insensitive uniqueness at write
// time and folds on lookup.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username" validate:"required,username"`
	Email        string    `json:"email,omitempty" validate:"omitempty,email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"displayName,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Public strips credential material for API responses.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		CreatedAt:   u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// PublicUser is the account shape returned by auth endpoints.
type PublicUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// Bookmark links a user to a token mint. A bookmark is meaningless
// without a valid owning user and a syntactically valid mint.
type Bookmark struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	TokenMint string    `json:"tokenMint" validate:"required,mint"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
