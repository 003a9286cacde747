package types

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the users table. The favorites JSON key keeps the
// misspelling the old clients depend on.
type User struct {
	ID           uuid.UUID   `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	FullName     string      `json:"fullName"`
	Avatar       string      `json:"avatar"`
	IsAdmin      bool        `json:"isAdmin"`
	Favorites    []uuid.UUID `json:"favortites"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

type RegisterUserParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar,omitempty"`
}

type LoginParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the login payload: the signed token plus the public
// account fields.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

type UpdateNameParams struct {
	FullName string `json:"fullName"`
}

type UpdatePasswordParams struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type UpdateAvatarParams struct {
	Avatar string `json:"avatar"`
}

type AddFavoriteParams struct {
	DestinationID uuid.UUID `json:"destinationId"`
}

type SetAdminParams struct {
	IsAdmin bool `json:"isAdmin"`
}
