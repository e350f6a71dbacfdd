package user

import (
	"time"

	"github.com/google/uuid"

	"shop-auth/internal/permission"
)

type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	Role         permission.Role
	Permissions  *permission.Set
	Enabled      bool
	// RefreshFingerprint identifies the only refresh token currently accepted.
	RefreshFingerprint string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type CreateUserInput struct {
	Username     string
	Email        string
	PasswordHash string
	Role         permission.Role
	Permissions  *permission.Set
}
