package repository

import (
	"context"

	"shop-auth/internal/domain/user"
	"shop-auth/internal/permission"
)

// Names of the application settings rows.
const (
	SettingSigningKey = "token_signing_key"
	SettingTimeZone   = "time_zone"
)

// UserRepository defines user data access operations
type UserRepository interface {
	// Create assigns role and permissions as given; CreateFirst decides them.
	Create(ctx context.Context, input user.CreateUserInput) (*user.User, error)
	// CreateFirst inserts input with firstRole and firstPerms if no user exists
	// yet, otherwise with input's own role and permissions. The check and the
	// insert are atomic.
	CreateFirst(ctx context.Context, input user.CreateUserInput, firstRole permission.Role, firstPerms *permission.Set) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	ListByRole(ctx context.Context, role permission.Role) ([]*user.User, error)
	// ModifyPermissions hands modify the user's current permissions while the
	// row is locked and stores them if modify reports a change. It returns the
	// permissions as they stand afterwards.
	ModifyPermissions(ctx context.Context, username string, modify func(*permission.Set) (bool, error)) (*permission.Set, error)
	UpdateRole(ctx context.Context, username string, role permission.Role) error
	UpdateRefreshFingerprint(ctx context.Context, username, fingerprint string) error
}

// SettingsRepository stores named application settings
type SettingsRepository interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
	Delete(ctx context.Context, name string) error
}
