package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"shop-auth/internal/audit"
	"shop-auth/internal/auth"
	"shop-auth/internal/domain/user"
	"shop-auth/internal/permission"
	"shop-auth/internal/system"
	"shop-auth/pkg/metrics"
)

// Consumer-side interfaces defined by handlers
// Each interface contains only the methods needed by the specific handler

// SecurityHandler interfaces
type TokenGate interface {
	TokensForCredentials(ctx context.Context, username, password string) (*auth.TokenPair, error)
	RefreshAccessToken(ctx context.Context, refreshToken string, ttlHours int) (string, error)
	NewRefreshToken(ctx context.Context, username, password string, ttlHours int) (string, error)
}

// UserHandler interfaces
type AccountService interface {
	Register(ctx context.Context, username, email, password string) (*user.User, error)
	AddPermission(ctx context.Context, username string, op permission.Operation, fn permission.Function) (*permission.Set, error)
	RemovePermission(ctx context.Context, username string, op permission.Operation, fn permission.Function) (*permission.Set, error)
}

// SystemHandler interfaces
type SystemService interface {
	RotateKey(ctx context.Context, candidate string) (system.KeyRotation, error)
	RotateToGeneratedKey(ctx context.Context) (system.KeyRotation, error)
	TimeZone() string
}

type MetricsSource interface {
	Snapshot() metrics.Snapshot
}

// AuditRecorder is shared by all handlers.
type AuditRecorder interface {
	Record(c echo.Context, action audit.Action, status audit.Status, subject string, metadata map[string]any)
	RecordError(c echo.Context, action audit.Action, subject string, err error)
	Query(ctx context.Context, filter audit.QueryFilter) ([]*audit.Event, error)
}
