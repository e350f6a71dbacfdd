package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"shop-auth/internal/domain/user"
	"shop-auth/internal/http/middleware"
	"shop-auth/internal/permission"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type RefreshTokenResponse struct {
	RefreshToken string `json:"refreshToken"`
}

// UserResponse never carries the password hash or refresh fingerprint.
type UserResponse struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	Role        string          `json:"role"`
	Permissions *permission.Set `json:"permissions"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type MeResponse struct {
	Subject     string   `json:"subject"`
	Authorities []string `json:"authorities"`
}

type PermissionsResponse struct {
	Username    string          `json:"username"`
	Permissions *permission.Set `json:"permissions"`
}

func newUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:          u.ID.String(),
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role.Authority(),
		Permissions: u.Permissions,
		CreatedAt:   u.CreatedAt,
	}
}

// respondError writes the same body shape as the server error handler.
func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, ErrorResponse{Error: message, RequestID: middleware.GetRequestID(c)})
}
