package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"shop-auth/internal/audit"
)

type SecurityHandler struct {
	gate  TokenGate
	audit AuditRecorder
}

func NewSecurityHandler(gate TokenGate, audit AuditRecorder) *SecurityHandler {
	return &SecurityHandler{gate: gate, audit: audit}
}

type CredentialsRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type AccessTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
	TTLHours     int    `json:"ttlHours" validate:"gte=0"`
}

type RefreshTokenRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
	TTLHours int    `json:"ttlHours" validate:"gte=0"`
}

// Tokens exchanges credentials for a fresh access and refresh token.
func (h *SecurityHandler) Tokens(c echo.Context) error {
	var req CredentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.gate.TokensForCredentials(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		h.audit.RecordError(c, audit.ActionLoginFailed, req.Username, err)
		return err
	}

	h.audit.Record(c, audit.ActionLogin, audit.StatusSuccess, req.Username, nil)
	return c.JSON(http.StatusOK, pair)
}

func (h *SecurityHandler) AccessToken(c echo.Context) error {
	var req AccessTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.gate.RefreshAccessToken(c.Request().Context(), req.RefreshToken, req.TTLHours)
	if err != nil {
		h.audit.RecordError(c, audit.ActionTokenRefresh, "", err)
		return err
	}

	return c.JSON(http.StatusOK, AccessTokenResponse{AccessToken: token})
}

func (h *SecurityHandler) RefreshToken(c echo.Context) error {
	var req RefreshTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.gate.NewRefreshToken(c.Request().Context(), req.Username, req.Password, req.TTLHours)
	if err != nil {
		h.audit.RecordError(c, audit.ActionRefreshRenewed, req.Username, err)
		return err
	}

	h.audit.Record(c, audit.ActionRefreshRenewed, audit.StatusSuccess, req.Username, map[string]any{metaTTLHours: req.TTLHours})
	return c.JSON(http.StatusOK, RefreshTokenResponse{RefreshToken: token})
}
