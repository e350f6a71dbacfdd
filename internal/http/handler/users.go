package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"shop-auth/internal/audit"
	"shop-auth/internal/auth"
	"shop-auth/internal/permission"
)

type UserHandler struct {
	accounts AccountService
	catalog  *permission.Catalog
	audit    AuditRecorder
}

func NewUserHandler(accounts AccountService, catalog *permission.Catalog, audit AuditRecorder) *UserHandler {
	return &UserHandler{accounts: accounts, catalog: catalog, audit: audit}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Register creates an account. The very first account becomes the administrator.
func (h *UserHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	u, err := h.accounts.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return err
	}

	h.audit.Record(c, audit.ActionUserRegistered, audit.StatusSuccess, u.Username, map[string]any{"role": u.Role.String()})
	return c.JSON(http.StatusCreated, newUserResponse(u))
}

// Me reports what the bearer token authenticated as.
func (h *UserHandler) Me(c echo.Context) error {
	p := auth.GetPrincipal(c)
	if p == nil {
		return respondError(c, http.StatusUnauthorized, msgUserNotAuthenticated)
	}
	return c.JSON(http.StatusOK, MeResponse{Subject: p.Subject, Authorities: p.Authorities.Sorted()})
}

func (h *UserHandler) GrantPermission(c echo.Context) error {
	return h.changePermission(c, changeGrant)
}

func (h *UserHandler) RevokePermission(c echo.Context) error {
	return h.changePermission(c, changeRevoke)
}

func (h *UserHandler) changePermission(c echo.Context, change string) error {
	username := c.Param(paramUsername)
	op, err := h.catalog.ParseOperation(c.Param(paramOperation))
	if err != nil {
		return err
	}
	fn, err := permission.ParseFunction(c.Param(paramFunction))
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	var perms *permission.Set
	if change == changeGrant {
		perms, err = h.accounts.AddPermission(ctx, username, op, fn)
	} else {
		perms, err = h.accounts.RemovePermission(ctx, username, op, fn)
	}
	if err != nil {
		return err
	}

	h.audit.Record(c, audit.ActionPermissionChanged, audit.StatusSuccess, auth.GetPrincipal(c).Subject, map[string]any{
		metaTarget:    username,
		metaChange:    change,
		metaOperation: string(op),
		metaFunction:  string(fn),
	})
	return c.JSON(http.StatusOK, PermissionsResponse{Username: username, Permissions: perms})
}
