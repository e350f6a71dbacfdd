package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"shop-auth/internal/audit"
	"shop-auth/internal/auth"
	"shop-auth/internal/system"
)

type SystemHandler struct {
	system  SystemService
	audit   AuditRecorder
	metrics MetricsSource
}

func NewSystemHandler(system SystemService, audit AuditRecorder, metrics MetricsSource) *SystemHandler {
	return &SystemHandler{system: system, audit: audit, metrics: metrics}
}

type RotateKeyRequest struct {
	Key string `json:"key" validate:"required"`
}

type RotateKeyResponse struct {
	Previous string `json:"previousFingerprint"`
	Current  string `json:"currentFingerprint"`
}

type TimeZoneResponse struct {
	TimeZone string `json:"timeZone"`
}

// RotateKey installs a new signing key. Every token issued before stops
// verifying, the caller's own included.
func (h *SystemHandler) RotateKey(c echo.Context) error {
	var req RotateKeyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	rotation, err := h.system.RotateKey(c.Request().Context(), req.Key)
	return h.rotated(c, rotation, err, metaSourceSupplied)
}

// RotateToGeneratedKey installs a key generated on the server. The response
// carries fingerprints only.
func (h *SystemHandler) RotateToGeneratedKey(c echo.Context) error {
	rotation, err := h.system.RotateToGeneratedKey(c.Request().Context())
	return h.rotated(c, rotation, err, metaSourceGenerated)
}

func (h *SystemHandler) rotated(c echo.Context, rotation system.KeyRotation, err error, source string) error {
	subject := auth.GetPrincipal(c).Subject
	if err != nil {
		h.audit.RecordError(c, audit.ActionKeyRotated, subject, err)
		return err
	}

	h.audit.Record(c, audit.ActionKeyRotated, audit.StatusSuccess, subject, map[string]any{
		metaPrevious: rotation.Previous,
		metaCurrent:  rotation.Current,
		metaSource:   source,
	})
	return c.JSON(http.StatusOK, RotateKeyResponse{Previous: rotation.Previous, Current: rotation.Current})
}

func (h *SystemHandler) TimeZone(c echo.Context) error {
	return c.JSON(http.StatusOK, TimeZoneResponse{TimeZone: h.system.TimeZone()})
}

// AuditEvents lists recorded events, newest first.
// Query: subject, action, status, since (RFC 3339), limit, offset.
func (h *SystemHandler) AuditEvents(c echo.Context) error {
	filter := audit.QueryFilter{
		Subject: c.QueryParam("subject"),
		Action:  audit.Action(c.QueryParam("action")),
		Status:  audit.Status(c.QueryParam("status")),
	}

	var err error
	if filter.Limit, err = intQuery(c, "limit"); err != nil {
		return err
	}
	if filter.Offset, err = intQuery(c, "offset"); err != nil {
		return err
	}
	if raw := c.QueryParam("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, msgInvalidQuery)
		}
		filter.StartTime = &since
	}

	events, err := h.audit.Query(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}

func (h *SystemHandler) Metrics(c echo.Context) error {
	return c.JSON(http.StatusOK, h.metrics.Snapshot())
}

func intQuery(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, msgInvalidQuery)
	}
	return n, nil
}

// Health needs no dependencies.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{jsonKeyStatus: "ok"})
}
