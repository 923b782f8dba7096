package api

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
	"github.com/kingsleycodes247/poshlounge/internal/service"
)

type AuditHandler struct {
	audit *service.AuditService
}

func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List returns audit entries newest first (admin only).
func (h *AuditHandler) List(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	actionType := entity.ActionType(c.QueryParam("action_type"))

	logs, err := h.audit.List(c.Request().Context(), actorFrom(c), actionType, limit)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, logs)
}

type purgeRequest struct {
	OlderThan time.Time `json:"older_than"`
}

// Purge removes entries older than the cutoff (admin only).
func (h *AuditHandler) Purge(c echo.Context) error {
	req := purgeRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	purged, err := h.audit.Purge(c.Request().Context(), actorFrom(c), req.OlderThan)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, map[string]int64{"purged": purged})
}
