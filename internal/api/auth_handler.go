package api

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kingsleycodes247/poshlounge/internal/service"
)

type AuthHandler struct {
	devices *service.DeviceService
}

func NewAuthHandler(devices *service.DeviceService) *AuthHandler {
	return &AuthHandler{devices: devices}
}

type loginRequest struct {
	Username string `json:"username"`
	Pin      string `json:"pin"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	req := loginRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	deviceID := c.Request().Header.Get(deviceHeader)
	token, user, err := h.devices.Login(c.Request().Context(), req.Username, req.Pin, deviceID, c.RealIP())
	if err != nil {
		return respondErr(c, err)
	}

	return c.JSON(200, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.devices.Logout(c.Request().Context(), actorFrom(c)); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, map[string]string{"status": "logged out"})
}

// ResetDevice clears a user's terminal binding (admin only).
func (h *AuthHandler) ResetDevice(c echo.Context) error {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid user ID"})
	}

	if err := h.devices.ResetDevice(c.Request().Context(), actorFrom(c), userID); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, map[string]string{"status": "device binding reset"})
}
