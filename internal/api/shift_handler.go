package api

import (
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/kingsleycodes247/poshlounge/internal/service"
)

type ShiftHandler struct {
	shifts *service.ShiftService
}

func NewShiftHandler(shifts *service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shifts: shifts}
}

type startShiftRequest struct {
	OpeningCash decimal.Decimal `json:"opening_cash"`
}

func (h *ShiftHandler) StartShift(c echo.Context) error {
	req := startShiftRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	shift, err := h.shifts.StartShift(c.Request().Context(), actorFrom(c), req.OpeningCash)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(201, shift)
}

type endShiftRequest struct {
	ClosingCash decimal.Decimal `json:"closing_cash"`
}

func (h *ShiftHandler) EndShift(c echo.Context) error {
	req := endShiftRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	summary, err := h.shifts.EndShift(c.Request().Context(), actorFrom(c), req.ClosingCash)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, summary)
}
