package api

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
	"github.com/kingsleycodes247/poshlounge/internal/service"
	"github.com/kingsleycodes247/poshlounge/internal/signal"
)

type PaymentHandler struct {
	payments *service.PaymentService
	hub      *signal.Hub
}

func NewPaymentHandler(payments *service.PaymentService, hub *signal.Hub) *PaymentHandler {
	return &PaymentHandler{payments: payments, hub: hub}
}

type paymentRequest struct {
	OrderID              uuid.UUID       `json:"order_id"`
	Amount               decimal.Decimal `json:"amount"`
	Method               string          `json:"payment_method"`
	TransactionReference string          `json:"transaction_reference"`
}

func (h *PaymentHandler) ProcessPayment(c echo.Context) error {
	req := paymentRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	payment, err := h.payments.ProcessPayment(c.Request().Context(), actorFrom(c),
		req.OrderID, req.Amount, entity.PaymentMethod(req.Method), req.TransactionReference)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(201, payment)
}

func (h *PaymentHandler) PrintReceipt(c echo.Context) error {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid payment ID"})
	}

	receipt, err := h.payments.PrintReceipt(c.Request().Context(), actorFrom(c), paymentID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, receipt)
}

func (h *PaymentHandler) ListByOrder(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid order ID"})
	}

	payments, err := h.payments.ListByOrder(c.Request().Context(), orderID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, payments)
}

// DrawerPoll lets a terminal pick up its pending cash drawer command.
func (h *PaymentHandler) DrawerPoll(c echo.Context) error {
	actor := actorFrom(c)
	body, ok := h.hub.ConsumeDrawerCommand(c.Request().Context(), actor.DeviceID)
	if !ok {
		return c.JSON(200, map[string]interface{}{"open_drawer": false})
	}
	return c.JSON(200, map[string]interface{}{
		"open_drawer": true,
		"payment":     json.RawMessage(body),
	})
}
