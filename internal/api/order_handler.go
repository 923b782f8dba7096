package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/kingsleycodes247/poshlounge/internal/service"
)

type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderRequest struct {
	TableID *int `json:"table_id"`
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	req := createOrderRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	order, err := h.orders.CreateOrder(c.Request().Context(), actorFrom(c), req.TableID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(201, order)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid order ID"})
	}

	order, err := h.orders.GetOrder(c.Request().Context(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, order)
}

type addItemRequest struct {
	ProductID           int             `json:"product_id"`
	Quantity            decimal.Decimal `json:"quantity"`
	SpecialInstructions string          `json:"special_instructions"`
}

func (h *OrderHandler) AddItem(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid order ID"})
	}
	req := addItemRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	item, err := h.orders.AddItem(c.Request().Context(), actorFrom(c), orderID,
		req.ProductID, req.Quantity, req.SpecialInstructions)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(201, item)
}

func (h *OrderHandler) RemoveItem(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid order ID"})
	}
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid item ID"})
	}

	if err := h.orders.RemoveItem(c.Request().Context(), actorFrom(c), orderID, itemID); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, map[string]string{"status": "item removed"})
}

func (h *OrderHandler) ConfirmItem(c echo.Context) error {
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid item ID"})
	}

	order, err := h.orders.ConfirmItem(c.Request().Context(), actorFrom(c), itemID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, order)
}

func (h *OrderHandler) ServeOrder(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid order ID"})
	}

	if err := h.orders.ServeOrder(c.Request().Context(), actorFrom(c), orderID); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, map[string]string{"status": "served"})
}

func (h *OrderHandler) CancelOrder(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid order ID"})
	}

	if err := h.orders.CancelOrder(c.Request().Context(), actorFrom(c), orderID); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, map[string]string{"status": "cancelled"})
}

// KitchenOrders is the kitchen display poll: open orders with unconfirmed
// kitchen items plus the has-new flag.
func (h *OrderHandler) KitchenOrders(c echo.Context) error {
	view, err := h.orders.KitchenOrders(c.Request().Context(), actorFrom(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, view)
}

func (h *OrderHandler) PayableOrders(c echo.Context) error {
	orders, err := h.orders.PayableOrders(c.Request().Context(), actorFrom(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, orders)
}

func (h *OrderHandler) ListTables(c echo.Context) error {
	tables, err := h.orders.ListTables(c.Request().Context())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, tables)
}
