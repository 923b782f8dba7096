package api

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
	"github.com/kingsleycodes247/poshlounge/internal/service"
)

type LedgerHandler struct {
	ledger *service.LedgerService
}

func NewLedgerHandler(ledger *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

func (h *LedgerHandler) ListProducts(c echo.Context) error {
	products, err := h.ledger.ListProducts(c.Request().Context())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, products)
}

func (h *LedgerHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid product ID"})
	}

	product, err := h.ledger.GetProduct(c.Request().Context(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, product)
}

type movementRequest struct {
	MovementType string          `json:"movement_type"`
	Quantity     decimal.Decimal `json:"quantity"`
	Reference    string          `json:"reference"`
	Notes        string          `json:"notes"`
}

func (h *LedgerHandler) RecordMovement(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid product ID"})
	}
	req := movementRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	movement, err := h.ledger.RecordMovement(c.Request().Context(), actorFrom(c),
		productID, entity.MovementType(req.MovementType), req.Quantity, req.Reference, req.Notes)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(201, movement)
}

type adjustStockRequest struct {
	Target    decimal.Decimal `json:"target"`
	Reference string          `json:"reference"`
	Notes     string          `json:"notes"`
}

// AdjustStock records an adjustment movement bringing the product to the
// counted quantity.
func (h *LedgerHandler) AdjustStock(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid product ID"})
	}
	req := adjustStockRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	movement, err := h.ledger.AdjustStock(c.Request().Context(), actorFrom(c),
		productID, req.Target, req.Reference, req.Notes)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(201, movement)
}

func (h *LedgerHandler) ListMovements(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid product ID"})
	}
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	movements, err := h.ledger.ListMovements(c.Request().Context(), actorFrom(c), productID, limit)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, movements)
}

type priceRequest struct {
	NewPrice decimal.Decimal `json:"new_price"`
}

func (h *LedgerHandler) ChangePrice(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid product ID"})
	}
	req := priceRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	if err := h.ledger.ChangePrice(c.Request().Context(), actorFrom(c), productID, req.NewPrice); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(200, map[string]string{"status": "price updated"})
}
