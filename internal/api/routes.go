package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kingsleycodes247/poshlounge/internal/service"
)

// Handlers bundles everything Register wires into the router.
type Handlers struct {
	Auth     *AuthHandler
	Orders   *OrderHandler
	Payments *PaymentHandler
	Ledger   *LedgerHandler
	Shifts   *ShiftHandler
	Audit    *AuditHandler
	Devices  *service.DeviceService
}

// Register mounts all routes. Login and health are open; everything else
// sits behind the JWT and the per-request device check.
func Register(e *echo.Echo, h Handlers, jwtSecret []byte) {
	e.POST("/login", h.Auth.Login)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]interface{}{
			"status":  "ok",
			"service": "poshlounge",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	g := e.Group("", JWTMiddleware(jwtSecret), DeviceMiddleware(h.Devices))

	g.POST("/logout", h.Auth.Logout)
	g.POST("/users/:id/reset-device", h.Auth.ResetDevice)

	g.GET("/tables", h.Orders.ListTables)

	g.POST("/orders", h.Orders.CreateOrder)
	g.GET("/orders/:id", h.Orders.GetOrder)
	g.POST("/orders/:id/items", h.Orders.AddItem)
	g.DELETE("/orders/:id/items/:itemId", h.Orders.RemoveItem)
	g.POST("/orders/items/:itemId/confirm", h.Orders.ConfirmItem)
	g.POST("/orders/:id/serve", h.Orders.ServeOrder)
	g.POST("/orders/:id/cancel", h.Orders.CancelOrder)
	g.GET("/orders/kitchen", h.Orders.KitchenOrders)
	g.GET("/orders/payable", h.Orders.PayableOrders)
	g.GET("/orders/:id/payments", h.Payments.ListByOrder)

	g.POST("/payments", h.Payments.ProcessPayment)
	g.POST("/payments/:id/receipt", h.Payments.PrintReceipt)
	g.GET("/drawer", h.Payments.DrawerPoll)

	g.GET("/products", h.Ledger.ListProducts)
	g.GET("/products/:id", h.Ledger.GetProduct)
	g.POST("/products/:id/movements", h.Ledger.RecordMovement)
	g.POST("/products/:id/adjust", h.Ledger.AdjustStock)
	g.GET("/products/:id/movements", h.Ledger.ListMovements)
	g.PUT("/products/:id/price", h.Ledger.ChangePrice)

	g.POST("/shifts/start", h.Shifts.StartShift)
	g.POST("/shifts/end", h.Shifts.EndShift)

	g.GET("/audit", h.Audit.List)
	g.DELETE("/audit", h.Audit.Purge)
}
