package api

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
	"github.com/kingsleycodes247/poshlounge/internal/service"
)

const deviceHeader = "X-Device-ID"

// JWTMiddleware parses the bearer token into the POS claims.
func JWTMiddleware(secret []byte) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: secret,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(service.Claims)
		},
	})
}

// DeviceMiddleware re-checks the terminal binding on every authenticated
// request, so a stolen token cannot be replayed from another device.
func DeviceMiddleware(devices *service.DeviceService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := actorFrom(c)
			if err := devices.VerifyRequest(c.Request().Context(), actor); err != nil {
				return respondErr(c, err)
			}
			return next(c)
		}
	}
}

// actorFrom builds the actor identity from the verified JWT plus the
// device header and remote address.
func actorFrom(c echo.Context) entity.ActorContext {
	actor := entity.ActorContext{
		DeviceID: c.Request().Header.Get(deviceHeader),
		IP:       c.RealIP(),
	}
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return actor
	}
	claims, ok := token.Claims.(*service.Claims)
	if !ok {
		return actor
	}
	actor.UserID = claims.UserID
	actor.Username = claims.Username
	actor.Role = claims.Role
	return actor
}

// respondErr maps the domain error taxonomy onto HTTP statuses.
func respondErr(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, entity.ErrStateConflict), errors.Is(err, entity.ErrImmutable):
		status = http.StatusConflict
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
