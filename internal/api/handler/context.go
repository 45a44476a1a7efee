package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/h2market/h2trade/internal/api/middleware"
)

// ctxUsername extracts the username injected by the Auth middleware and
// fails fast when it is absent.
func ctxUsername(c echo.Context) (string, error) {
	username, _ := c.Get(middleware.CtxUsername).(string)
	if username == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "User not found or token invalid")
	}
	return username, nil
}
