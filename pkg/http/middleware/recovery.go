package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applogger "FinCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns handler panics into a 500 envelope.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					l.Error("panic recovered",
						applogger.String("route", routeLabel(c)),
						applogger.String("panic", fmt.Sprint(r)),
						applogger.String("stack", string(debug.Stack())),
					)
					err = c.JSON(http.StatusInternalServerError, map[string]interface{}{
						"status":  http.StatusInternalServerError,
						"message": http.StatusText(http.StatusInternalServerError),
					})
				}
			}()
			return next(c)
		}
	}
}
