package middleware

import (
	"time"

	applogger "FinCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one line per request. 5xx responses log at error level
// and requests slower than slow log at warn level.
func RequestLogging(l *applogger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req, res := c.Request(), c.Response()
			latency := time.Since(start)
			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("route", routeLabel(c)),
				applogger.Int("status", res.Status),
				applogger.Duration("latency_ms", latency),
				applogger.Int64("bytes", res.Size),
				applogger.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
			}
			switch {
			case res.Status >= 500:
				l.Error("http request failed", append(fields, applogger.Error(err))...)
			case slow > 0 && latency >= slow:
				l.Warn("http request slow", fields...)
			default:
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
