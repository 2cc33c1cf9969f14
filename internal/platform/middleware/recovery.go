package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dentclaim/dentclaim/internal/platform/auth"
)

// Recovery turns a panic in a handler into a 500 with the same
// {kind, detail} body the domain handlers use, and logs the stack with the
// request and user it happened on.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				var stack [4096]byte
				n := runtime.Stack(stack[:], false)

				req := c.Request()
				rid, _ := c.Get("request_id").(string)
				ev := logger.Error().
					Str("request_id", rid).
					Str("method", req.Method).
					Str("route", c.Path()).
					Str("user_id", auth.UserIDFromContext(req.Context())).
					Str("stack", string(stack[:n]))
				if perr, ok := r.(error); ok {
					ev = ev.Err(perr)
				} else {
					ev = ev.Str("panic", fmt.Sprint(r))
				}
				ev.Msg("panic recovered")

				err = echo.NewHTTPError(http.StatusInternalServerError, map[string]string{
					"kind":   "internal_error",
					"detail": "internal server error",
				})
			}()
			return next(c)
		}
	}
}
