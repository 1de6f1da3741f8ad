package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/tableturn/forecaster/cmd/forecaster/container"
	commonmw "github.com/tableturn/forecaster/common/middleware"
)

// writeMiddleware returns the rate limits applied to mutating routes.
// Empty when rate limiting is disabled.
func writeMiddleware(c *container.Container) []echo.MiddlewareFunc {
	if c.RateLimiter == nil {
		return nil
	}
	return []echo.MiddlewareFunc{
		commonmw.GlobalRateLimitMiddleware(c.RateLimiter, c.Limits),
		commonmw.UserRateLimitMiddleware(c.RateLimiter, c.Limits),
	}
}

// with appends route-specific middleware to the shared write limits
func with(base []echo.MiddlewareFunc, extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}
