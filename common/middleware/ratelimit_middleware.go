package middleware

import (
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/tableturn/forecaster/common/ratelimit"
)

// UserIDKey is the echo context key the auth middleware stores the caller id under
const UserIDKey = "user_id"

// isInternalRequest checks if the request is from an internal service.
// The CLI and worker set X-Internal-Service to bypass rate limits.
func isInternalRequest(c echo.Context) bool {
	internalHeader := c.Request().Header.Get("X-Internal-Service")
	if internalHeader == "" {
		return false
	}

	expectedSecret := os.Getenv("INTERNAL_SERVICE_SECRET")
	if expectedSecret == "" {
		expectedSecret = "default-internal-secret-change-in-prod"
	}

	return internalHeader == expectedSecret
}

func limitExceeded(c echo.Context, code, message string, result *ratelimit.RateLimitResult, windowSec int, extra map[string]interface{}) error {
	details := map[string]interface{}{
		"limit":               result.Limit,
		"window":              fmt.Sprintf("%d seconds", windowSec),
		"retry_after_seconds": result.RetryAfterSeconds,
	}
	for k, v := range extra {
		details[k] = v
	}

	c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", result.RetryAfterSeconds))
	return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
		"error":   code,
		"message": message,
		"details": details,
	})
}

// GlobalRateLimitMiddleware caps write traffic across all callers.
// Redis failures let the request through.
func GlobalRateLimitMiddleware(limiter ratelimit.Checker, limits ratelimit.Limits) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isInternalRequest(c) {
				return next(c)
			}

			result, err := limiter.CheckGlobalLimit(c.Request().Context(), limits.Global, limits.WindowSeconds)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				return limitExceeded(c, "global_rate_limit_exceeded",
					"Service is experiencing high load. Please try again later.",
					result, limits.WindowSeconds, nil)
			}

			return next(c)
		}
	}
}

// UserRateLimitMiddleware caps write traffic per caller. Requests without a
// user id in context are not limited here.
func UserRateLimitMiddleware(limiter ratelimit.Checker, limits ratelimit.Limits) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isInternalRequest(c) {
				return next(c)
			}

			userID, ok := c.Get(UserIDKey).(string)
			if !ok || userID == "" {
				return next(c)
			}

			result, err := limiter.CheckUserLimit(c.Request().Context(), userID, limits.PerUser, limits.WindowSeconds)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				return limitExceeded(c, "user_rate_limit_exceeded",
					"You have exceeded your request quota. Please wait before trying again.",
					result, limits.WindowSeconds, map[string]interface{}{
						"user_id":       userID,
						"current_count": result.CurrentCount,
					})
			}

			return next(c)
		}
	}
}
