package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	commonmw "github.com/tableturn/forecaster/common/middleware"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserKey is the context key for storing the authenticated caller
	UserKey ContextKey = "user"

	// UserHeader carries the caller as JSON, set by the upstream gateway
	UserHeader = "X-User"
)

// ErrForbidden is returned when a caller may not write to a location
var ErrForbidden = errors.New("forbidden")

// Role is what a caller may do across locations
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

// User is the caller described by the X-User header
type User struct {
	ID                string   `json:"id"`
	Role              Role     `json:"role"`
	RestaurantGroupID string   `json:"restaurantGroupId,omitempty"`
	Locations         []string `json:"locations,omitempty"`
}

// ParseUser decodes an X-User header value. Malformed or incomplete values
// yield no user.
func ParseUser(header string) *User {
	if header == "" {
		return nil
	}
	var u User
	if err := json.Unmarshal([]byte(header), &u); err != nil {
		return nil
	}
	if u.ID == "" {
		return nil
	}
	switch u.Role {
	case RoleAdmin, RoleManager, RoleViewer:
	default:
		return nil
	}
	return &u
}

// ExtractUser is a middleware that decodes the X-User header and stores the
// caller in the request context.
//
// Requests without a usable header pass through anonymously; routes that need
// a caller add RequireUser.
//
// Usage:
//
//	e := echo.New()
//	e.Use(middleware.ExtractUser())
//
// Accessing in handlers:
//
//	user := middleware.GetUser(c)
func ExtractUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if u := ParseUser(c.Request().Header.Get(UserHeader)); u != nil {
				c.Set(string(UserKey), u)
				// the per-user rate limiter keys on this
				c.Set(commonmw.UserIDKey, u.ID)
			}
			return next(c)
		}
	}
}

// RequireUser rejects requests that carry no caller
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetUser(c) == nil {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "Unauthorized",
				})
			}
			return next(c)
		}
	}
}

// GetUser retrieves the caller from the request context
// Returns nil if not set
func GetUser(c echo.Context) *User {
	u, _ := c.Get(string(UserKey)).(*User)
	return u
}

// CanWriteLocation checks a caller's write scope. Managers with an explicit
// location list may only write to those locations; everyone else is unscoped.
func CanWriteLocation(u *User, locationID string) error {
	if u == nil || u.Role != RoleManager || u.Locations == nil {
		return nil
	}
	for _, id := range u.Locations {
		if id == locationID {
			return nil
		}
	}
	return ErrForbidden
}
