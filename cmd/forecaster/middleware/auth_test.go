package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonmw "github.com/tableturn/forecaster/common/middleware"
)

func TestParseUser(t *testing.T) {
	u := ParseUser(`{"id":"u1","role":"manager","locations":["loc-a"]}`)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, RoleManager, u.Role)
	assert.Equal(t, []string{"loc-a"}, u.Locations)

	assert.Nil(t, ParseUser(""))
	assert.Nil(t, ParseUser("not json"))
	assert.Nil(t, ParseUser(`{"role":"admin"}`), "id is required")
	assert.Nil(t, ParseUser(`{"id":"u1","role":"owner"}`), "unknown role")
}

func TestExtractAndRequireUser(t *testing.T) {
	e := echo.New()
	e.Use(ExtractUser())
	e.POST("/w", func(c echo.Context) error {
		u := GetUser(c)
		assert.Equal(t, u.ID, c.Get(commonmw.UserIDKey))
		return c.String(http.StatusOK, u.ID)
	}, RequireUser())

	req := httptest.NewRequest(http.MethodPost, "/w", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/w", nil)
	req.Header.Set(UserHeader, `{"id":"admin-1","role":"admin"}`)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-1", rec.Body.String())
}

func TestCanWriteLocation(t *testing.T) {
	scoped := &User{ID: "m", Role: RoleManager, Locations: []string{"loc-a"}}
	assert.NoError(t, CanWriteLocation(scoped, "loc-a"))
	assert.ErrorIs(t, CanWriteLocation(scoped, "loc-b"), ErrForbidden)

	assert.NoError(t, CanWriteLocation(&User{ID: "m", Role: RoleManager}, "loc-b"), "unscoped manager")
	assert.NoError(t, CanWriteLocation(&User{ID: "a", Role: RoleAdmin, Locations: []string{"loc-a"}}, "loc-b"))
	assert.NoError(t, CanWriteLocation(nil, "loc-b"))
}
