package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys populated by JWTAuth.
const (
	ctxCustomerID = "user_id"
	ctxRole       = "role"
)

// CustomerID returns the authenticated customer id set by JWTAuth.
func CustomerID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxCustomerID).(uint64)
	return id, ok && id > 0
}

// Role returns the authenticated role, or "" for anonymous requests.
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}

// userKey identifies the caller for rate limit and cache keys.
func userKey(c echo.Context) string {
	if id, ok := CustomerID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
