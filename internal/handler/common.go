package handler // handler defines the HTTP endpoints

import (
	"errors"

	"github.com/labstack/echo/v4"
)

// Context keys populated by the bearer-auth middleware.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
)

var errNoIdentity = errors.New("no identity in context")

// currentUserID extracts the authenticated user's id placed into the context
// by the bearer middleware.
func currentUserID(c echo.Context) (string, error) {
	if id, ok := c.Get(CtxUserID).(string); ok && id != "" {
		return id, nil
	}
	return "", errNoIdentity
}
