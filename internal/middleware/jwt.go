package middleware // middleware provides reusable HTTP middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dbforge/schema-designer/internal/auth"
)

// Context keys populated for downstream handlers.
const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
)

// BearerAuth is the edge gate for every protected route.  It resolves the
// caller identity from the Authorization header and injects user_id and email
// into the request context.  All failures look the same to the client: API
// calls get a 401 with no hint of the reason, while requests that prefer HTML
// (browser navigations) are redirected to the login page instead.
func BearerAuth(codec *auth.TokenCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := auth.ResolveIdentity(c.Request(), codec)
			if !ok {
				if prefersHTML(c.Request()) {
					return c.Redirect(http.StatusFound, "/login")
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or missing token"})
			}
			c.Set(ctxUserID, id.UserID)
			c.Set(ctxEmail, id.Email)
			return next(c)
		}
	}
}

// prefersHTML reports whether the client is a browser navigation rather than
// an API consumer.
func prefersHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
