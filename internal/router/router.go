package router // package router wires HTTP routes to their handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dbforge/schema-designer/internal/auth"
	"github.com/dbforge/schema-designer/internal/handler"
	"github.com/dbforge/schema-designer/internal/middleware"
)

// Register sets up the whole HTTP surface.  Session endpoints and the health
// check form the public allow-list; everything else sits behind the bearer
// gate.  The rate limiter spans both groups; the response cache only wraps
// schema reads, after authentication so its keys are user-scoped.
func Register(e *echo.Echo, a *handler.AuthHandler, s *handler.SchemaHandler,
	codec *auth.TokenCodec, limiter echo.MiddlewareFunc, cache *middleware.SchemaCache) {

	e.Use(limiter)

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "schema designer api")
	})
	e.GET("/login", func(c echo.Context) error {
		// Browser navigations rejected by the bearer gate land here.
		return c.String(http.StatusOK, "sign in required")
	})
	e.GET("/healthz", handler.Health)

	// Session lifecycle.  Logout stays public: a refresh token in the body is
	// enough to end one session, a bearer credential is only needed for
	// logoutAll and is parsed inside the handler.
	g := e.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	protected := e.Group("", middleware.BearerAuth(codec))
	protected.GET("/me", a.Me)

	schemas := protected.Group("/schemas")
	if cache != nil {
		schemas.Use(cache.Middleware())
	}
	schemas.GET("", s.List)
	schemas.POST("", s.Create)
	schemas.GET("/:id", s.Get)
	schemas.PUT("/:id", s.Update)
	schemas.DELETE("/:id", s.Delete)
}
