package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

func (a *API) registerRoutes(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"ok":        true,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	g := e.Group("/imgfs")
	g.GET("/list", a.handler.List)
	g.GET("/read", a.handler.Read)
	g.GET("/header", a.handler.Header)

	w := g.Group("")
	w.Use(a.auth.Middleware)
	w.POST("/insert", a.handler.Insert)
	w.GET("/delete", a.handler.Delete)
	w.POST("/snapshot", a.handler.Snapshot)

	if a.cfg.StaticDir != "" {
		e.Static("/", a.cfg.StaticDir)
	}
}
