// Package router assembles the gin engine from the composition root's App.
package router

import (
	"net/http"

	apphttp "sasquatch_backend/internal/http"
	"sasquatch_backend/internal/http/middleware"
	"sasquatch_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// New builds the gin engine, mounts shared middleware, and lets every
// registered module mount its own routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(app.Logger))
	engine.Use(corsMiddleware(app))

	engine.GET("/api/health", func(c *gin.Context) {
		if err := app.Health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	admin := v1.Group("")
	admin.Use(httpkit.RequireAPIKey(app.Config.GetAdminAPIKey()))

	webhooks := engine.Group("/webhooks")

	cron := engine.Group("/cron")
	cron.Use(httpkit.RequireBearer(app.Config.GetCronSecret()))

	ctx := &apphttp.RouterContext{
		Engine:   engine,
		V1:       v1,
		Admin:    admin,
		Webhooks: webhooks,
		Cron:     cron,
	}

	for _, m := range app.Modules {
		m.RegisterRoutes(ctx)
		app.Logger.Info("module routes registered", "module", m.Name())
	}

	return engine
}

func corsMiddleware(app *apphttp.App) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-API-Key"}
	if app.Config.GetCORSAllowAll() {
		cfg.AllowAllOrigins = true
	} else if origins := app.Config.GetCORSOrigins(); len(origins) > 0 {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = app.Config.GetCORSAllowCreds()
	} else {
		cfg.AllowAllOrigins = true
	}
	return cors.New(cfg)
}
