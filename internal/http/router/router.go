// Package router assembles the gin engine from the application modules.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "sitechat_backend/internal/http"
	"sitechat_backend/internal/http/middleware"
	"sitechat_backend/platform/httpkit"
	"sitechat_backend/platform/metrics"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const readyTimeout = 2 * time.Second

// New builds the HTTP engine: shared middleware, health endpoints, metrics
// and every module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(middleware.CORS(app.Origins, app.Config.GetCORSExtraOrigins()))

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/api/ready", func(c *gin.Context) {
		if app.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
			defer cancel()
			if err := app.Health.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := engine.Group("/api")
	v1 := api.Group("/v1")
	auth := httpkit.AuthRequired(app.Config)
	admin := v1.Group("/admin", auth, httpkit.RequireRole("admin"))

	var limiter *httpkit.IPRateLimiter
	if limit := app.Config.GetChatRateLimit(); limit > 0 {
		limiter = httpkit.NewIPRateLimiter(rate.Limit(limit), app.Config.GetChatRateBurst(), app.Logger)
	}

	ctx := &apphttp.RouterContext{
		Engine:          engine,
		API:             api,
		V1:              v1,
		Admin:           admin,
		Config:          app.Config,
		AuthMiddleware:  auth,
		ChatRateLimiter: limiter,
	}
	for _, m := range app.Modules {
		m.RegisterRoutes(ctx)
		if app.Logger != nil {
			app.Logger.Debug("module registered", "module", m.Name())
		}
	}

	return engine
}
