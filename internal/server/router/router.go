package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/metrics"
	"github.com/mamadbah2/fleetstock/internal/server/handlers"
)

// Handlers groups the HTTP adapters the router mounts.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Items      *handlers.ItemHandler
	History    *handlers.HistoryHandler
	References *handlers.ReferenceHandler
	Messages   *handlers.MessageHandler
	Events     *handlers.EventsHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	r.Use(metricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/auth/signin", h.Auth.SignIn)
	api.POST("/auth/signup", h.Auth.SignUp)

	guarded := api.Group("", h.Auth.RequireUser())

	guarded.POST("/auth/signout", h.Auth.SignOut)
	guarded.GET("/auth/me", h.Auth.Me)

	guarded.GET("/items", h.Items.List)
	guarded.POST("/items", h.Items.Create)
	guarded.GET("/items/low-stock", h.Items.LowStock)
	guarded.GET("/items/:id", h.Items.Get)
	guarded.PATCH("/items/:id", h.Items.Update)
	guarded.DELETE("/items/:id", h.Items.Delete)
	guarded.POST("/items/:id/stock", h.Items.AdjustStock)
	guarded.POST("/items/:id/issue", h.Items.Issue)
	guarded.GET("/items/:id/reconcile", h.Items.Reconcile)

	guarded.GET("/history", h.History.Table)
	guarded.GET("/history/export", h.History.Export)
	guarded.GET("/analytics/costs", h.History.Costs)
	guarded.GET("/options", h.History.Options)

	mountReferences(guarded, "/fleet-numbers", models.FleetNumbers, h.References)
	mountReferences(guarded, "/suppliers", models.Suppliers, h.References)

	guarded.GET("/messages", h.Messages.List)
	guarded.POST("/messages/low-stock-digest", h.Messages.SendDigest)

	guarded.GET("/events", h.Events.Stream)

	logger.Info("router initialized")
	return r
}

func mountReferences(g *gin.RouterGroup, path string, kind models.ReferenceKind, h *handlers.ReferenceHandler) {
	g.GET(path, h.List(kind))
	g.POST(path, h.Add(kind))
	g.DELETE(path+"/:id", h.Delete(kind))
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
