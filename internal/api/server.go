// Package api exposes the order store over a thin HTTP layer.
package api

import (
	"context"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nexatrade/orderflow/internal/orders"
)

// HealthChecker reports the liveness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server wraps the order store with HTTP handlers.
type Server struct {
	router *gin.Engine
	store  *orders.Store
	logger *zap.Logger
	checks map[string]HealthChecker
}

// NewServer builds the router with logging, recovery, metrics, and all order
// routes registered.
func NewServer(store *orders.Store, logger *zap.Logger, checks map[string]HealthChecker) *Server {
	s := &Server{
		store:  store,
		logger: logger,
		checks: checks,
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", s.healthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", s.acceptOrder)
		v1.GET("/orders", s.listOrders)
		v1.GET("/orders/stats", s.orderStats)
		v1.GET("/orders/:id", s.getOrder)
		v1.PUT("/orders/:id", s.modifyOrder)
		v1.DELETE("/orders/:id", s.cancelOrder)
	}

	s.router = router
	return s
}

// Router returns the gin engine for serving and tests.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	deps := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check.Health(ctx); err != nil {
			status = "degraded"
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}
	code := 200
	if status != "ok" {
		code = 503
	}
	c.JSON(code, gin.H{"status": status, "dependencies": deps})
}
