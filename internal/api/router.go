// Package api assembles the HTTP surface.
package api

import (
	"net/http"

	"go-engage/internal/api/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Collections   *handler.CollectionHandler
	Workflows     *handler.WorkflowHandler
	Engagements   *handler.EngagementHandler
	Assignments   *handler.AssignmentHandler
	Subscriptions *handler.SubscriptionHandler
}

// NewRouter mounts the REST API under /api/v1 plus /metrics and /healthz.
func NewRouter(h Handlers, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1", handler.RequireUser())
	{
		h.Collections.Register(api)
		h.Workflows.Register(api)
		h.Engagements.Register(api)
		h.Assignments.Register(api)
		h.Subscriptions.Register(api)
	}

	return router
}
