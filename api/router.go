package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the link endpoints, health check and Prometheus
// scrape endpoint onto a gin engine.
func NewRouter(handler *LinkHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/links", handler.CreateLink)
		api.GET("/links", handler.ListLinks)
		api.GET("/links/:id", handler.GetLink)
		api.PATCH("/links/:id", handler.UpdateLink)
	}

	return router
}
