package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessProbe reports whether the initial patient load has finished.
type ReadinessProbe interface {
	Loaded() bool
}

// Handler serves the operational endpoints.
type Handler struct {
	probe    ReadinessProbe
	gatherer prometheus.Gatherer
}

// NewHandler creates a new handler instance
func NewHandler(probe ReadinessProbe, gatherer prometheus.Gatherer) *Handler {
	return &Handler{probe: probe, gatherer: gatherer}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"time":   time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.probe != nil && !h.probe.Loaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "loading",
			"time":   time.Now(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now(),
	})
}

func (h *Handler) MetricsHandler(c *gin.Context) {
	promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}
