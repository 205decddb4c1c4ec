package handler

import (
	"github.com/gin-gonic/gin"
)

// LivenessReporter reports whether the shared rendering browser is open
type LivenessReporter interface {
	Live() bool
}

// HealthHandler serves the liveness probe
type HealthHandler struct {
	BaseHandler
	appName string
	browser LivenessReporter
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(appName string, browser LivenessReporter) *HealthHandler {
	return &HealthHandler{appName: appName, browser: browser}
}

// RegisterRoutes registers the probe on the engine root
func (h *HealthHandler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", h.Health)
}

// Health reports service status. The browser being closed is normal
// between renders, so it never fails the probe.
// GET /healthz
func (h *HealthHandler) Health(c *gin.Context) {
	browserLive := false
	if h.browser != nil {
		browserLive = h.browser.Live()
	}
	h.Success(c, gin.H{
		"status":       "ok",
		"app":          h.appName,
		"browser_live": browserLive,
	})
}
