package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"basegraph.app/airbrake-proxy/internal/http/handler"
	"basegraph.app/airbrake-proxy/internal/metrics"
	"basegraph.app/airbrake-proxy/internal/service"
)

const (
	HealthPath  = "/health"
	MetricsPath = "/metrics"
)

type RouterConfig struct {
	MaxBodyBytes int64
	Gatherer     prometheus.Gatherer
}

// SetupRoutes installs the probe endpoints and routes every other path to the
// notice handler, which serves both submissions and lookups.
func SetupRoutes(router *gin.Engine, services *service.Services, sink metrics.Sink, cfg RouterConfig) {
	router.GET(HealthPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Gatherer != nil {
		router.GET(MetricsPath, gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	noticeHandler := handler.NewNoticeHandler(services.Notices(), sink, cfg.MaxBodyBytes)
	NoticeRouter(router, noticeHandler)
}

// NoticeRouter sends every unmatched request, whatever its method or path, to h.
func NoticeRouter(router *gin.Engine, h *handler.NoticeHandler) {
	router.HandleMethodNotAllowed = false
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.NoRoute(h.Handle)
}
