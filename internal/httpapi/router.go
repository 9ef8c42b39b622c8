// Package httpapi serves the graph over HTTP with gin.
package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/saulfrancisco-ruizacevedo/go-neograph/internal/metrics"
)

// RouterDeps carries everything BuildRouter wires together. Metrics, Logger,
// RequestTimeout and CORSOrigins are optional.
type RouterDeps struct {
	Service        NodeService
	Store          Pinger
	Metrics        *metrics.Collector
	Logger         *zap.Logger
	ServiceName    string
	Version        string
	RequestTimeout time.Duration
	CORSOrigins    []string
}

// BuildRouter assembles the gin engine.
//
// Parameters:
//   - deps: The node service, the store used for health checks, and the
//     optional observability and CORS settings.
//
// Returns:
//
//	An engine with request id, recovery, access log, metrics and CORS
//	middleware, the health and metrics routes, and the /nodes routes under
//	the per-request timeout.
func BuildRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(RequestID())
	r.Use(Recovery(logger))
	r.Use(AccessLog(logger))
	if deps.Metrics != nil {
		r.Use(Metrics(deps.Metrics))
	}
	if len(deps.CORSOrigins) > 0 {
		r.Use(CORS(deps.CORSOrigins))
	}

	NewHealthHandler(deps.ServiceName, deps.Version, deps.Store).RegisterRoutes(r)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := r.Group("")
	if deps.RequestTimeout > 0 {
		api.Use(Timeout(deps.RequestTimeout))
	}
	NewNodeHandler(deps.Service).RegisterRoutes(api)

	return r
}
