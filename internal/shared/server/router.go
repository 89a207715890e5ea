package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"logistics-backend/internal/documents"
	"logistics-backend/internal/invoices"
	"logistics-backend/internal/services/health"
	"logistics-backend/internal/shared/config"
	"logistics-backend/internal/shared/metrics"
	"logistics-backend/internal/shared/server/middleware"
	"logistics-backend/internal/shared/server/respond"
)

// RouterDeps are the handlers and services the router mounts.
type RouterDeps struct {
	Config          config.Config
	Verifier        middleware.TokenVerifier
	Health          *health.Service
	DocumentHandler *documents.Handler
	InvoiceHandler  *invoices.Handler
	RateLimiter     *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = deps.Config.MaxUploadBytes

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})

	secured := api.Group("")
	secured.Use(middleware.Auth(deps.Verifier))
	registerMeRoutes(secured)

	uploadLimit := middleware.UploadLimit(deps.RateLimiter, middleware.RateLimitRule{
		Rate:  deps.Config.UploadRatePerSec,
		Burst: deps.Config.UploadRateBurst,
	})

	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(secured, uploadLimit)
	}
	if deps.InvoiceHandler != nil {
		deps.InvoiceHandler.RegisterRoutes(secured, uploadLimit)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
