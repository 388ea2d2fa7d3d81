package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/triage/internal/api/admin"
	"github.com/liliang-cn/triage/internal/api/intake"
	"github.com/liliang-cn/triage/internal/api/middleware"
	"github.com/liliang-cn/triage/internal/service"
	"go.uber.org/zap"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	AllowOrigins []string
	TopK         int
}

// SetupRouter sets up the Gin router
func SetupRouter(
	intakeService *service.IntakeService,
	pipelineService *service.PipelineService,
	corpusService *service.CorpusService,
	cfg RouterConfig,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if logger != nil {
		r.Use(middleware.RequestLogger(logger))
	}

	// CORS middleware
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check, reports corpus sizes so an unseeded store is visible
	r.GET("/health", func(c *gin.Context) {
		stats, err := corpusService.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "corpus": stats})
	})

	// Intake and pipeline API (patient facing)
	intakeHandler := intake.NewHandler(intakeService, pipelineService)
	intakeHandler.RegisterRoutes(r.Group("/api"))

	// Reference corpus administration
	adminHandler := admin.NewHandler(corpusService, cfg.TopK)
	adminHandler.RegisterRoutes(r.Group("/api/admin"))

	return r
}
