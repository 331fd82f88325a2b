package api

import (
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/api/handlers"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/api/middleware"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/config"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/analysis"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/database"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter creates and configures the main HTTP router
func NewRouter(cfg *config.Config, db *sqlx.DB, repos *database.Repositories, engine *analysis.Engine, wsHub *websocket.Hub, logger *logrus.Logger) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(middleware.ErrorHandlingMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.MetricsMiddleware())

	h := handlers.NewHandlers(cfg, repos, engine, wsHub, logger)
	health := handlers.NewHealthHandler(db)

	router.GET("/health", health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", h.WebSocketHandler(wsHub))

	api := router.Group("/api/v1")
	{
		api.POST("/upload", h.UploadDataset)
		api.POST("/analyze", h.StartAnalysis)
		api.GET("/results/:id", h.GetResult)
		api.GET("/sessions", h.ListSessions)
		api.GET("/analyses", h.ListAnalyses)
	}

	return router
}
