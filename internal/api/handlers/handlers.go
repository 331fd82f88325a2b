package handlers

import (
	"net/http"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/config"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/analysis"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/database"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/websocket"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	cfg    *config.Config
	repos  *database.Repositories
	log    *logrus.Logger
	wsHub  *websocket.Hub
	engine *analysis.Engine
}

// NewHandlers creates a new handlers instance
func NewHandlers(cfg *config.Config, repos *database.Repositories, engine *analysis.Engine, wsHub *websocket.Hub, logger *logrus.Logger) *Handlers {
	return &Handlers{
		cfg:    cfg,
		repos:  repos,
		log:    logger,
		wsHub:  wsHub,
		engine: engine,
	}
}

// WebSocketHandler returns the progress stream endpoint.
func (h *Handlers) WebSocketHandler(hub *websocket.Hub) gin.HandlerFunc {
	return websocket.HandleWebSocketGin(hub)
}

func respondError(c *gin.Context, err *errors.AppError) {
	c.JSON(err.Code, gin.H{"error": err.Message, "details": err.Details})
}

func respondInternal(c *gin.Context, log *logrus.Logger, err error, message string) {
	log.WithError(err).Error(message)
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}
