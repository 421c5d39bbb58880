package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/generic-repository/internal/services"
)

const healthTimeout = 3 * time.Second

type HandlerManager struct {
	serviceManager services.ServiceManager
	itemHandler    *ItemHandler
	logger         *slog.Logger
}

func NewHandlerManager(serviceManager services.ServiceManager, logger *slog.Logger) *HandlerManager {
	return &HandlerManager{
		serviceManager: serviceManager,
		itemHandler:    NewItemHandler(serviceManager.Item(), logger),
		logger:         logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.Health)

	v1 := router.Group("/api/v1")
	{
		items := v1.Group("/items")
		{
			items.POST("", hm.itemHandler.CreateItem)
			items.GET("", hm.itemHandler.ListItems)
			items.GET("/export", hm.itemHandler.ExportItems)
			items.GET("/:id", hm.itemHandler.GetItem)
			items.PUT("/:id", hm.itemHandler.UpdateItem)
			items.DELETE("/:id", hm.itemHandler.DeleteItem)
		}
	}
}

// Health reports whether the database behind the repositories is reachable
func (hm *HandlerManager) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		hm.logger.WarnContext(ctx, "Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "generic-repository",
	})
}
