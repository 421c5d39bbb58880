package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/generic-repository/internal/models"
)

type ErrorResponse = models.ErrorResponse

type BaseHandler struct {
	logger *slog.Logger
}

func NewBaseHandler(logger *slog.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs an incoming request together with its request id
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "request_id", c.GetString("request_id"), "method", c.Request.Method, "path", c.FullPath())
	h.logger.InfoContext(c.Request.Context(), msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err, "request_id", c.GetString("request_id"), "path", c.FullPath())
	h.logger.ErrorContext(c.Request.Context(), msg, args...)
}
