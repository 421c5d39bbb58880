package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/generic-repository/internal/models"
	"github.com/SAP-F-2025/generic-repository/internal/repositories"
	"github.com/SAP-F-2025/generic-repository/internal/services"
	"github.com/SAP-F-2025/generic-repository/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ItemHandler struct {
	BaseHandler
	service services.ItemService
}

func NewItemHandler(service services.ItemService, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== CORE CRUD ENDPOINTS =====

// CreateItem creates a new item
// @Summary Create an item
// @Tags items
// @Accept json
// @Produce json
// @Param request body models.CreateItemRequest true "Item creation request"
// @Success 201 {object} models.Item
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 409 {object} ErrorResponse "Conflict - item id already exists"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /items [post]
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req models.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err.Error())
		return
	}

	item, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Item created", "item_id", item.ID)
	c.JSON(http.StatusCreated, item)
}

// GetItem retrieves an item by ID
// @Summary Get an item by ID
// @Tags items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} models.Item
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /items/{id} [get]
func (h *ItemHandler) GetItem(c *gin.Context) {
	item, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// ListItems lists items with pagination, sorting and an optional name filter
// @Summary List items
// @Tags items
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Param name query string false "Name contains"
// @Param sort_by query string false "Sort column (id, name, created_at, updated_at)"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} models.ItemListResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Router /items [get]
func (h *ItemHandler) ListItems(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil || page < 1 {
		h.badRequest(c, "Invalid page", "page must be a positive integer")
		return
	}
	size, err := queryInt(c, "size", defaultPageSize)
	if err != nil || size < 1 || size > maxPageSize {
		h.badRequest(c, "Invalid size", fmt.Sprintf("size must be between 1 and %d", maxPageSize))
		return
	}

	filters := repositories.ItemFilters{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Limit:     size,
		Offset:    (page - 1) * size,
	}
	if name := c.Query("name"); name != "" {
		filters.Name = &name
	}

	response, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// UpdateItem updates an item
// @Summary Update an item
// @Tags items
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param request body models.UpdateItemRequest true "Item update request"
// @Success 200 {object} models.Item
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /items/{id} [put]
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	var req models.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err.Error())
		return
	}

	item, err := h.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Item updated", "item_id", item.ID)
	c.JSON(http.StatusOK, item)
}

// DeleteItem deletes an item
// @Summary Delete an item
// @Tags items
// @Param id path string true "Item ID"
// @Success 204
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /items/{id} [delete]
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Item deleted", "item_id", id)
	c.Status(http.StatusNoContent)
}

// ExportItems downloads every item as an xlsx workbook
// @Summary Export items
// @Tags items
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /items/export [get]
func (h *ItemHandler) ExportItems(c *gin.Context) {
	buf, err := h.service.Export(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("items-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ===== HELPERS =====

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (h *ItemHandler) badRequest(c *gin.Context, msg string, details any) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Message:   msg,
		Details:   details,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}

func (h *ItemHandler) handleServiceError(c *gin.Context, err error) {
	response := ErrorResponse{
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		response.Message = "Validation failed"
		response.Code = "VALIDATION_FAILED"
		for _, ve := range validationErrs {
			response.ValidationErrors = append(response.ValidationErrors, models.ValidationErrorResponse{
				Field:   ve.Field,
				Message: ve.Message,
				Value:   ve.Value,
			})
		}
		c.JSON(http.StatusBadRequest, response)
		return
	}

	// Map service errors to HTTP status codes
	switch {
	case errors.Is(err, services.ErrItemNotFound):
		response.Message = "Item not found"
		response.Code = "NOT_FOUND"
		c.JSON(http.StatusNotFound, response)
	case errors.Is(err, services.ErrItemAlreadyExists):
		response.Message = "Item already exists"
		response.Code = "CONFLICT"
		c.JSON(http.StatusConflict, response)
	case errors.Is(err, services.ErrValidationFailed), errors.Is(err, repositories.ErrInvalidArgument):
		response.Message = "Validation failed"
		response.Code = "VALIDATION_FAILED"
		response.Details = err.Error()
		c.JSON(http.StatusBadRequest, response)
	case errors.Is(err, services.ErrServiceNotReady):
		response.Message = "Service unavailable"
		response.Code = "UNAVAILABLE"
		c.JSON(http.StatusServiceUnavailable, response)
	default:
		h.LogError(c, err, "Unexpected service error")
		response.Message = "Internal server error"
		response.Code = "INTERNAL_ERROR"
		c.JSON(http.StatusInternalServerError, response)
	}
}
