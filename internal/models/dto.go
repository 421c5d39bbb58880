package models

import (
	"encoding/json"
	"time"
)

// ===== ITEM REQUESTS =====

type CreateItemRequest struct {
	ID         string          `json:"id" validate:"omitempty,max=64,item_id"`
	Name       string          `json:"name" validate:"required,max=200"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
}

type UpdateItemRequest struct {
	Name       *string         `json:"name" validate:"omitnil,min=1,max=200"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
}

type ItemListResponse struct {
	Items []*Item `json:"items"`
	Total int64   `json:"total"`
	Page  int     `json:"page"`
	Size  int     `json:"size"`
}

// ===== ERROR RESPONSES =====

type ValidationErrorResponse struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

type ErrorResponse struct {
	Error            string                    `json:"error,omitempty"`
	Message          string                    `json:"message"`
	Code             string                    `json:"code,omitempty"`
	Details          interface{}               `json:"details,omitempty"`
	Timestamp        time.Time                 `json:"timestamp"`
	Path             string                    `json:"path,omitempty"`
	ValidationErrors []ValidationErrorResponse `json:"validation_errors,omitempty"`
}

type SuccessResponse struct {
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
