package services

import (
	"bytes"
	"context"

	"github.com/SAP-F-2025/generic-repository/internal/models"
	"github.com/SAP-F-2025/generic-repository/internal/repositories"
)

// ItemService manages items. Every call works on its own repository, acquired
// from the item factory and released when the call returns.
type ItemService interface {
	Create(ctx context.Context, req *models.CreateItemRequest) (*models.Item, error)
	GetByID(ctx context.Context, id string) (*models.Item, error)
	List(ctx context.Context, filters repositories.ItemFilters) (*models.ItemListResponse, error)
	Update(ctx context.Context, id string, req *models.UpdateItemRequest) (*models.Item, error)
	Delete(ctx context.Context, id string) error

	// Export writes every item to an xlsx workbook
	Export(ctx context.Context) (*bytes.Buffer, error)
}

// ServiceManager owns the service instances and the persistence lifecycle
type ServiceManager interface {
	Item() ItemService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
