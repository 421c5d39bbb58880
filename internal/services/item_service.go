package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/generic-repository/internal/models"
	"github.com/SAP-F-2025/generic-repository/internal/repositories"
	"github.com/SAP-F-2025/generic-repository/internal/repositories/gormrepo"
	"github.com/SAP-F-2025/generic-repository/internal/validator"
)

const exportSheet = "Items"

// match the repository paging defaults
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type itemService struct {
	factory   *gormrepo.Factory[models.Item, *gormrepo.ItemRepository]
	validator *validator.Validator
	logger    *slog.Logger
}

func NewItemService(factory *gormrepo.Factory[models.Item, *gormrepo.ItemRepository], validator *validator.Validator, logger *slog.Logger) ItemService {
	return &itemService{
		factory:   factory,
		validator: validator,
		logger:    logger.With("service", "item"),
	}
}

func (s *itemService) Create(ctx context.Context, req *models.CreateItemRequest) (*models.Item, error) {
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, errs)
	}

	item := &models.Item{
		ID:         req.ID,
		Name:       req.Name,
		Attributes: datatypes.JSON(req.Attributes),
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	err := gormrepo.Use(ctx, s.factory, func(repo *gormrepo.ItemRepository) error {
		existing, err := repo.FindByID(ctx, item.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%s: %w", item.ID, ErrItemAlreadyExists)
		}
		if _, err := repo.Add(item); err != nil {
			return err
		}
		return s.persist(ctx, repo)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Item created", "item_id", item.ID)
	return item, nil
}

func (s *itemService) GetByID(ctx context.Context, id string) (*models.Item, error) {
	var item *models.Item
	err := gormrepo.Use(ctx, s.factory, func(repo *gormrepo.ItemRepository) error {
		var err error
		item, err = repo.GetAllNoTracking().Where(gormrepo.ItemByID(id)).First(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrItemNotFound)
	}
	return item, nil
}

func (s *itemService) List(ctx context.Context, filters repositories.ItemFilters) (*models.ItemListResponse, error) {
	var response *models.ItemListResponse
	err := gormrepo.Use(ctx, s.factory, func(repo *gormrepo.ItemRepository) error {
		items, total, err := repo.List(ctx, filters)
		if err != nil {
			return err
		}

		size := min(filters.Limit, maxPageSize)
		if size <= 0 {
			size = defaultPageSize
		}
		page := max(filters.Offset, 0)/size + 1
		response = &models.ItemListResponse{Items: items, Total: total, Page: page, Size: size}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

func (s *itemService) Update(ctx context.Context, id string, req *models.UpdateItemRequest) (*models.Item, error) {
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, errs)
	}

	var item *models.Item
	err := gormrepo.Use(ctx, s.factory, func(repo *gormrepo.ItemRepository) error {
		found, err := repo.UpdateAsync(ctx, gormrepo.ItemByID(id), func(target *models.Item) {
			if req.Name != nil {
				target.Name = *req.Name
			}
			if req.Attributes != nil {
				target.Attributes = datatypes.JSON(req.Attributes)
			}
			item = target
		}).Await(ctx)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s: %w", id, ErrItemNotFound)
		}
		return s.persist(ctx, repo)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Item updated", "item_id", id)
	return item, nil
}

func (s *itemService) Delete(ctx context.Context, id string) error {
	err := gormrepo.Use(ctx, s.factory, func(repo *gormrepo.ItemRepository) error {
		item, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%s: %w", id, ErrItemNotFound)
		}
		if err := repo.Remove(item); err != nil {
			return err
		}
		return s.persist(ctx, repo)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Item deleted", "item_id", id)
	return nil
}

func (s *itemService) Export(ctx context.Context) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to prepare workbook: %w", err)
	}
	header := []interface{}{"ID", "Name", "Attributes", "Created At", "Updated At"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	rows := 0
	err := gormrepo.Use(ctx, s.factory, func(repo *gormrepo.ItemRepository) error {
		for item, err := range repo.GetAllNoTracking().Order("id").All(ctx) {
			if err != nil {
				return err
			}
			rows++
			cell, err := excelize.CoordinatesToCellName(1, rows+1)
			if err != nil {
				return err
			}
			row := []interface{}{
				item.ID,
				item.Name,
				item.Attributes.String(),
				item.CreatedAt.UTC().Format(time.RFC3339),
				item.UpdatedAt.UTC().Format(time.RFC3339),
			}
			if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
				return fmt.Errorf("failed to write row %d: %w", rows, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	s.logger.InfoContext(ctx, "Items exported", "rows", rows)
	return buf, nil
}

// persist forces the write-back when the repository does not commit on release
func (s *itemService) persist(ctx context.Context, repo *gormrepo.ItemRepository) error {
	if repo.Options().CommitOnRelease {
		return nil
	}
	_, err := repo.SaveChanges(ctx, true)
	return err
}
