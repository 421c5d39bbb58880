package gormrepo

import (
	"context"
	"fmt"
	"slices"

	"github.com/SAP-F-2025/generic-repository/internal/events"
	"github.com/SAP-F-2025/generic-repository/internal/models"
	"github.com/SAP-F-2025/generic-repository/internal/persistence"
	"github.com/SAP-F-2025/generic-repository/internal/repositories"
)

var itemSortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"id":         true,
	"name":       true,
}

// ItemRepository is the repository for items. It publishes an EntitiesCommitted
// event every time a write-back reaches the store.
type ItemRepository struct {
	*Repository[models.Item]
	publisher events.EventPublisher
}

func NewItemRepository(base *Repository[models.Item], publisher events.EventPublisher) *ItemRepository {
	r := &ItemRepository{Repository: base, publisher: publisher}
	if publisher != nil {
		base.OnCommitted(r.publishCommitted)
	}
	return r
}

// ItemConstructor resolves the default repository dependencies plus the event publisher
func ItemConstructor() Constructor[*ItemRepository] {
	base := DefaultConstructor[models.Item]()
	return Constructor[*ItemRepository]{
		Params: append(slices.Clone(base.Params), repositories.PublisherToken),
		New: func(args []any) (*ItemRepository, error) {
			last := len(args) - 1
			publisher, err := Arg[events.EventPublisher](args, last)
			if err != nil {
				return nil, err
			}
			repo, err := base.New(args[:last])
			if err != nil {
				return nil, err
			}
			return NewItemRepository(repo, publisher), nil
		},
	}
}

// ItemByID matches the item with the given id, staged inserts included
func ItemByID(id string) persistence.Predicate[models.Item] {
	return persistence.ByID[models.Item](id).Matching(func(item *models.Item) bool {
		return item.ID == id
	})
}

// FindByID returns the tracked item with id, or nil when it does not exist
func (r *ItemRepository) FindByID(ctx context.Context, id string) (*models.Item, error) {
	return r.FindFirst(ctx, ItemByID(id))
}

// List returns one page of items matching filters, untracked, plus the total match count
func (r *ItemRepository) List(ctx context.Context, filters repositories.ItemFilters) ([]*models.Item, int64, error) {
	query := r.applyItemFilters(r.GetAllNoTracking(), filters)

	total, err := query.Count(ctx)
	if err != nil {
		return nil, 0, handleDBError(err, "count items")
	}

	items, err := applyPaginationAndSort(query, itemSortColumns, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset).List(ctx)
	if err != nil {
		return nil, 0, handleDBError(err, "list items")
	}
	return items, total, nil
}

func (r *ItemRepository) applyItemFilters(query *persistence.Query[models.Item], filters repositories.ItemFilters) *persistence.Query[models.Item] {
	if filters.Name != nil && *filters.Name != "" {
		query = query.Where(persistence.Where[models.Item]("name LIKE ?", "%"+*filters.Name+"%"))
	}
	return query
}

func (r *ItemRepository) publishCommitted(ctx context.Context, affected int64) {
	event := events.NewEvent(events.TypeEntitiesCommitted, events.EntitiesCommitted{
		UnitOfWorkID: r.UnitOfWork().ID(),
		Entity:       models.Item{}.TableName(),
		Affected:     affected,
	})
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.Logger().WarnContext(ctx, "Failed to publish commit event", "error", fmt.Errorf("publish %s: %w", event.ID, err))
	}
}
