package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/generic-repository/internal/events"
	"github.com/SAP-F-2025/generic-repository/internal/models"
	"github.com/SAP-F-2025/generic-repository/internal/persistence"
	"github.com/SAP-F-2025/generic-repository/internal/registry"
	"github.com/SAP-F-2025/generic-repository/internal/repositories"
	"github.com/SAP-F-2025/generic-repository/internal/testutil"
	"github.com/SAP-F-2025/generic-repository/internal/validator"
)

func newTestManager(t *testing.T, config ServiceManagerConfig) (ServiceManager, *events.MockEventPublisher, *registry.Registry) {
	t.Helper()

	logger := testutil.Logger(t)
	reg := registry.New()
	publisher := events.NewMockEventPublisher(logger)
	provider := persistence.NewProvider(persistence.ProviderConfig{DB: testutil.DB(t), Logger: logger})

	sm := NewServiceManager(reg, provider, publisher, logger, validator.New(), config)
	require.NoError(t, sm.Initialize(context.Background()))
	return sm, publisher, reg
}

func TestItemService_Lifecycle(t *testing.T) {
	for _, commitOnRelease := range []bool{true, false} {
		name := "commit on release"
		if !commitOnRelease {
			name = "explicit save"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sm, publisher, _ := newTestManager(t, ServiceManagerConfig{ItemsCommitOnRelease: commitOnRelease})
			svc := sm.Item()

			created, err := svc.Create(ctx, &models.CreateItemRequest{
				ID:         "widget",
				Name:       "Widget",
				Attributes: json.RawMessage(`{"color":"red"}`),
			})
			require.NoError(t, err)
			assert.Equal(t, "widget", created.ID)

			got, err := svc.GetByID(ctx, "widget")
			require.NoError(t, err)
			assert.Equal(t, "Widget", got.Name)
			assert.JSONEq(t, `{"color":"red"}`, got.Attributes.String())

			newName := "Gadget"
			updated, err := svc.Update(ctx, "widget", &models.UpdateItemRequest{Name: &newName})
			require.NoError(t, err)
			assert.Equal(t, "Gadget", updated.Name)

			got, err = svc.GetByID(ctx, "widget")
			require.NoError(t, err)
			assert.Equal(t, "Gadget", got.Name)

			require.NoError(t, svc.Delete(ctx, "widget"))
			_, err = svc.GetByID(ctx, "widget")
			assert.ErrorIs(t, err, ErrItemNotFound)

			assert.Len(t, publisher.GetPublishedEvents(), 3, "one event per committed write")
		})
	}
}

func TestItemService_CreateErrors(t *testing.T) {
	ctx := context.Background()
	sm, _, _ := newTestManager(t, ServiceManagerConfig{ItemsCommitOnRelease: true})
	svc := sm.Item()

	_, err := svc.Create(ctx, &models.CreateItemRequest{ID: "a"})
	assert.ErrorIs(t, err, ErrValidationFailed)
	var validationErrors ValidationErrors
	assert.ErrorAs(t, err, &validationErrors)

	_, err = svc.Create(ctx, &models.CreateItemRequest{ID: "a", Name: "first"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &models.CreateItemRequest{ID: "a", Name: "second"})
	assert.ErrorIs(t, err, ErrItemAlreadyExists)

	generated, err := svc.Create(ctx, &models.CreateItemRequest{Name: "no id"})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)
}

func TestItemService_MissingItems(t *testing.T) {
	ctx := context.Background()
	sm, publisher, _ := newTestManager(t, ServiceManagerConfig{ItemsCommitOnRelease: true})
	svc := sm.Item()

	name := "x"
	_, err := svc.Update(ctx, "missing", &models.UpdateItemRequest{Name: &name})
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "missing"), ErrItemNotFound)
	assert.Empty(t, publisher.GetPublishedEvents())
}

func TestItemService_UpdateRejectsInvalidName(t *testing.T) {
	ctx := context.Background()
	sm, _, _ := newTestManager(t, ServiceManagerConfig{ItemsCommitOnRelease: true})
	svc := sm.Item()

	_, err := svc.Create(ctx, &models.CreateItemRequest{ID: "a", Name: "first"})
	require.NoError(t, err)

	empty := ""
	_, err = svc.Update(ctx, "a", &models.UpdateItemRequest{Name: &empty})
	assert.ErrorIs(t, err, ErrValidationFailed)

	got, err := svc.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)
}

func TestItemService_List(t *testing.T) {
	ctx := context.Background()
	sm, _, _ := newTestManager(t, ServiceManagerConfig{ItemsCommitOnRelease: true})
	svc := sm.Item()

	for _, id := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, &models.CreateItemRequest{ID: id, Name: "item " + id})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, repositories.ItemFilters{SortBy: "id", SortOrder: "asc", Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.Size)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c", page.Items[0].ID)
}

func TestItemService_Export(t *testing.T) {
	ctx := context.Background()
	sm, _, _ := newTestManager(t, ServiceManagerConfig{ItemsCommitOnRelease: true})
	svc := sm.Item()

	for _, id := range []string{"b", "a"} {
		_, err := svc.Create(ctx, &models.CreateItemRequest{ID: id, Name: "item " + id})
		require.NoError(t, err)
	}

	buf, err := svc.Export(ctx)
	require.NoError(t, err)

	workbook, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer workbook.Close()

	rows, err := workbook.GetRows("Items")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Name", "Attributes", "Created At", "Updated At"}, rows[0])
	assert.Equal(t, "a", rows[1][0])
	assert.Equal(t, "item b", rows[2][1])
}

func TestServiceManager_ProviderToken(t *testing.T) {
	ctx := context.Background()
	sm, _, reg := newTestManager(t, ServiceManagerConfig{ProviderToken: "ContextProvider[reporting]", ItemsCommitOnRelease: true})

	_, ok := reg.Resolve(repositories.ContextProviderToken)
	assert.False(t, ok)
	_, ok = reg.Resolve(registry.NewToken("ContextProvider[reporting]"))
	assert.True(t, ok)

	_, err := sm.Item().Create(ctx, &models.CreateItemRequest{ID: "a", Name: "x"})
	require.NoError(t, err)
}

func TestServiceManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	sm, _, _ := newTestManager(t, ServiceManagerConfig{ItemsCommitOnRelease: true})

	require.NoError(t, sm.Initialize(ctx), "initialize is idempotent")
	require.NoError(t, sm.HealthCheck(ctx))

	require.NoError(t, sm.Shutdown(ctx))
	assert.ErrorIs(t, sm.HealthCheck(ctx), ErrServiceNotReady)
	require.NoError(t, sm.Shutdown(ctx))
}
