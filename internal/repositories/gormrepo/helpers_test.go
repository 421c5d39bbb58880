package gormrepo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/generic-repository/internal/events"
	"github.com/SAP-F-2025/generic-repository/internal/models"
	"github.com/SAP-F-2025/generic-repository/internal/persistence"
	"github.com/SAP-F-2025/generic-repository/internal/registry"
	"github.com/SAP-F-2025/generic-repository/internal/repositories"
	"github.com/SAP-F-2025/generic-repository/internal/testutil"
	"github.com/SAP-F-2025/generic-repository/internal/validator"
)

// fakeProvider hands out units of work over db and counts the calls
type fakeProvider struct {
	db    *gorm.DB
	err   error
	calls int
}

func (p *fakeProvider) NewUnitOfWork(ctx context.Context) (*persistence.UnitOfWork, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return persistence.NewUnitOfWork(p.db, nil), nil
}

type fixture struct {
	db        *gorm.DB
	reg       *registry.Registry
	provider  *fakeProvider
	publisher *events.MockEventPublisher
}

// newFixture registers everything the item repositories need, except the
// context provider when withProvider is false
func newFixture(t *testing.T, withProvider bool) *fixture {
	t.Helper()

	f := &fixture{
		db:        testutil.DB(t),
		reg:       registry.New(),
		publisher: events.NewMockEventPublisher(testutil.Logger(t)),
	}
	f.provider = &fakeProvider{db: f.db}

	require.NoError(t, f.reg.Register(repositories.LoggerToken, testutil.Logger(t)))
	require.NoError(t, f.reg.Register(repositories.ValidatorToken, validator.New()))
	require.NoError(t, f.reg.Register(repositories.PublisherToken, events.EventPublisher(f.publisher)))
	if withProvider {
		require.NoError(t, f.reg.Register(repositories.ContextProviderToken, f.provider))
	}
	return f
}

func (f *fixture) itemFactory(t *testing.T, commitOnRelease bool) *Factory[models.Item, *ItemRepository] {
	t.Helper()

	builder, err := AddRepository[models.Item](f.reg, ItemConstructor())
	require.NoError(t, err)
	require.NoError(t, builder.WithCommitOnRelease(commitOnRelease).Apply())

	factory, err := ResolveFactory[models.Item, *ItemRepository](f.reg)
	require.NoError(t, err)
	return factory
}

func (f *fixture) genericFactory(t *testing.T) *Factory[models.Item, *Repository[models.Item]] {
	t.Helper()

	_, err := AddRepository[models.Item](f.reg, DefaultConstructor[models.Item]())
	require.NoError(t, err)

	factory, err := ResolveFactory[models.Item, *Repository[models.Item]](f.reg)
	require.NoError(t, err)
	return factory
}

func (f *fixture) seed(t *testing.T, items ...*models.Item) {
	t.Helper()
	for _, item := range items {
		require.NoError(t, f.db.Create(item).Error)
	}
}

func (f *fixture) count(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Item{}).Count(&n).Error)
	return n
}

func (f *fixture) stored(t *testing.T, id string) *models.Item {
	t.Helper()
	var item models.Item
	err := f.db.First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	require.NoError(t, err)
	return &item
}
