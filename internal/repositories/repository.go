package repositories

import (
	"context"
	"iter"

	"github.com/SAP-F-2025/generic-repository/internal/persistence"
)

// Repository is the data-access surface for one entity type. Every instance owns
// exactly one unit of work; mutations are staged there and written back by
// SaveChanges or by Release when the instance goes out of scope.
type Repository[E any] interface {
	// Queries
	GetAll() *persistence.Query[E]
	GetAllNoTracking() *persistence.Query[E]
	FindFirst(ctx context.Context, p persistence.Predicate[E]) (*E, error)
	FindFirstAsync(ctx context.Context, p persistence.Predicate[E]) *Future[*E]
	FindMultiple(ctx context.Context, p persistence.Predicate[E]) iter.Seq2[*E, error]

	// Staged mutations
	Add(entity *E) (*persistence.EntityEntry[E], error)
	AddAsync(ctx context.Context, entity *E) *Future[*persistence.EntityEntry[E]]
	Update(entity *E, mutator func(*E)) error
	UpdateAsync(ctx context.Context, p persistence.Predicate[E], mutator func(*E)) *Future[bool]
	Remove(entity *E) error
	RemoveRange(entities ...*E) error

	// Write-back
	SaveChanges(ctx context.Context, force bool) (int64, error)
	Releaser
}

// Releaser is implemented by anything acquired from a factory. Release runs the
// scope-exit write-back exactly once.
type Releaser interface {
	Release(ctx context.Context) (int64, error)
}
