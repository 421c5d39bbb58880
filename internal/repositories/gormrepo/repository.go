// Package gormrepo implements repositories on top of the persistence unit of work
// and the factory that assembles them from the registry.
package gormrepo

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"reflect"

	"github.com/SAP-F-2025/generic-repository/internal/models"
	"github.com/SAP-F-2025/generic-repository/internal/persistence"
	"github.com/SAP-F-2025/generic-repository/internal/repositories"
	"github.com/SAP-F-2025/generic-repository/internal/validator"
)

// CommitHook runs after a write-back that reached the store
type CommitHook func(ctx context.Context, affected int64)

// Repository stages mutations of E in its own unit of work and writes them back
// on SaveChanges, or on Release when CommitOnRelease is set. It is meant to be
// used from one goroutine; async variants must be awaited before the next call.
type Repository[E any] struct {
	uow       *persistence.UnitOfWork
	set       *persistence.EntitySet[E]
	options   repositories.RepositoryOptions[E]
	logger    *slog.Logger
	validator *validator.Validator
	hooks     []CommitHook

	dirty    bool
	released bool
}

var _ repositories.Repository[models.Item] = (*Repository[models.Item])(nil)

// NewRepository creates a repository over uow. logger and v may be nil.
func NewRepository[E any](options repositories.RepositoryOptions[E], uow *persistence.UnitOfWork, logger *slog.Logger, v *validator.Validator) (*Repository[E], error) {
	if uow == nil {
		return nil, fmt.Errorf("new repository: nil unit of work: %w", repositories.ErrInvalidArgument)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository[E]{
		uow:       uow,
		set:       persistence.Set[E](uow),
		options:   options,
		logger:    logger.With("component", "repository", "entity", entityName[E](), "unit_of_work", uow.ID()),
		validator: v,
	}, nil
}

func (r *Repository[E]) UnitOfWork() *persistence.UnitOfWork         { return r.uow }
func (r *Repository[E]) Options() repositories.RepositoryOptions[E]  { return r.options }
func (r *Repository[E]) Dirty() bool                                 { return r.dirty }
func (r *Repository[E]) Released() bool                              { return r.released }
func (r *Repository[E]) Entry(entity *E) *persistence.EntityEntry[E] { return r.set.Entry(entity) }
func (r *Repository[E]) Logger() *slog.Logger                        { return r.logger }
func (r *Repository[E]) OnCommitted(hook CommitHook)                 { r.hooks = append(r.hooks, hook) }

// GetAll queries every E with tracking
func (r *Repository[E]) GetAll() *persistence.Query[E] {
	return r.set.Query(true)
}

// GetAllNoTracking queries every E without attaching the results
func (r *Repository[E]) GetAllNoTracking() *persistence.Query[E] {
	return r.set.Query(false)
}

// FindFirst returns the first entity matching p, or nil when there is none.
// Staged inserts are checked first through the predicate's in-memory matcher.
func (r *Repository[E]) FindFirst(ctx context.Context, p persistence.Predicate[E]) (*E, error) {
	if r.released {
		return nil, repositories.ErrReleased
	}
	for _, staged := range r.set.Added() {
		if p.MatchesLocal(staged) {
			return staged, nil
		}
	}

	entity, err := r.set.Query(true).Where(p).First(ctx)
	if err != nil {
		return nil, handleDBError(err, "find first")
	}
	return entity, nil
}

func (r *Repository[E]) FindFirstAsync(ctx context.Context, p persistence.Predicate[E]) *repositories.Future[*E] {
	return repositories.Go(func() (*E, error) {
		return r.FindFirst(ctx, p)
	})
}

// FindMultiple streams every tracked entity matching p. Each range re-runs the query.
func (r *Repository[E]) FindMultiple(ctx context.Context, p persistence.Predicate[E]) iter.Seq2[*E, error] {
	if r.released {
		return func(yield func(*E, error) bool) {
			yield(nil, repositories.ErrReleased)
		}
	}
	return r.set.Query(true).Where(p).All(ctx)
}

// Add stages entity for insertion
func (r *Repository[E]) Add(entity *E) (*persistence.EntityEntry[E], error) {
	if r.released {
		return nil, repositories.ErrReleased
	}
	if entity == nil {
		return nil, fmt.Errorf("add: nil entity: %w", repositories.ErrInvalidArgument)
	}
	if err := r.validate(entity); err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}

	entry, err := r.set.Add(entity)
	if err != nil {
		return nil, fmt.Errorf("add: %w: %w", repositories.ErrInvalidArgument, err)
	}
	r.dirty = true
	return entry, nil
}

func (r *Repository[E]) AddAsync(ctx context.Context, entity *E) *repositories.Future[*persistence.EntityEntry[E]] {
	return repositories.Go(func() (*persistence.EntityEntry[E], error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return r.Add(entity)
	})
}

// Update applies mutator to entity and stages it as modified. A nil entity is a
// no-op: mutator is not invoked and nothing is staged. When the result is
// rejected, entity is restored to its value before mutator ran.
func (r *Repository[E]) Update(entity *E, mutator func(*E)) error {
	if r.released {
		return repositories.ErrReleased
	}
	if entity == nil {
		return nil
	}

	before := *entity
	if mutator != nil {
		mutator(entity)
	}
	if err := r.validate(entity); err != nil {
		*entity = before
		return fmt.Errorf("update: %w", err)
	}

	if _, err := r.set.Update(entity); err != nil {
		*entity = before
		return fmt.Errorf("update: %w: %w", repositories.ErrInvalidArgument, err)
	}
	r.dirty = true
	return nil
}

// UpdateAsync updates the first entity matching p. It reports whether one was found.
func (r *Repository[E]) UpdateAsync(ctx context.Context, p persistence.Predicate[E], mutator func(*E)) *repositories.Future[bool] {
	return repositories.Go(func() (bool, error) {
		entity, err := r.FindFirst(ctx, p)
		if err != nil || entity == nil {
			return false, err
		}
		if err := r.Update(entity, mutator); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Remove stages entity for deletion
func (r *Repository[E]) Remove(entity *E) error {
	if r.released {
		return repositories.ErrReleased
	}
	if entity == nil {
		return fmt.Errorf("remove: nil entity: %w", repositories.ErrInvalidArgument)
	}

	if _, err := r.set.Remove(entity); err != nil {
		return fmt.Errorf("remove: %w: %w", repositories.ErrInvalidArgument, err)
	}
	r.dirty = true
	return nil
}

// RemoveRange stages every entity for deletion. Nothing is staged unless all of
// them are accepted.
func (r *Repository[E]) RemoveRange(entities ...*E) error {
	if r.released {
		return repositories.ErrReleased
	}
	for i, entity := range entities {
		if err := r.set.CheckRemove(entity); err != nil {
			return fmt.Errorf("remove range: entity %d: %w: %w", i, repositories.ErrInvalidArgument, err)
		}
	}
	if len(entities) == 0 {
		return nil
	}

	for i, entity := range entities {
		if _, err := r.set.Remove(entity); err != nil {
			return fmt.Errorf("remove range: entity %d: %w: %w", i, repositories.ErrInvalidArgument, err)
		}
	}
	r.dirty = true
	return nil
}

// SaveChanges writes staged changes back when force is set, or when there are
// unsaved mutations and CommitOnRelease is enabled. Otherwise it returns 0 without
// touching the store. Commit errors are returned unwrapped.
func (r *Repository[E]) SaveChanges(ctx context.Context, force bool) (int64, error) {
	if r.released {
		return 0, repositories.ErrReleased
	}
	return r.saveChanges(ctx, force)
}

// Release performs the scope-exit write-back. Once it succeeds the repository is
// closed for further use and later calls return 0. A failed write-back leaves the
// repository open so it can be retried.
func (r *Repository[E]) Release(ctx context.Context) (int64, error) {
	if r.released {
		return 0, nil
	}
	affected, err := r.saveChanges(ctx, false)
	if err != nil {
		return 0, err
	}
	r.released = true
	return affected, nil
}

func (r *Repository[E]) saveChanges(ctx context.Context, force bool) (int64, error) {
	if !force && !(r.dirty && r.options.CommitOnRelease) {
		return 0, nil
	}

	affected, err := r.uow.Commit(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to save changes", "force", force, "error", err)
		return 0, err
	}
	r.dirty = false

	r.logger.DebugContext(ctx, "Changes saved", "force", force, "affected", affected)
	if affected > 0 {
		for _, hook := range r.hooks {
			hook(ctx, affected)
		}
	}
	return affected, nil
}

func (r *Repository[E]) validate(entity *E) error {
	if r.validator == nil {
		return nil
	}
	if errs := r.validator.Validate(entity); len(errs) > 0 {
		return fmt.Errorf("%w: %w", repositories.ErrInvalidArgument, errs)
	}
	return nil
}

func entityName[E any]() string {
	return reflect.TypeFor[E]().String()
}

// handleDBError adds the failed operation to a persistence error
func handleDBError(err error, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}
