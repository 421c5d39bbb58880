package gormrepo

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/SAP-F-2025/generic-repository/internal/persistence"
	"github.com/SAP-F-2025/generic-repository/internal/registry"
	"github.com/SAP-F-2025/generic-repository/internal/repositories"
	"github.com/SAP-F-2025/generic-repository/internal/validator"
)

// Constructor describes how to build R: the registry tokens of its parameters,
// in order, and the function receiving the resolved arguments.
// repositories.UnitOfWorkToken stands for the repository's own unit of work.
type Constructor[R any] struct {
	Params []registry.Token
	New    func(args []any) (R, error)
}

// Arg returns args[i] as T, failing with ErrDependencyUnresolved on a type mismatch
func Arg[T any](args []any, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(args) {
		return zero, fmt.Errorf("argument %d of %d: %w", i, len(args), repositories.ErrDependencyUnresolved)
	}
	typed, ok := args[i].(T)
	if !ok {
		return zero, fmt.Errorf("argument %d is %T, want %s: %w", i, args[i], reflect.TypeFor[T](), repositories.ErrDependencyUnresolved)
	}
	return typed, nil
}

// Factory creates repositories of type R for entity type E. A factory is shared
// and safe for concurrent use; every Create without an existing unit of work
// yields an independent one.
type Factory[E any, R repositories.Releaser] struct {
	reg  *registry.Registry
	ctor Constructor[R]

	mu       sync.Mutex
	provider persistence.Provider
}

func NewFactory[E any, R repositories.Releaser](reg *registry.Registry, ctor Constructor[R]) *Factory[E, R] {
	return &Factory[E, R]{reg: reg, ctor: ctor}
}

// Create builds a repository. The context provider must resolve on every call.
// When existing is nil a fresh unit of work is taken from it; otherwise existing
// is shared and no unit of work is created.
func (f *Factory[E, R]) Create(ctx context.Context, existing *persistence.UnitOfWork) (R, error) {
	var zero R

	provider, err := f.resolveProvider()
	if err != nil {
		return zero, err
	}

	uow := existing
	if uow == nil {
		if uow, err = provider.NewUnitOfWork(ctx); err != nil {
			return zero, fmt.Errorf("create unit of work for %s: %w: %w", entityName[E](), repositories.ErrConstructionFailed, err)
		}
	}

	if f.ctor.New == nil {
		return zero, fmt.Errorf("no constructor for %s: %w", entityName[E](), repositories.ErrConstructionFailed)
	}

	args := make([]any, len(f.ctor.Params))
	for i, token := range f.ctor.Params {
		if token == repositories.UnitOfWorkToken {
			args[i] = uow
			continue
		}
		instance, ok := f.reg.Resolve(token)
		if !ok {
			return zero, fmt.Errorf("parameter %d (%s) of %s repository: %w", i, token, entityName[E](), repositories.ErrDependencyUnresolved)
		}
		args[i] = instance
	}

	repo, err := f.ctor.New(args)
	if err != nil {
		return zero, fmt.Errorf("construct %s repository: %w: %w", entityName[E](), repositories.ErrConstructionFailed, err)
	}

	f.logger().DebugContext(ctx, "Repository created",
		"entity", entityName[E](),
		"unit_of_work", uow.ID(),
		"shared", existing != nil)
	return repo, nil
}

// resolveProvider finds the context provider once and caches it. Lookup order:
// the token set in FactoryOptions, the well-known ContextProviderToken, then the
// first registered token named "ContextProvider" regardless of case and type
// parameters.
func (f *Factory[E, R]) resolveProvider() (persistence.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.provider != nil {
		return f.provider, nil
	}

	token, err := f.providerToken()
	if err != nil {
		return nil, err
	}

	instance, ok := f.reg.Resolve(token)
	if !ok {
		return nil, fmt.Errorf("context provider %s is not registered: %w", token, repositories.ErrDependencyUnresolved)
	}
	provider, ok := instance.(persistence.Provider)
	if !ok {
		return nil, fmt.Errorf("context provider %s is %T: %w", token, instance, repositories.ErrDependencyUnresolved)
	}

	f.provider = provider
	return provider, nil
}

func (f *Factory[E, R]) providerToken() (registry.Token, error) {
	options, _ := registry.Lookup[repositories.FactoryOptions](f.reg, repositories.FactoryOptionsToken)
	if !options.ProviderToken.IsZero() {
		return options.ProviderToken, nil
	}
	if _, ok := f.reg.Resolve(repositories.ContextProviderToken); ok {
		return repositories.ContextProviderToken, nil
	}
	if token, ok := f.reg.FindByBaseName(repositories.ContextProviderToken.BaseName()); ok {
		return token, nil
	}
	return registry.Token{}, fmt.Errorf("no context provider for %s: %w", entityName[E](), repositories.ErrConfigurationMissing)
}

func (f *Factory[E, R]) logger() *slog.Logger {
	if logger, ok := registry.Lookup[*slog.Logger](f.reg, repositories.LoggerToken); ok {
		return logger
	}
	return slog.Default()
}

// FactoryToken is the registry token of the factory for E producing R
func FactoryToken[E any, R repositories.Releaser]() registry.Token {
	return registry.NewToken(fmt.Sprintf("RepositoryFactory[%s,%s]", reflect.TypeFor[E](), reflect.TypeFor[R]()))
}

// AddRepository registers the options for E with CommitOnRelease enabled and a
// shared factory for R. An already registered factory is kept. The returned
// builder adjusts the options.
func AddRepository[E any, R repositories.Releaser](reg *registry.Registry, ctor Constructor[R]) (*repositories.RepositoryBuilder[E], error) {
	if err := reg.Register(repositories.OptionsToken[E](), repositories.RepositoryOptions[E]{CommitOnRelease: true}); err != nil {
		return nil, fmt.Errorf("add repository: %w", err)
	}
	if _, err := reg.TryRegister(FactoryToken[E, R](), NewFactory[E](reg, ctor)); err != nil {
		return nil, fmt.Errorf("add repository: %w", err)
	}
	return repositories.NewRepositoryBuilder[E](reg), nil
}

// ResolveFactory returns the factory registered by AddRepository
func ResolveFactory[E any, R repositories.Releaser](reg *registry.Registry) (*Factory[E, R], error) {
	token := FactoryToken[E, R]()
	factory, ok := registry.Lookup[*Factory[E, R]](reg, token)
	if !ok {
		return nil, fmt.Errorf("%s: %w", token, repositories.ErrConfigurationMissing)
	}
	return factory, nil
}

// DefaultConstructor builds a plain Repository[E] from its options, its unit of
// work, the shared logger and the shared validator.
func DefaultConstructor[E any]() Constructor[*Repository[E]] {
	return Constructor[*Repository[E]]{
		Params: []registry.Token{
			repositories.OptionsToken[E](),
			repositories.UnitOfWorkToken,
			repositories.LoggerToken,
			repositories.ValidatorToken,
		},
		New: newRepositoryFromArgs[E],
	}
}

func newRepositoryFromArgs[E any](args []any) (*Repository[E], error) {
	options, err := Arg[repositories.RepositoryOptions[E]](args, 0)
	if err != nil {
		return nil, err
	}
	uow, err := Arg[*persistence.UnitOfWork](args, 1)
	if err != nil {
		return nil, err
	}
	logger, err := Arg[*slog.Logger](args, 2)
	if err != nil {
		return nil, err
	}
	v, err := Arg[*validator.Validator](args, 3)
	if err != nil {
		return nil, err
	}
	return NewRepository(options, uow, logger, v)
}
