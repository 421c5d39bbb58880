package gormrepo

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/generic-repository/internal/persistence"
	"github.com/SAP-F-2025/generic-repository/internal/repositories"
)

// Use creates a repository, passes it to fn and releases it when fn returns or
// panics. Release runs exactly once; its error is joined with fn's.
func Use[E any, R repositories.Releaser](ctx context.Context, f *Factory[E, R], fn func(R) error) error {
	return UseWith(ctx, f, nil, fn)
}

// UseWith is Use over an existing unit of work shared with other repositories
func UseWith[E any, R repositories.Releaser](ctx context.Context, f *Factory[E, R], existing *persistence.UnitOfWork, fn func(R) error) (err error) {
	repo, err := f.Create(ctx, existing)
	if err != nil {
		return err
	}
	defer func() {
		_, releaseErr := repo.Release(ctx)
		err = errors.Join(err, releaseErr)
	}()
	return fn(repo)
}
