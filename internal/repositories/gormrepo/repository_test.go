package gormrepo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/generic-repository/internal/models"
	"github.com/SAP-F-2025/generic-repository/internal/persistence"
	"github.com/SAP-F-2025/generic-repository/internal/repositories"
	"github.com/SAP-F-2025/generic-repository/internal/testutil"
)

func TestUse_CommitOnRelease(t *testing.T) {
	tests := []struct {
		name            string
		commitOnRelease bool
		wantCount       int64
	}{
		{name: "enabled writes back on release", commitOnRelease: true, wantCount: 1},
		{name: "disabled discards staged changes", commitOnRelease: false, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, true)
			factory := f.itemFactory(t, tt.commitOnRelease)

			err := Use(ctx, factory, func(repo *ItemRepository) error {
				_, err := repo.Add(&models.Item{ID: "1", Name: "x"})
				return err
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantCount, f.count(t))
			if tt.wantCount == 1 {
				assert.Equal(t, "x", f.stored(t, "1").Name)
			}
		})
	}
}

func TestRepository_FindFirstAsyncMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	factory := f.itemFactory(t, true)

	err := Use(ctx, factory, func(repo *ItemRepository) error {
		item, err := repo.FindFirstAsync(ctx, ItemByID("missing")).Await(ctx)
		require.NoError(t, err)
		assert.Nil(t, item)
		return nil
	})
	require.NoError(t, err)
}

func TestRepository_FindFirstSeesStagedAdds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	repo, err := f.genericFactory(t).Create(ctx, nil)
	require.NoError(t, err)

	item := &models.Item{ID: "1", Name: "x"}
	_, err = repo.Add(item)
	require.NoError(t, err)

	found, err := repo.FindFirst(ctx, ItemByID("1"))
	require.NoError(t, err)
	assert.Same(t, item, found)

	found, err = repo.FindFirst(ctx, persistence.Where[models.Item]("id = ?", "1"))
	require.NoError(t, err)
	assert.Nil(t, found, "predicates without an in-memory matcher only see the store")
}

func TestRepository_UpdateNilIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	repo, err := f.genericFactory(t).Create(ctx, nil)
	require.NoError(t, err)
	statements := testutil.CountStatements(t, f.db)

	invoked := false
	require.NoError(t, repo.Update(nil, func(*models.Item) { invoked = true }))
	assert.False(t, invoked)
	assert.False(t, repo.Dirty())

	affected, err := repo.Release(ctx)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.Zero(t, *statements)
}

func TestRepository_SaveChangesRule(t *testing.T) {
	ctx := context.Background()

	t.Run("clean repository does no I/O", func(t *testing.T) {
		f := newFixture(t, true)
		repo, err := f.genericFactory(t).Create(ctx, nil)
		require.NoError(t, err)
		statements := testutil.CountStatements(t, f.db)

		affected, err := repo.SaveChanges(ctx, false)
		require.NoError(t, err)
		assert.Zero(t, affected)
		assert.Zero(t, *statements)
	})

	t.Run("dirty repository commits and resets", func(t *testing.T) {
		f := newFixture(t, true)
		repo, err := f.genericFactory(t).Create(ctx, nil)
		require.NoError(t, err)

		_, err = repo.Add(&models.Item{ID: "1", Name: "x"})
		require.NoError(t, err)
		assert.True(t, repo.Dirty())

		affected, err := repo.SaveChanges(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)
		assert.False(t, repo.Dirty())
	})

	t.Run("force commits in-place changes of tracked entities", func(t *testing.T) {
		f := newFixture(t, true)
		f.seed(t, &models.Item{ID: "1", Name: "x"})
		repo, err := f.genericFactory(t).Create(ctx, nil)
		require.NoError(t, err)

		item, err := repo.GetAll().First(ctx)
		require.NoError(t, err)
		item.Name = "y"
		assert.False(t, repo.Dirty())

		affected, err := repo.SaveChanges(ctx, false)
		require.NoError(t, err)
		assert.Zero(t, affected, "not dirty, nothing written without force")

		affected, err = repo.SaveChanges(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)
		assert.Equal(t, "y", f.stored(t, "1").Name)
	})

	t.Run("disabled commit on release still honours force", func(t *testing.T) {
		f := newFixture(t, true)
		factory := f.itemFactory(t, false)
		repo, err := factory.Create(ctx, nil)
		require.NoError(t, err)

		_, err = repo.Add(&models.Item{ID: "1", Name: "x"})
		require.NoError(t, err)

		affected, err := repo.SaveChanges(ctx, false)
		require.NoError(t, err)
		assert.Zero(t, affected)
		assert.True(t, repo.Dirty())

		affected, err = repo.SaveChanges(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)
		assert.False(t, repo.Dirty())
	})
}

func TestRepository_FailedCommitKeepsDirty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.seed(t, &models.Item{ID: "1", Name: "x"})
	repo, err := f.genericFactory(t).Create(ctx, nil)
	require.NoError(t, err)

	duplicate := &models.Item{ID: "1", Name: "dup"}
	_, err = repo.Add(duplicate)
	require.NoError(t, err)

	affected, err := repo.SaveChanges(ctx, true)
	require.Error(t, err)
	assert.Zero(t, affected)
	assert.True(t, repo.Dirty())
	for _, sentinel := range []error{
		repositories.ErrInvalidArgument,
		repositories.ErrConstructionFailed,
		repositories.ErrReleased,
	} {
		assert.False(t, errors.Is(err, sentinel))
	}

	_, err = repo.Release(ctx)
	require.Error(t, err)
	assert.False(t, repo.Released(), "failed release can be retried")

	require.NoError(t, repo.Remove(duplicate))
	affected, err = repo.Release(ctx)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.True(t, repo.Released())
	assert.Equal(t, "x", f.stored(t, "1").Name)
}

func TestRepository_ReleaseOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	repo, err := f.genericFactory(t).Create(ctx, nil)
	require.NoError(t, err)

	_, err = repo.Add(&models.Item{ID: "1", Name: "x"})
	require.NoError(t, err)

	affected, err := repo.Release(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.Release(ctx)
	require.NoError(t, err)
	assert.Zero(t, affected)

	_, err = repo.Add(&models.Item{ID: "2", Name: "y"})
	assert.ErrorIs(t, err, repositories.ErrReleased)
	_, err = repo.SaveChanges(ctx, true)
	assert.ErrorIs(t, err, repositories.ErrReleased)
	assert.ErrorIs(t, repo.Remove(&models.Item{ID: "1"}), repositories.ErrReleased)
	for _, err := range repo.FindMultiple(ctx, ItemByID("1")) {
		assert.ErrorIs(t, err, repositories.ErrReleased)
	}
}

func TestRepository_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	repo, err := f.genericFactory(t).Create(ctx, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		run  func() error
	}{
		{name: "add nil", run: func() error { _, err := repo.Add(nil); return err }},
		{name: "add without name", run: func() error { _, err := repo.Add(&models.Item{ID: "1"}); return err }},
		{name: "add with unsafe id", run: func() error { _, err := repo.Add(&models.Item{ID: "a/b", Name: "x"}); return err }},
		{name: "remove nil", run: func() error { return repo.Remove(nil) }},
		{name: "remove without key", run: func() error { return repo.Remove(&models.Item{Name: "x"}) }},
		{name: "update into invalid state", run: func() error {
			return repo.Update(&models.Item{ID: "1", Name: "x"}, func(item *models.Item) { item.Name = "" })
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), repositories.ErrInvalidArgument)
		})
	}
	assert.False(t, repo.Dirty())
	assert.False(t, repo.UnitOfWork().HasChanges())
}

func TestRepository_RejectedUpdateIsNeverWritten(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.seed(t, &models.Item{ID: "1", Name: "x"})
	repo, err := f.genericFactory(t).Create(ctx, nil)
	require.NoError(t, err)

	item, err := repo.FindFirst(ctx, ItemByID("1"))
	require.NoError(t, err)
	require.NotNil(t, item)

	err = repo.Update(item, func(i *models.Item) { i.Name = "" })
	assert.ErrorIs(t, err, repositories.ErrInvalidArgument)
	assert.Equal(t, "x", item.Name, "rejected change is rolled back in memory")
	assert.Equal(t, persistence.Unchanged, repo.Entry(item).State)

	_, err = repo.Add(&models.Item{ID: "2", Name: "y"})
	require.NoError(t, err)

	affected, err := repo.Release(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	stored := f.stored(t, "1")
	require.NotNil(t, stored)
	assert.Equal(t, "x", stored.Name)
	assert.NotNil(t, f.stored(t, "2"))
}

func TestRepository_AddAsync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	repo, err := f.genericFactory(t).Create(ctx, nil)
	require.NoError(t, err)

	entry, err := repo.AddAsync(ctx, &models.Item{ID: "1", Name: "x"}).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, persistence.Added, entry.State)
	assert.True(t, repo.Dirty())

	_, err = repo.AddAsync(ctx, nil).Await(ctx)
	assert.ErrorIs(t, err, repositories.ErrInvalidArgument)
}

func TestRepository_RemoveRangeIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.seed(t, &models.Item{ID: "1", Name: "x"}, &models.Item{ID: "2", Name: "y"})
	repo, err := f.genericFactory(t).Create(ctx, nil)
	require.NoError(t, err)

	err = repo.RemoveRange(&models.Item{ID: "1"}, nil, &models.Item{ID: "2"})
	assert.ErrorIs(t, err, repositories.ErrInvalidArgument)
	assert.False(t, repo.Dirty())
	assert.Zero(t, repo.UnitOfWork().Tracked())

	require.NoError(t, repo.RemoveRange())
	assert.False(t, repo.Dirty())

	require.NoError(t, repo.RemoveRange(&models.Item{ID: "1"}, &models.Item{ID: "2"}))
	affected, err := repo.Release(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.Zero(t, f.count(t))
}

func TestRepository_RemoveStagedAddNeverReachesStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	repo, err := f.genericFactory(t).Create(ctx, nil)
	require.NoError(t, err)

	item := &models.Item{ID: "1", Name: "x"}
	_, err = repo.Add(item)
	require.NoError(t, err)
	require.NoError(t, repo.Remove(item))
	assert.Equal(t, persistence.Detached, repo.Entry(item).State)

	affected, err := repo.Release(ctx)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.Zero(t, f.count(t))
}

func TestRepository_UpdateAsync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.seed(t, &models.Item{ID: "1", Name: "x"})
	repo, err := f.genericFactory(t).Create(ctx, nil)
	require.NoError(t, err)

	invoked := false
	found, err := repo.UpdateAsync(ctx, ItemByID("missing"), func(*models.Item) { invoked = true }).Await(ctx)
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, invoked)
	assert.False(t, repo.Dirty())

	found, err = repo.UpdateAsync(ctx, ItemByID("1"), func(item *models.Item) { item.Name = "renamed" }).Await(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, repo.Dirty())

	affected, err := repo.Release(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.Equal(t, "renamed", f.stored(t, "1").Name)
}

func TestRepository_FindMultipleIsReevaluated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.seed(t, &models.Item{ID: "1", Name: "x"})
	repo, err := f.genericFactory(t).Create(ctx, nil)
	require.NoError(t, err)

	seq := repo.FindMultiple(ctx, persistence.Where[models.Item]("name = ?", "x"))
	names := func() int {
		n := 0
		for item, err := range seq {
			require.NoError(t, err)
			assert.Equal(t, "x", item.Name)
			n++
		}
		return n
	}

	assert.Equal(t, 1, names())
	f.seed(t, &models.Item{ID: "2", Name: "x"})
	assert.Equal(t, 2, names())
}

func TestRepository_GetAllNoTrackingIsNeverCommitted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.seed(t, &models.Item{ID: "1", Name: "x"})
	repo, err := f.genericFactory(t).Create(ctx, nil)
	require.NoError(t, err)

	items, err := repo.GetAllNoTracking().List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	items[0].Name = "changed"

	affected, err := repo.SaveChanges(ctx, true)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.Equal(t, "x", f.stored(t, "1").Name)
}
