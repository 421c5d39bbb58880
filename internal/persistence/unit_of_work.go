// Package persistence implements a unit of work on top of gorm: an identity map of
// tracked entities, per-type entity sets, lazy queries with and without tracking, and
// a single transactional Commit that writes the staged inserts, updates and deletes.
//
// A UnitOfWork is not safe for concurrent use. Create one per repository, or share one
// deliberately across repositories running on the same goroutine.
package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UnitOfWork struct {
	id     string
	db     *gorm.DB
	logger *slog.Logger

	entries  []*entry
	byEntity map[any]*entry
	byKey    map[string]*entry
}

// NewUnitOfWork creates an empty unit of work bound to db
func NewUnitOfWork(db *gorm.DB, logger *slog.Logger) *UnitOfWork {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &UnitOfWork{
		id:       id,
		db:       db,
		logger:   logger.With("unit_of_work", id),
		byEntity: make(map[any]*entry),
		byKey:    make(map[string]*entry),
	}
}

func (u *UnitOfWork) ID() string   { return u.id }
func (u *UnitOfWork) DB() *gorm.DB { return u.db }
func (u *UnitOfWork) Tracked() int { return len(u.entries) }

// HasChanges reports whether Commit would write anything
func (u *UnitOfWork) HasChanges() bool {
	for _, e := range u.entries {
		if e.state != Unchanged || e.modified() {
			return true
		}
	}
	return false
}

// Commit writes all staged changes in one transaction and returns the number of
// affected rows. Modified entities are updated, never upserted: an update that
// matches no row fails with ErrConcurrencyConflict. On failure the transaction is
// rolled back, the error is returned as is and every entry keeps its state so the
// commit can be retried.
func (u *UnitOfWork) Commit(ctx context.Context) (int64, error) {
	u.detectChanges()

	pending := make([]*entry, 0, len(u.entries))
	for _, e := range u.entries {
		if e.state == Added || e.state == Modified || e.state == Deleted {
			pending = append(pending, e)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	start := time.Now()
	var affected int64
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range pending {
			var result *gorm.DB
			switch e.state {
			case Added:
				result = tx.Create(e.entity)
			case Modified:
				result = tx.Model(e.entity).Select("*").Updates(e.entity)
			case Deleted:
				result = tx.Delete(e.entity)
			}
			if result.Error != nil {
				return result.Error
			}
			if e.state == Modified && result.RowsAffected == 0 {
				return fmt.Errorf("%s: %w", e.key, ErrConcurrencyConflict)
			}
			affected += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		u.logger.WarnContext(ctx, "Commit failed", "pending", len(pending), "error", err)
		return 0, err
	}

	for _, e := range pending {
		if e.state == Deleted {
			u.detach(e)
			continue
		}
		e.state = Unchanged
		e.refresh()
		u.rekey(ctx, e)
	}

	u.logger.DebugContext(ctx, "Commit completed",
		"pending", len(pending),
		"affected", affected,
		"duration", time.Since(start))
	return affected, nil
}

func (u *UnitOfWork) detectChanges() {
	for _, e := range u.entries {
		if e.modified() {
			e.state = Modified
		}
	}
}

func (u *UnitOfWork) keyOf(ctx context.Context, entity any) (string, error) {
	return identityKey(ctx, u.db.NamingStrategy, entity)
}

func (u *UnitOfWork) track(entity any, key string, state State, capture func() any) *entry {
	e := &entry{entity: entity, key: key, state: state, capture: capture}
	e.refresh()
	u.entries = append(u.entries, e)
	u.byEntity[entity] = e
	if key != "" {
		u.byKey[key] = e
	}
	return e
}

func (u *UnitOfWork) detach(e *entry) {
	delete(u.byEntity, e.entity)
	if e.key != "" && u.byKey[e.key] == e {
		delete(u.byKey, e.key)
	}
	for i, candidate := range u.entries {
		if candidate == e {
			u.entries = append(u.entries[:i], u.entries[i+1:]...)
			break
		}
	}
	e.state = Detached
}

// rekey picks up primary keys assigned by the database on insert
func (u *UnitOfWork) rekey(ctx context.Context, e *entry) {
	key, err := u.keyOf(ctx, e.entity)
	if err != nil || key == "" || key == e.key {
		return
	}
	if e.key != "" && u.byKey[e.key] == e {
		delete(u.byKey, e.key)
	}
	e.key = key
	u.byKey[key] = e
}
