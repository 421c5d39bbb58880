package persistence

import (
	"context"
	"fmt"
)

// EntitySet is the typed view of a UnitOfWork for entity type E
type EntitySet[E any] struct {
	uow *UnitOfWork
}

// Set returns the entity set for E inside u
func Set[E any](u *UnitOfWork) *EntitySet[E] {
	return &EntitySet[E]{uow: u}
}

func (s *EntitySet[E]) UnitOfWork() *UnitOfWork { return s.uow }

// Add stages entity for insertion. Adding an entity that is tracked for deletion
// or as unchanged re-stages it as an insert.
func (s *EntitySet[E]) Add(entity *E) (*EntityEntry[E], error) {
	if entity == nil {
		return nil, ErrNilEntity
	}
	if e, ok := s.uow.byEntity[any(entity)]; ok {
		e.state = Added
		return s.entryFor(e), nil
	}

	key, err := s.uow.keyOf(context.Background(), entity)
	if err != nil {
		return nil, err
	}
	if err := s.checkIdentity(key); err != nil {
		return nil, err
	}
	return s.entryFor(s.uow.track(entity, key, Added, capture(entity))), nil
}

// Update marks entity as modified, attaching it when it is not tracked yet.
// Entities staged for insertion stay staged for insertion.
func (s *EntitySet[E]) Update(entity *E) (*EntityEntry[E], error) {
	if entity == nil {
		return nil, ErrNilEntity
	}
	if e, ok := s.uow.byEntity[any(entity)]; ok {
		if e.state != Added {
			e.state = Modified
		}
		return s.entryFor(e), nil
	}

	key, err := s.uow.keyOf(context.Background(), entity)
	if err != nil {
		return nil, err
	}
	if err := s.checkIdentity(key); err != nil {
		return nil, err
	}
	return s.entryFor(s.uow.track(entity, key, Modified, capture(entity))), nil
}

// Remove stages entity for deletion. Removing an entity that was only staged for
// insertion detaches it, so it never reaches the store.
func (s *EntitySet[E]) Remove(entity *E) (*EntityEntry[E], error) {
	if entity == nil {
		return nil, ErrNilEntity
	}
	if e, ok := s.uow.byEntity[any(entity)]; ok {
		if e.state == Added {
			s.uow.detach(e)
			return &EntityEntry[E]{Entity: entity, State: Detached}, nil
		}
		e.state = Deleted
		return s.entryFor(e), nil
	}

	if err := s.CheckRemove(entity); err != nil {
		return nil, err
	}
	key, err := s.uow.keyOf(context.Background(), entity)
	if err != nil {
		return nil, err
	}
	return s.entryFor(s.uow.track(entity, key, Deleted, capture(entity))), nil
}

// CheckRemove reports whether Remove would accept entity, without staging anything
func (s *EntitySet[E]) CheckRemove(entity *E) error {
	if entity == nil {
		return ErrNilEntity
	}
	if _, ok := s.uow.byEntity[any(entity)]; ok {
		return nil
	}
	key, err := s.uow.keyOf(context.Background(), entity)
	if err != nil {
		return err
	}
	if key == "" {
		return ErrMissingKey
	}
	return s.checkIdentity(key)
}

// Entry returns the tracked state of entity, Detached when it is unknown
func (s *EntitySet[E]) Entry(entity *E) *EntityEntry[E] {
	if e, ok := s.uow.byEntity[any(entity)]; ok {
		return s.entryFor(e)
	}
	return &EntityEntry[E]{Entity: entity, State: Detached}
}

// Added returns the entities of type E staged for insertion, in staging order
func (s *EntitySet[E]) Added() []*E {
	var out []*E
	for _, e := range s.uow.entries {
		if e.state != Added {
			continue
		}
		if typed, ok := e.entity.(*E); ok {
			out = append(out, typed)
		}
	}
	return out
}

// Query starts a lazy query over E. Tracking queries attach their results to the
// unit of work; no-tracking queries return fresh, unattached instances.
func (s *EntitySet[E]) Query(tracking bool) *Query[E] {
	return &Query[E]{set: s, tracking: tracking}
}

// attach resolves a freshly loaded row against the identity map. A row whose key
// is already tracked yields the tracked instance instead.
func (s *EntitySet[E]) attach(ctx context.Context, loaded *E) (*E, error) {
	key, err := s.uow.keyOf(ctx, loaded)
	if err != nil {
		return nil, err
	}
	if key != "" {
		if existing, ok := s.uow.byKey[key]; ok {
			if typed, ok := existing.entity.(*E); ok {
				return typed, nil
			}
		}
	}
	s.uow.track(loaded, key, Unchanged, capture(loaded))
	return loaded, nil
}

func (s *EntitySet[E]) checkIdentity(key string) error {
	if key == "" {
		return nil
	}
	if _, ok := s.uow.byKey[key]; ok {
		return fmt.Errorf("%s: %w", key, ErrIdentityConflict)
	}
	return nil
}

func (s *EntitySet[E]) entryFor(e *entry) *EntityEntry[E] {
	typed, _ := e.entity.(*E)
	return &EntityEntry[E]{Entity: typed, State: e.state}
}

func capture[E any](entity *E) func() any {
	return func() any { return *entity }
}
