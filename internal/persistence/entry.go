package persistence

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"gorm.io/gorm/schema"
)

// State describes how a tracked entity will be written on the next commit
type State int

const (
	Detached State = iota
	Unchanged
	Added
	Modified
	Deleted
)

func (s State) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "detached"
	}
}

var (
	ErrIdentityConflict = errors.New("another instance with the same key is already tracked")
	ErrMissingKey       = errors.New("entity has no primary key value")
	ErrNilEntity        = errors.New("entity is nil")

	ErrConcurrencyConflict = errors.New("modified entity no longer exists in the store")
)

// EntityEntry describes the tracked state of one entity
type EntityEntry[E any] struct {
	Entity *E
	State  State
}

type entry struct {
	entity   any
	key      string
	state    State
	snapshot any
	capture  func() any
}

func (e *entry) modified() bool {
	return e.state == Unchanged && !reflect.DeepEqual(e.snapshot, e.capture())
}

func (e *entry) refresh() {
	e.snapshot = e.capture()
}

var schemaCache sync.Map

// identityKey returns "<table>:<pk values>" for entity, or "" when every primary
// key field is still zero (e.g. auto-increment ids before insert).
func identityKey(ctx context.Context, namer schema.Namer, entity any) (string, error) {
	sch, err := schema.Parse(entity, &schemaCache, namer)
	if err != nil {
		return "", fmt.Errorf("parse schema: %w", err)
	}
	if len(sch.PrimaryFields) == 0 {
		return "", fmt.Errorf("%s: %w", sch.Name, ErrMissingKey)
	}

	rv := reflect.Indirect(reflect.ValueOf(entity))
	parts := make([]string, 0, len(sch.PrimaryFields))
	allZero := true
	for _, field := range sch.PrimaryFields {
		value, zero := field.ValueOf(ctx, rv)
		if !zero {
			allZero = false
		}
		parts = append(parts, fmt.Sprint(value))
	}
	if allZero {
		return "", nil
	}
	return sch.Table + ":" + strings.Join(parts, ","), nil
}
