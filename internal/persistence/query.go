package persistence

import (
	"context"
	"errors"
	"iter"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Predicate selects entities of type E. The SQL condition is evaluated by the
// database; the optional in-memory matcher lets lookups see entities that are
// staged for insertion but not committed yet.
type Predicate[E any] struct {
	query any
	args  []any
	match func(*E) bool
}

// Where builds a predicate from a gorm condition, e.g. Where[Item]("name = ?", "x")
func Where[E any](query any, args ...any) Predicate[E] {
	return Predicate[E]{query: query, args: args}
}

// ByID matches the entity whose primary key equals id
func ByID[E any](id any) Predicate[E] {
	return Predicate[E]{query: clause.Eq{Column: clause.PrimaryColumn, Value: id}}
}

// Matching attaches an in-memory equivalent of the SQL condition
func (p Predicate[E]) Matching(fn func(*E) bool) Predicate[E] {
	p.match = fn
	return p
}

// MatchesLocal reports whether entity satisfies the in-memory matcher. Predicates
// without one never match locally.
func (p Predicate[E]) MatchesLocal(entity *E) bool {
	return p.match != nil && entity != nil && p.match(entity)
}

func (p Predicate[E]) apply(db *gorm.DB) *gorm.DB {
	if p.query == nil {
		return db
	}
	return db.Where(p.query, p.args...)
}

// Query is a lazy, immutable query description. Nothing touches the database
// until List, First, Count or All runs, and every run re-reads current state.
type Query[E any] struct {
	set      *EntitySet[E]
	tracking bool
	scopes   []func(*gorm.DB) *gorm.DB
}

func (q *Query[E]) with(scope func(*gorm.DB) *gorm.DB) *Query[E] {
	scopes := make([]func(*gorm.DB) *gorm.DB, 0, len(q.scopes)+1)
	scopes = append(scopes, q.scopes...)
	return &Query[E]{set: q.set, tracking: q.tracking, scopes: append(scopes, scope)}
}

func (q *Query[E]) Where(p Predicate[E]) *Query[E] {
	return q.with(p.apply)
}

func (q *Query[E]) Order(value string) *Query[E] {
	return q.with(func(db *gorm.DB) *gorm.DB { return db.Order(value) })
}

func (q *Query[E]) Limit(n int) *Query[E] {
	return q.with(func(db *gorm.DB) *gorm.DB { return db.Limit(n) })
}

func (q *Query[E]) Offset(n int) *Query[E] {
	return q.with(func(db *gorm.DB) *gorm.DB { return db.Offset(n) })
}

// Tracking reports whether results are attached to the unit of work
func (q *Query[E]) Tracking() bool { return q.tracking }

func (q *Query[E]) build(ctx context.Context) *gorm.DB {
	db := q.set.uow.db.WithContext(ctx).Model(new(E))
	for _, scope := range q.scopes {
		db = scope(db)
	}
	return db
}

// List loads every matching entity
func (q *Query[E]) List(ctx context.Context) ([]*E, error) {
	var rows []*E
	if err := q.build(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	if !q.tracking {
		return rows, nil
	}
	for i, row := range rows {
		attached, err := q.set.attach(ctx, row)
		if err != nil {
			return nil, err
		}
		rows[i] = attached
	}
	return rows, nil
}

// First returns the first match ordered by primary key, or nil when nothing matches
func (q *Query[E]) First(ctx context.Context) (*E, error) {
	row := new(E)
	err := q.build(ctx).First(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !q.tracking {
		return row, nil
	}
	return q.set.attach(ctx, row)
}

func (q *Query[E]) Count(ctx context.Context) (int64, error) {
	var count int64
	err := q.build(ctx).Count(&count).Error
	return count, err
}

// All streams matching entities row by row. The sequence can be ranged over any
// number of times; each range runs the query again.
func (q *Query[E]) All(ctx context.Context) iter.Seq2[*E, error] {
	return func(yield func(*E, error) bool) {
		db := q.build(ctx)
		rows, err := db.Rows()
		if err != nil {
			yield(nil, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			row := new(E)
			if err := q.set.uow.db.ScanRows(rows, row); err != nil {
				yield(nil, err)
				return
			}
			if q.tracking {
				if row, err = q.set.attach(ctx, row); err != nil {
					yield(nil, err)
					return
				}
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}
