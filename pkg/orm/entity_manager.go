// Package orm maps tagged structs to rows: the EntityManager writes models,
// repositories read them, and the relation engine keeps the two sides of a
// relation consistent.
package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/marshallshelly/modspace/pkg/builder"
	"github.com/marshallshelly/modspace/pkg/registry"
	"github.com/marshallshelly/modspace/pkg/runtime"
	"github.com/marshallshelly/modspace/pkg/schema"
)

// AccessMode selects between reading and writing a property.
type AccessMode int

const (
	// AccessRead returns the current value of a property.
	AccessRead AccessMode = iota
	// AccessWrite stores a value into a property.
	AccessWrite
)

// EntityManager persists models through a runtime.DB. It holds no per-call
// state and is safe for concurrent use.
type EntityManager struct {
	db       *runtime.DB
	qb       *builder.Builder
	registry *registry.Registry
	logger   *zap.Logger
	orphans  OrphanPolicy

	mu        sync.RWMutex
	factories map[string]any
}

// NewEntityManager creates an EntityManager on db.
func NewEntityManager(db *runtime.DB, opts ...Option) *EntityManager {
	em := &EntityManager{
		db:        db,
		qb:        builder.New(db.Dialect()),
		registry:  registry.Default(),
		logger:    db.Logger(),
		factories: make(map[string]any),
	}
	for _, opt := range opts {
		opt(em)
	}
	return em
}

// DB returns the underlying connection.
func (em *EntityManager) DB() *runtime.DB {
	return em.db
}

// Builder returns the query builder for the connection's dialect.
func (em *EntityManager) Builder() *builder.Builder {
	return em.qb
}

// Registry returns the metadata registry.
func (em *EntityManager) Registry() *registry.Registry {
	return em.registry
}

// Persist inserts model as a new row and writes the generated primary key
// back into it. A zero primary key is left to the database.
func (em *EntityManager) Persist(ctx context.Context, model any) error {
	table, rv, err := em.inspect(model)
	if err != nil {
		return err
	}

	extra, err := em.relationColumns(ctx, table, rv, opPersist)
	if err != nil {
		return err
	}

	pk := table.PrimaryKeyField()
	generate := pk.IsZero(rv)

	q := em.qb.Insert(table.Name)
	for _, col := range table.Columns {
		if col.PrimaryKey && generate {
			continue
		}
		f, _ := table.FieldByColumn(col.Name)
		q.Set(col.Name, f.Get(rv))
	}
	for _, c := range extra {
		q.Set(c.column, c.value)
	}
	q.Returning(table.PrimaryKey)

	query, args, err := q.ToSQL()
	if err != nil {
		return err
	}

	if q.HasReturning() {
		var id any
		if err := em.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
			return &runtime.QueryError{Query: query, Err: err}
		}
		return pk.Set(rv, id)
	}

	result, err := em.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if !generate {
		return nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return &runtime.QueryError{Query: query, Err: err}
	}
	return pk.Set(rv, id)
}

// Save updates the row matching the model's primary key with every declared
// column.
func (em *EntityManager) Save(ctx context.Context, model any) error {
	table, rv, err := em.inspect(model)
	if err != nil {
		return err
	}

	pk := table.PrimaryKeyField()
	if pk.IsZero(rv) {
		return fmt.Errorf("%w: cannot save %s without a primary key", runtime.ErrInvalidState, table.GoType.Name())
	}

	extra, err := em.relationColumns(ctx, table, rv, opSave)
	if err != nil {
		return err
	}

	q := em.qb.Update(table.Name)
	for _, col := range table.Columns {
		if col.PrimaryKey {
			continue
		}
		f, _ := table.FieldByColumn(col.Name)
		q.Set(col.Name, f.Get(rv))
	}
	for _, c := range extra {
		q.Set(c.column, c.value)
	}
	if len(table.Columns) == 1 && len(extra) == 0 {
		// Only the key is declared; there is nothing to update.
		return nil
	}
	q.Where(builder.Eq(table.PrimaryKey, pk.Get(rv)))

	query, args, err := q.ToSQL()
	if err != nil {
		return err
	}

	_, err = em.db.Exec(ctx, query, args...)
	return err
}

// Remove deletes the model's row. Orphaned children of a one-to-many
// relation with orphan removal are deleted first, according to the
// configured OrphanPolicy.
func (em *EntityManager) Remove(ctx context.Context, model any) error {
	table, rv, err := em.inspect(model)
	if err != nil {
		return err
	}

	pk := table.PrimaryKeyField()
	if pk.IsZero(rv) {
		return fmt.Errorf("%w: cannot remove %s without a primary key", runtime.ErrInvalidState, table.GoType.Name())
	}

	if err := em.removeRelated(ctx, table, rv); err != nil {
		return err
	}

	query, args, err := em.qb.Delete(table.Name).Where(builder.Eq(table.PrimaryKey, pk.Get(rv))).ToSQL()
	if err != nil {
		return err
	}

	_, err = em.db.Exec(ctx, query, args...)
	return err
}

// Access reads or writes a declared property of model. AccessWrite takes
// exactly one value and returns the stored value.
func (em *EntityManager) Access(model any, property string, mode AccessMode, value ...any) (any, error) {
	table, rv, err := em.inspect(model)
	if err != nil {
		return nil, err
	}

	f, ok := table.Field(property)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no property %q", runtime.ErrInvalidArgument, table.GoType.Name(), property)
	}

	switch mode {
	case AccessRead:
		return f.Get(rv), nil
	case AccessWrite:
		if len(value) != 1 {
			return nil, fmt.Errorf("%w: write access takes exactly one value, got %d", runtime.ErrInvalidArgument, len(value))
		}
		if err := f.Set(rv, value[0]); err != nil {
			return nil, err
		}
		return f.Get(rv), nil
	}
	return nil, fmt.Errorf("%w: unknown access mode %d", runtime.ErrInvalidArgument, mode)
}

// Properties returns the declared property names of model's type in
// declaration order. model may be a value, a pointer or a reflect.Type.
func (em *EntityManager) Properties(model any) ([]string, error) {
	var (
		table *schema.TableMetadata
		err   error
	)
	if t, ok := model.(reflect.Type); ok {
		table, err = em.registry.GetOrRegisterType(t)
	} else {
		table, err = em.registry.GetOrRegister(model)
	}
	if err != nil {
		return nil, err
	}
	return table.Properties(), nil
}

// inspect resolves the metadata of model and the struct value behind it.
func (em *EntityManager) inspect(model any) (*schema.TableMetadata, reflect.Value, error) {
	table, err := em.registry.GetOrRegister(model)
	if err != nil {
		return nil, reflect.Value{}, err
	}
	rv, err := table.Value(model)
	if err != nil {
		return nil, reflect.Value{}, err
	}
	return table, rv, nil
}

// fetch runs a SELECT and hydrates every row into a fresh model. The
// result set is drained before any relation query is issued.
func (em *EntityManager) fetch(ctx context.Context, table *schema.TableMetadata, q *builder.SelectQuery) ([]reflect.Value, []builder.Row, error) {
	query, args, err := q.ToSQL()
	if err != nil {
		return nil, nil, err
	}

	rows, err := em.db.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	data, err := builder.ScanRows(rows)
	if err != nil {
		return nil, nil, &runtime.QueryError{Query: query, Err: err}
	}

	models := make([]reflect.Value, 0, len(data))
	for _, row := range data {
		m, err := hydrate(table, row)
		if err != nil {
			return nil, nil, err
		}
		models = append(models, m)
	}
	return models, data, nil
}

// count runs a COUNT(*) query.
func (em *EntityManager) count(ctx context.Context, q *builder.SelectQuery) (int64, error) {
	query, args, err := q.CountSQL()
	if err != nil {
		return 0, err
	}

	var n int64
	if err := em.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, &runtime.QueryError{Query: query, Err: err}
	}
	return n, nil
}

// hydrate writes the columns of row into a zero model and returns the
// pointer to it. Columns without a matching property are ignored.
func hydrate(table *schema.TableMetadata, row builder.Row) (reflect.Value, error) {
	ptr := table.New()
	rv := ptr.Elem()
	for _, col := range table.Columns {
		v, ok := row[col.Name]
		if !ok {
			continue
		}
		f, _ := table.FieldByColumn(col.Name)
		if err := f.Set(rv, v); err != nil {
			return reflect.Value{}, fmt.Errorf("hydrate %s: %w", table.Name, err)
		}
	}
	return ptr, nil
}
