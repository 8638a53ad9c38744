package orm

import (
	"context"
	"fmt"
	"reflect"

	"github.com/marshallshelly/modspace/pkg/builder"
	"github.com/marshallshelly/modspace/pkg/runtime"
	"github.com/marshallshelly/modspace/pkg/schema"
)

// Repository is the read side of one model type.
type Repository[T any] interface {
	// FindAll returns every row, with relations resolved. The result is
	// never nil.
	FindAll(ctx context.Context) ([]*T, error)
	// Find returns the row with the given primary key, or nil when there is
	// none.
	Find(ctx context.Context, id any) (*T, error)
}

// RepositoryFactory builds a custom repository around the generic one.
type RepositoryFactory[T any] func(base *EntityRepository[T]) Repository[T]

// EntityRepository is the generic Repository of model type T.
type EntityRepository[T any] struct {
	em    *EntityManager
	table *schema.TableMetadata
}

// RegisterRepository binds factory to the repository name a model type
// declares through RepositoryName, or TypeName+"Repository" by default.
func RegisterRepository[T any](em *EntityManager, name string, factory RepositoryFactory[T]) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.factories[name] = factory
}

// GetRepository returns the repository of T. When a factory is registered
// under T's repository name the custom repository is returned.
func GetRepository[T any](em *EntityManager) (Repository[T], error) {
	base, err := NewEntityRepository[T](em)
	if err != nil {
		return nil, err
	}

	em.mu.RLock()
	f, ok := em.factories[base.table.RepositoryName]
	em.mu.RUnlock()
	if !ok {
		return base, nil
	}

	factory, ok := f.(RepositoryFactory[T])
	if !ok {
		return nil, fmt.Errorf("%w: repository %s is not registered for %s", runtime.ErrInvalidArgument, base.table.RepositoryName, base.table.GoType.Name())
	}
	return factory(base), nil
}

// NewEntityRepository creates the generic repository of T. T must be a
// struct model type.
func NewEntityRepository[T any](em *EntityManager) (*EntityRepository[T], error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a model struct", runtime.ErrInvalidArgument, t)
	}

	table, err := em.registry.GetOrRegisterType(t)
	if err != nil {
		return nil, err
	}
	return &EntityRepository[T]{em: em, table: table}, nil
}

// EntityManager returns the manager the repository reads through.
func (r *EntityRepository[T]) EntityManager() *EntityManager {
	return r.em
}

// Table returns the model metadata.
func (r *EntityRepository[T]) Table() *schema.TableMetadata {
	return r.table
}

// FindAll returns every row of the table.
func (r *EntityRepository[T]) FindAll(ctx context.Context) ([]*T, error) {
	return r.find(ctx, r.em.qb.Select(r.table.Name))
}

// Find returns the row whose primary key equals id, or nil.
func (r *EntityRepository[T]) Find(ctx context.Context, id any) (*T, error) {
	models, err := r.find(ctx, r.em.qb.Select(r.table.Name).Where(builder.Eq(r.table.PrimaryKey, id)))
	if err != nil || len(models) == 0 {
		return nil, err
	}
	return models[0], nil
}

// FindBy returns the rows whose column equals value. A nil value matches
// NULL columns.
func (r *EntityRepository[T]) FindBy(ctx context.Context, column string, value any) ([]*T, error) {
	if _, ok := r.table.FieldByColumn(column); !ok && !r.isForeignKey(column) {
		return nil, fmt.Errorf("%w: %s has no column %q", runtime.ErrInvalidArgument, r.table.Name, column)
	}
	cond := builder.Eq(column, value)
	if value == nil {
		cond = builder.IsNull(column)
	}
	return r.find(ctx, r.em.qb.Select(r.table.Name).Where(cond))
}

// Count returns the number of rows in the table.
func (r *EntityRepository[T]) Count(ctx context.Context) (int64, error) {
	return r.em.count(ctx, r.em.qb.Select(r.table.Name))
}

func (r *EntityRepository[T]) isForeignKey(column string) bool {
	return r.table.Relation != nil && r.table.Relation.ForeignKey == column
}

// find hydrates every row of q, then resolves the relation of each model in
// fetch order. Many-to-one foreign keys are read from the rows into a
// buffer owned by this call.
func (r *EntityRepository[T]) find(ctx context.Context, q *builder.SelectQuery) ([]*T, error) {
	models, rows, err := r.em.fetch(ctx, r.table, q)
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(models))
	for _, m := range models {
		out = append(out, m.Interface().(*T))
	}
	if !r.table.HasRelation() {
		return out, nil
	}

	fks := newFKBuffer(len(rows))
	if r.table.RelationType() == schema.ManyToOne {
		for _, row := range rows {
			fks.push(row[r.table.Relation.ForeignKey])
		}
	}

	for _, m := range models {
		if err := r.em.resolve(ctx, r.table, m.Elem(), fks); err != nil {
			return nil, err
		}
	}
	return out, nil
}
