package orm

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/marshallshelly/modspace/pkg/builder"
	"github.com/marshallshelly/modspace/pkg/runtime"
	"github.com/marshallshelly/modspace/pkg/schema"
)

// Aliases of the joined tables in relation queries.
const (
	targetAlias = "t"
	ownerAlias  = "o"
)

type writeOp int

const (
	opPersist writeOp = iota
	opSave
)

// columnValue is an extra column a relation contributes to a write.
type columnValue struct {
	column string
	value  any
}

// relation bundles one model, its relation descriptor and the target
// metadata for the handlers below.
type relation struct {
	em     *EntityManager
	owner  *schema.TableMetadata
	target *schema.TableMetadata
	meta   *schema.RelationMetadata
	model  reflect.Value
}

// relationHandler implements the persist, save, remove and resolve steps of
// one cardinality.
type relationHandler interface {
	columns(ctx context.Context, r *relation, op writeOp) ([]columnValue, error)
	remove(ctx context.Context, r *relation) error
	resolve(ctx context.Context, r *relation, fks *fkBuffer) error
}

// handlerFor dispatches on the relation code.
func handlerFor(t schema.RelationType) (relationHandler, error) {
	switch t {
	case schema.OneToOne:
		return oneToOne{}, nil
	case schema.OneToMany:
		return oneToMany{}, nil
	case schema.ManyToOne:
		return manyToOne{}, nil
	case schema.ManyToMany:
		return manyToMany{}, nil
	}
	return nil, fmt.Errorf("%w: invalid relation type %s", runtime.ErrInvalidArgument, t)
}

// bind prepares the relation of model, or returns nil when the model has none.
func (em *EntityManager) bind(table *schema.TableMetadata, model reflect.Value) (*relation, relationHandler, error) {
	if !table.HasRelation() {
		return nil, nil, nil
	}

	h, err := handlerFor(table.Relation.Type)
	if err != nil {
		return nil, nil, err
	}

	target, err := em.registry.Get(table.Relation.TargetType)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s.%s: %w", runtime.ErrRelationRetrieval, table.GoType.Name(), table.Relation.Property, err)
	}

	return &relation{em: em, owner: table, target: target, meta: table.Relation, model: model}, h, nil
}

func (em *EntityManager) relationColumns(ctx context.Context, table *schema.TableMetadata, model reflect.Value, op writeOp) ([]columnValue, error) {
	r, h, err := em.bind(table, model)
	if r == nil || err != nil {
		return nil, err
	}
	return h.columns(ctx, r, op)
}

func (em *EntityManager) removeRelated(ctx context.Context, table *schema.TableMetadata, model reflect.Value) error {
	r, h, err := em.bind(table, model)
	if r == nil || err != nil {
		return err
	}
	return h.remove(ctx, r)
}

func (em *EntityManager) resolve(ctx context.Context, table *schema.TableMetadata, model reflect.Value, fks *fkBuffer) error {
	r, h, err := em.bind(table, model)
	if r == nil || err != nil {
		return err
	}
	return h.resolve(ctx, r, fks)
}

func (r *relation) ownerKey() any {
	return r.owner.PrimaryKeyField().Get(r.model)
}

func (r *relation) field() *schema.Field {
	return r.owner.RelationField()
}

// linked returns the struct behind the relation property, or false when
// the property is nil.
func (r *relation) linked() (reflect.Value, bool) {
	v := reflect.ValueOf(r.field().Get(r.model))
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return reflect.Value{}, false
	}
	return v.Elem(), true
}

// linkedKey reads the referenced key of the linked object.
func (r *relation) linkedKey() (any, error) {
	target, ok := r.linked()
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", runtime.ErrNilRelation, r.owner.GoType.Name(), r.meta.Property)
	}

	f, ok := r.target.FieldByColumn(r.meta.TargetPrimaryKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no column %q", runtime.ErrRelationRetrieval, r.target.GoType.Name(), r.meta.TargetPrimaryKey)
	}
	if f.IsZero(target) {
		return nil, fmt.Errorf("%w: linked %s has no %s; persist it first", runtime.ErrInvalidState, r.target.GoType.Name(), r.meta.TargetPrimaryKey)
	}
	return f.Get(target), nil
}

// mappedBy returns the target column pointing back at the owner.
func (r *relation) mappedBy() (string, error) {
	if r.meta.MappedBy == "" {
		return "", fmt.Errorf("%w: %s.%s has no mappedBy column on %s", runtime.ErrRelationRetrieval, r.owner.GoType.Name(), r.meta.Property, r.target.Name)
	}
	return r.meta.MappedBy, nil
}

// join builds SELECT t.* FROM target t INNER JOIN owner o ON <on> WHERE <where>.
func (r *relation) join(on string, where builder.Condition) *builder.SelectQuery {
	return r.em.qb.Select(r.target.Name).As(targetAlias).
		Columns(targetAlias+".*").
		InnerJoin(r.owner.Name, ownerAlias, on).
		Where(where)
}

func col(alias, column string) string {
	return alias + "." + column
}

// attachOne fetches at most one target row and stores it in the relation
// property; no row leaves the property nil.
func (r *relation) attachOne(ctx context.Context, q *builder.SelectQuery) error {
	targets, _, err := r.em.fetch(ctx, r.target, q)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return r.field().Set(r.model, nil)
	}
	return r.field().Set(r.model, targets[0].Interface())
}

// valueAppender is satisfied by *collection.Collection[T].
type valueAppender interface {
	AppendValue(v any) error
}

// attachMany fetches every target row and stores them in the relation
// property as a collection or slice, matching the field type.
func (r *relation) attachMany(ctx context.Context, q *builder.SelectQuery) error {
	targets, _, err := r.em.fetch(ctx, r.target, q)
	if err != nil {
		return err
	}

	ft := r.field().Type
	switch {
	case ft.Kind() == reflect.Pointer && ft.Implements(reflect.TypeFor[valueAppender]()):
		c := reflect.New(ft.Elem())
		app := c.Interface().(valueAppender)
		byValue := c.Interface().(interface{ ElemType() reflect.Type }).ElemType().Kind() != reflect.Pointer
		for _, t := range targets {
			v := t
			if byValue {
				v = t.Elem()
			}
			if err := app.AppendValue(v.Interface()); err != nil {
				return err
			}
		}
		return r.field().Set(r.model, c.Interface())

	case ft.Kind() == reflect.Slice:
		s := reflect.MakeSlice(ft, 0, len(targets))
		byValue := ft.Elem().Kind() != reflect.Pointer
		for _, t := range targets {
			if byValue {
				t = t.Elem()
			}
			s = reflect.Append(s, t)
		}
		return r.field().Set(r.model, s.Interface())
	}

	return fmt.Errorf("%w: %s.%s cannot hold many %s", runtime.ErrInvalidType, r.owner.GoType.Name(), r.meta.Property, r.target.GoType.Name())
}

// children lists the attached targets, or queries them when nothing is
// attached.
func (r *relation) children(ctx context.Context, mappedBy string) ([]reflect.Value, error) {
	v := reflect.ValueOf(r.field().Get(r.model))

	var attached []any
	switch {
	case v.Kind() == reflect.Pointer && !v.IsNil():
		if c, ok := v.Interface().(interface{ Values() []any }); ok {
			attached = c.Values()
		}
	case v.Kind() == reflect.Slice && !v.IsNil():
		for i := 0; i < v.Len(); i++ {
			attached = append(attached, v.Index(i).Interface())
		}
	default:
		q := r.em.qb.Select(r.target.Name).Where(builder.Eq(mappedBy, r.ownerKey()))
		targets, _, err := r.em.fetch(ctx, r.target, q)
		return targets, err
	}

	out := make([]reflect.Value, 0, len(attached))
	for _, a := range attached {
		cv := reflect.ValueOf(a)
		if cv.Kind() != reflect.Pointer {
			p := reflect.New(cv.Type())
			p.Elem().Set(cv)
			cv = p
		}
		if cv.IsNil() {
			continue
		}
		out = append(out, cv)
	}
	return out, nil
}

type oneToOne struct{}

func (oneToOne) columns(ctx context.Context, r *relation, op writeOp) ([]columnValue, error) {
	if r.meta.Owning() {
		return nil, nil
	}

	key, err := r.linkedKey()
	if err != nil {
		return nil, err
	}

	// At most one row of the owner table may link a given target.
	q := r.em.qb.Select(r.owner.Name).Where(builder.Eq(r.meta.ForeignKey, key))
	if op == opSave {
		q.And(builder.NotEq(r.owner.PrimaryKey, r.ownerKey()))
	}
	n, err := r.em.count(ctx, q)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, fmt.Errorf("%w: %s %v is already linked from %s", runtime.ErrRelationIntegrity, r.target.GoType.Name(), key, r.owner.Name)
	}

	return []columnValue{{column: r.meta.ForeignKey, value: key}}, nil
}

func (oneToOne) remove(context.Context, *relation) error {
	return nil
}

func (oneToOne) resolve(ctx context.Context, r *relation, _ *fkBuffer) error {
	where := builder.Eq(col(ownerAlias, r.owner.PrimaryKey), r.ownerKey())

	if r.meta.Owning() {
		mappedBy, err := r.mappedBy()
		if err != nil {
			return err
		}
		on := col(targetAlias, mappedBy) + " = " + col(ownerAlias, r.owner.PrimaryKey)
		return r.attachOne(ctx, r.join(on, where))
	}

	on := col(targetAlias, r.meta.TargetPrimaryKey) + " = " + col(ownerAlias, r.meta.ForeignKey)
	return r.attachOne(ctx, r.join(on, where))
}

type oneToMany struct{}

func (oneToMany) columns(context.Context, *relation, writeOp) ([]columnValue, error) {
	return nil, nil
}

func (oneToMany) remove(ctx context.Context, r *relation) error {
	if !r.meta.OrphanRemoval {
		return nil
	}

	mappedBy, err := r.mappedBy()
	if err != nil {
		return err
	}
	children, err := r.children(ctx, mappedBy)
	if err != nil {
		return err
	}

	parent := r.ownerKey()
	childKey, ok := r.target.FieldByColumn(r.meta.TargetPrimaryKey)
	if !ok {
		return fmt.Errorf("%w: %s has no column %q", runtime.ErrRelationRetrieval, r.target.GoType.Name(), r.meta.TargetPrimaryKey)
	}

	var errs []error
	for _, child := range children {
		query, args, err := r.em.qb.Delete(r.target.Name).
			Where(builder.Eq(r.meta.TargetPrimaryKey, childKey.Get(child.Elem()))).
			And(builder.Eq(mappedBy, parent)).
			ToSQL()
		if err == nil {
			_, err = r.em.db.Exec(ctx, query, args...)
		}
		if err == nil {
			continue
		}

		switch r.em.orphans {
		case OrphanBestEffort:
			r.em.logger.Warn("orphan removal failed",
				zap.String("table", r.target.Name),
				zap.Any("id", childKey.Get(child.Elem())),
				zap.Error(err))
		case OrphanCollectErrors:
			errs = append(errs, err)
		default:
			return err
		}
	}

	return errors.Join(errs...)
}

func (oneToMany) resolve(ctx context.Context, r *relation, _ *fkBuffer) error {
	mappedBy, err := r.mappedBy()
	if err != nil {
		return err
	}
	on := col(targetAlias, mappedBy) + " = " + col(ownerAlias, r.owner.PrimaryKey)
	where := builder.Eq(col(ownerAlias, r.owner.PrimaryKey), r.ownerKey())
	return r.attachMany(ctx, r.join(on, where))
}

type manyToOne struct{}

func (manyToOne) columns(_ context.Context, r *relation, _ writeOp) ([]columnValue, error) {
	key, err := r.linkedKey()
	if err != nil {
		return nil, err
	}
	return []columnValue{{column: r.meta.ForeignKey, value: key}}, nil
}

func (manyToOne) remove(context.Context, *relation) error {
	return nil
}

func (manyToOne) resolve(ctx context.Context, r *relation, fks *fkBuffer) error {
	key, ok := fks.pop()
	if !ok {
		return fmt.Errorf("%w: no buffered %s for %s", runtime.ErrRelationRetrieval, r.meta.ForeignKey, r.owner.Name)
	}
	if key == nil {
		return r.field().Set(r.model, nil)
	}

	on := col(ownerAlias, r.meta.ForeignKey) + " = " + col(targetAlias, r.meta.TargetPrimaryKey)
	where := builder.Eq(col(ownerAlias, r.meta.ForeignKey), key)
	return r.attachOne(ctx, r.join(on, where).Limit(1))
}

// manyToMany has no join table; it reads like one-to-many and adds nothing
// to writes.
type manyToMany struct{}

func (manyToMany) columns(context.Context, *relation, writeOp) ([]columnValue, error) {
	return nil, nil
}

func (manyToMany) remove(context.Context, *relation) error {
	return nil
}

func (manyToMany) resolve(ctx context.Context, r *relation, fks *fkBuffer) error {
	return oneToMany{}.resolve(ctx, r, fks)
}
