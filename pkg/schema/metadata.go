// Package schema extracts table, column and relation metadata from tagged Go
// structs and builds the per-type accessor table used to read and write
// model properties.
package schema

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/marshallshelly/modspace/pkg/runtime"
)

// RelationType is the bitmask code of a relation kind.
type RelationType int

const (
	None       RelationType = 0
	OneToOne   RelationType = 1
	OneToMany  RelationType = 2
	ManyToOne  RelationType = 4
	ManyToMany RelationType = 8
)

// String implements fmt.Stringer.
func (r RelationType) String() string {
	switch r {
	case None:
		return "NONE"
	case OneToOne:
		return "ONE_TO_ONE"
	case OneToMany:
		return "ONE_TO_MANY"
	case ManyToOne:
		return "MANY_TO_ONE"
	case ManyToMany:
		return "MANY_TO_MANY"
	}
	return fmt.Sprintf("RelationType(%d)", int(r))
}

// Valid reports whether r is one of the defined codes.
func (r RelationType) Valid() bool {
	switch r {
	case None, OneToOne, OneToMany, ManyToOne, ManyToMany:
		return true
	}
	return false
}

// ParseRelationType converts a numeric code to a RelationType.
func ParseRelationType(code int) (RelationType, error) {
	r := RelationType(code)
	if !r.Valid() {
		return None, fmt.Errorf("%w: unknown relation type code %d", runtime.ErrInvalidArgument, code)
	}
	return r, nil
}

// Tabler is implemented by models that name their own table.
type Tabler interface {
	TableName() string
}

// RepositoryBinder is implemented by models bound to a named repository.
type RepositoryBinder interface {
	RepositoryName() string
}

// TableMetadata describes a model type and its table.
type TableMetadata struct {
	Name           string
	GoType         reflect.Type
	RepositoryName string
	Columns        []ColumnMetadata
	PrimaryKey     string
	Relation       *RelationMetadata

	fields     []*Field
	byProperty map[string]*Field
	byColumn   map[string]*Field
}

// ColumnMetadata represents a persisted scalar field.
type ColumnMetadata struct {
	Name          string
	Property      string
	GoField       string
	GoType        reflect.Type
	Position      int
	PrimaryKey    bool
	AutoIncrement bool
	Nullable      bool
}

// RelationMetadata represents the single relation field of a model.
type RelationMetadata struct {
	Type     RelationType
	Property string
	GoField  string
	// TargetType is the struct type on the other side.
	TargetType reflect.Type
	// TargetPrimaryKey is the referenced column on the target table.
	TargetPrimaryKey string
	// ForeignKey is the column on this table pointing at the target, "" if none.
	ForeignKey string
	// MappedBy is the column on the target table pointing back at this row.
	MappedBy      string
	OrphanRemoval bool
	// Multiple is set for collection and slice fields.
	Multiple bool
}

// Owning reports whether this side holds no foreign key of its own.
func (r *RelationMetadata) Owning() bool {
	return r.ForeignKey == ""
}

// Properties returns the declared property names in declaration order.
func (t *TableMetadata) Properties() []string {
	out := make([]string, len(t.fields))
	for i, f := range t.fields {
		out[i] = f.Property
	}
	return out
}

// Field returns the accessor of a property.
func (t *TableMetadata) Field(property string) (*Field, bool) {
	f, ok := t.byProperty[property]
	return f, ok
}

// FieldByColumn returns the accessor of a persisted column.
func (t *TableMetadata) FieldByColumn(column string) (*Field, bool) {
	f, ok := t.byColumn[column]
	return f, ok
}

// PrimaryKeyField returns the accessor of the primary key column.
func (t *TableMetadata) PrimaryKeyField() *Field {
	return t.byColumn[t.PrimaryKey]
}

// RelationField returns the accessor of the relation property, or nil.
func (t *TableMetadata) RelationField() *Field {
	if t.Relation == nil {
		return nil
	}
	return t.byProperty[t.Relation.Property]
}

// HasRelation reports whether the model declares a relation.
func (t *TableMetadata) HasRelation() bool {
	return t.Relation != nil && t.Relation.Type != None
}

// RelationType returns the relation code, None for plain models.
func (t *TableMetadata) RelationType() RelationType {
	if t.Relation == nil {
		return None
	}
	return t.Relation.Type
}

// GetColumn returns a column by name.
func (t *TableMetadata) GetColumn(name string) *ColumnMetadata {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// New allocates a zero model and returns the pointer.
func (t *TableMetadata) New() reflect.Value {
	return reflect.New(t.GoType)
}

// Value returns the addressable struct behind model, which must be a
// non-nil pointer to t's type.
func (t *TableMetadata) Value(model any) (reflect.Value, error) {
	rv := reflect.ValueOf(model)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("%w: model must be a non-nil pointer, got %T", runtime.ErrInvalidArgument, model)
	}
	rv = rv.Elem()
	if rv.Type() != t.GoType {
		return reflect.Value{}, fmt.Errorf("%w: expected *%s, got %T", runtime.ErrInvalidArgument, t.GoType.Name(), model)
	}
	return rv, nil
}

var (
	tableNamesMu sync.RWMutex
	tableNames   = make(map[string]string) // Struct name → table name
)

// RegisterTableName registers a custom table name for a struct type that
// does not implement Tabler.
//
//	func init() {
//	    schema.RegisterTableName("ContactInfo", "contact_info")
//	}
func RegisterTableName(structName, tableName string) {
	tableNamesMu.Lock()
	defer tableNamesMu.Unlock()
	tableNames[structName] = tableName
}

func registeredTableName(structName string) (string, bool) {
	tableNamesMu.RLock()
	defer tableNamesMu.RUnlock()
	name, ok := tableNames[structName]
	return name, ok
}
