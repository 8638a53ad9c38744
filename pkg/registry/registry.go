// Package registry caches model metadata per Go type so that each model is
// parsed once for the lifetime of the process.
package registry

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/marshallshelly/modspace/pkg/runtime"
	"github.com/marshallshelly/modspace/pkg/schema"
)

// Registry is a thread-safe registry for table metadata.
type Registry struct {
	mu     sync.RWMutex
	parser *schema.Parser
	tables map[reflect.Type]*schema.TableMetadata
	names  map[string]*schema.TableMetadata
}

// NewRegistry creates a new Registry instance.
func NewRegistry() *Registry {
	return &Registry{
		parser: schema.NewParser(),
		tables: make(map[reflect.Type]*schema.TableMetadata),
		names:  make(map[string]*schema.TableMetadata),
	}
}

// Register registers a model type and extracts its metadata. The relation
// target of the model is registered along with it.
func (r *Registry) Register(model any) error {
	_, err := r.GetOrRegister(model)
	return err
}

// RegisterType registers a model by its reflect.Type.
func (r *Registry) RegisterType(modelType reflect.Type) (*schema.TableMetadata, error) {
	modelType = indirect(modelType)
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: model must be a struct, got %s", runtime.ErrInvalidArgument, modelType.Kind())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.register(modelType)
}

// register must be called with the write lock held. The type is stored
// before its relation target is visited so that mutually related models
// terminate.
func (r *Registry) register(modelType reflect.Type) (*schema.TableMetadata, error) {
	if table, ok := r.tables[modelType]; ok {
		return table, nil
	}

	table, err := r.parser.Parse(modelType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", modelType.Name(), err)
	}

	r.tables[modelType] = table
	r.names[table.Name] = table

	if table.Relation == nil {
		return table, nil
	}

	target, err := r.register(table.Relation.TargetType)
	if err != nil {
		delete(r.tables, modelType)
		delete(r.names, table.Name)
		return nil, fmt.Errorf("failed to register relation target of %s: %w", modelType.Name(), err)
	}
	link(table, target)

	return table, nil
}

// link fills the relation defaults that depend on the target's metadata.
func link(table, target *schema.TableMetadata) {
	rel := table.Relation
	if rel.TargetPrimaryKey == "" {
		rel.TargetPrimaryKey = target.PrimaryKey
	}
	if rel.MappedBy == "" && target.Relation != nil && target.Relation.TargetType == table.GoType {
		rel.MappedBy = target.Relation.ForeignKey
	}
}

// Get retrieves TableMetadata by Go type.
func (r *Registry) Get(modelType reflect.Type) (*schema.TableMetadata, error) {
	modelType = indirect(modelType)

	r.mu.RLock()
	table, ok := r.tables[modelType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("model type %s not registered", modelType.Name())
	}

	return table, nil
}

// GetByName retrieves TableMetadata by table name.
func (r *Registry) GetByName(tableName string) (*schema.TableMetadata, error) {
	r.mu.RLock()
	table, ok := r.names[tableName]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("table %s not registered", tableName)
	}

	return table, nil
}

// GetOrRegister retrieves TableMetadata or registers it if not found.
func (r *Registry) GetOrRegister(model any) (*schema.TableMetadata, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", runtime.ErrInvalidArgument)
	}
	return r.GetOrRegisterType(reflect.TypeOf(model))
}

// GetOrRegisterType is GetOrRegister for a reflect.Type.
func (r *Registry) GetOrRegisterType(modelType reflect.Type) (*schema.TableMetadata, error) {
	modelType = indirect(modelType)

	// Try to get first
	r.mu.RLock()
	table, ok := r.tables[modelType]
	r.mu.RUnlock()

	if ok {
		return table, nil
	}

	return r.RegisterType(modelType)
}

// All returns all registered table metadata.
func (r *Registry) All() []*schema.TableMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tables := make([]*schema.TableMetadata, 0, len(r.tables))
	for _, table := range r.tables {
		tables = append(tables, table)
	}

	return tables
}

// AllNames returns all registered table names.
func (r *Registry) AllNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}

	return names
}

// Clear removes all registered models.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tables = make(map[reflect.Type]*schema.TableMetadata)
	r.names = make(map[string]*schema.TableMetadata)
}

// Has checks if a model type is registered.
func (r *Registry) Has(modelType reflect.Type) bool {
	modelType = indirect(modelType)

	r.mu.RLock()
	_, ok := r.tables[modelType]
	r.mu.RUnlock()

	return ok
}

// HasTable checks if a table name is registered.
func (r *Registry) HasTable(tableName string) bool {
	r.mu.RLock()
	_, ok := r.names[tableName]
	r.mu.RUnlock()

	return ok
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// globalRegistry is the default global registry instance.
var globalRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return globalRegistry
}

// Register registers a model in the global registry.
func Register(model any) error {
	return globalRegistry.Register(model)
}

// Get retrieves TableMetadata from the global registry.
func Get(modelType reflect.Type) (*schema.TableMetadata, error) {
	return globalRegistry.Get(modelType)
}

// GetByName retrieves TableMetadata by name from the global registry.
func GetByName(tableName string) (*schema.TableMetadata, error) {
	return globalRegistry.GetByName(tableName)
}

// GetOrRegister retrieves or registers a model in the global registry.
func GetOrRegister(model any) (*schema.TableMetadata, error) {
	return globalRegistry.GetOrRegister(model)
}

// All returns all registered tables from the global registry.
func All() []*schema.TableMetadata {
	return globalRegistry.All()
}

// Clear clears the global registry.
func Clear() {
	globalRegistry.Clear()
}
