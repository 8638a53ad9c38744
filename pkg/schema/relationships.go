package schema

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/marshallshelly/modspace/pkg/inflector"
)

// relationOptions maps tag options to relation codes. The hasOne, hasMany
// and belongsTo spellings are accepted as aliases.
var relationOptions = map[string]RelationType{
	"oneToOne":   OneToOne,
	"hasOne":     OneToOne,
	"oneToMany":  OneToMany,
	"hasMany":    OneToMany,
	"manyToOne":  ManyToOne,
	"belongsTo":  ManyToOne,
	"manyToMany": ManyToMany,
}

// collectionType is satisfied by *collection.Collection[T].
type collectionType interface {
	ElemType() reflect.Type
}

// isRelationshipTag checks if tag options indicate a relationship field.
func (p *Parser) isRelationshipTag(opts *TagOptions) bool {
	if opts.Has("relation") {
		return true
	}
	for key := range relationOptions {
		if opts.Has(key) {
			return true
		}
	}
	return false
}

// parseRelationship parses a relationship from a struct field.
func (p *Parser) parseRelationship(field reflect.StructField, opts *TagOptions) (*RelationMetadata, error) {
	rel := &RelationMetadata{
		GoField:          field.Name,
		ForeignKey:       opts.Get("foreignKey"),
		TargetPrimaryKey: opts.Get("references"),
		MappedBy:         opts.Get("mappedBy"),
		OrphanRemoval:    opts.Has("orphanRemoval"),
	}

	// Determine relationship type
	if code := opts.Get("relation"); code != "" {
		n, err := strconv.Atoi(code)
		if err != nil {
			return nil, fmt.Errorf("invalid relation code %q", code)
		}
		if rel.Type, err = ParseRelationType(n); err != nil {
			return nil, err
		}
	} else {
		for key, typ := range relationOptions {
			if opts.Has(key) {
				if rel.Type != None && rel.Type != typ {
					return nil, fmt.Errorf("conflicting relation kinds")
				}
				rel.Type = typ
			}
		}
	}
	if rel.Type == None {
		return nil, fmt.Errorf("unknown relationship type")
	}

	// Get target type from field type
	fieldType := field.Type
	switch {
	case fieldType.Implements(reflect.TypeFor[collectionType]()):
		rel.Multiple = true
		fieldType = reflect.Zero(fieldType).Interface().(collectionType).ElemType()
	case fieldType.Kind() == reflect.Slice:
		rel.Multiple = true
		fieldType = fieldType.Elem()
	}
	for fieldType.Kind() == reflect.Pointer {
		fieldType = fieldType.Elem()
	}
	if fieldType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("relation target must be a struct, got %s", fieldType.Kind())
	}
	rel.TargetType = fieldType

	switch rel.Type {
	case OneToOne, ManyToOne:
		if rel.Multiple {
			return nil, fmt.Errorf("%s relation must be a single pointer field", rel.Type)
		}
		if field.Type.Kind() != reflect.Pointer {
			return nil, fmt.Errorf("%s relation must be a pointer field", rel.Type)
		}
	case OneToMany, ManyToMany:
		if !rel.Multiple {
			return nil, fmt.Errorf("%s relation must be a collection or slice field", rel.Type)
		}
	}

	// For manyToOne, foreign key defaults to <target>_id on this table
	if rel.ForeignKey == "" && rel.Type == ManyToOne {
		rel.ForeignKey = inflector.Tableize(fieldType.Name()) + "_id"
	}

	return rel, nil
}
