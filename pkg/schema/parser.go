package schema

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/marshallshelly/modspace/pkg/inflector"
	"github.com/marshallshelly/modspace/pkg/runtime"
)

const (
	// StructTagKey is the key used in struct tags (e.g., `po:"..."`).
	StructTagKey = "po"
)

// Parser parses struct definitions to extract table metadata.
type Parser struct{}

// NewParser creates a new Parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts TableMetadata from a Go struct type. Relation defaults that
// depend on the target type (referenced key, mappedBy) are filled in by the
// registry once the target is known.
func (p *Parser) Parse(modelType reflect.Type) (*TableMetadata, error) {
	// Dereference pointer types
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: model must be a struct, got %s", runtime.ErrInvalidArgument, modelType.Kind())
	}

	table := &TableMetadata{
		Name:           extractTableName(modelType),
		GoType:         modelType,
		RepositoryName: extractRepositoryName(modelType),
		Columns:        make([]ColumnMetadata, 0, modelType.NumField()),
		byProperty:     make(map[string]*Field),
		byColumn:       make(map[string]*Field),
	}

	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		// Skip unexported fields
		if !field.IsExported() {
			continue
		}
		tagValue := field.Tag.Get(StructTagKey)
		if tagValue == "" || tagValue == "-" {
			continue
		}

		tagOpts, err := p.parseTag(tagValue)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse tag for field %s: %w", runtime.ErrInvalidArgument, field.Name, err)
		}

		property := propertyName(field.Name)
		if _, dup := table.byProperty[property]; dup {
			return nil, fmt.Errorf("%w: duplicate property %s on %s", runtime.ErrInvalidArgument, property, modelType.Name())
		}

		if p.isRelationshipTag(tagOpts) {
			if table.Relation != nil {
				return nil, fmt.Errorf("%w: %s declares more than one relation", runtime.ErrInvalidArgument, modelType.Name())
			}
			rel, err := p.parseRelationship(field, tagOpts)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to parse relationship for field %s: %w", runtime.ErrInvalidArgument, field.Name, err)
			}
			rel.Property = property
			table.Relation = rel
			table.addField(newField(property, "", field))
			continue
		}

		column := p.createColumnMetadata(field, tagOpts, property, i)
		if _, dup := table.byColumn[column.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %s on %s", runtime.ErrInvalidArgument, column.Name, modelType.Name())
		}
		if column.PrimaryKey {
			if table.PrimaryKey != "" {
				return nil, fmt.Errorf("%w: %s declares more than one primary key", runtime.ErrInvalidArgument, modelType.Name())
			}
			table.PrimaryKey = column.Name
		}
		table.Columns = append(table.Columns, column)
		table.addField(newField(property, column.Name, field))
	}

	if table.PrimaryKey == "" {
		return nil, fmt.Errorf("%w: %s has no primary key", runtime.ErrInvalidArgument, modelType.Name())
	}

	return table, nil
}

func (t *TableMetadata) addField(f *Field) {
	t.fields = append(t.fields, f)
	t.byProperty[f.Property] = f
	if f.Column != "" {
		t.byColumn[f.Column] = f
	}
}

// extractTableName resolves the table name of a struct type.
// Priority order:
// 1. TableName() method
// 2. Global registry (RegisterTableName)
// 3. snake_case conversion (default fallback)
func extractTableName(modelType reflect.Type) string {
	if t, ok := reflect.New(modelType).Interface().(Tabler); ok {
		if name := t.TableName(); name != "" {
			return name
		}
	}
	if name, ok := registeredTableName(modelType.Name()); ok {
		return name
	}
	return inflector.Tableize(modelType.Name())
}

func extractRepositoryName(modelType reflect.Type) string {
	if b, ok := reflect.New(modelType).Interface().(RepositoryBinder); ok {
		if name := b.RepositoryName(); name != "" {
			return name
		}
	}
	return modelType.Name() + "Repository"
}

// createColumnMetadata creates a ColumnMetadata from a struct field.
func (p *Parser) createColumnMetadata(field reflect.StructField, opts *TagOptions, property string, position int) ColumnMetadata {
	name := opts.Name
	if name == "" {
		name = inflector.Snakeize(property)
	}

	column := ColumnMetadata{
		Name:       name,
		Property:   property,
		GoField:    field.Name,
		GoType:     field.Type,
		Position:   position,
		PrimaryKey: opts.Has("primaryKey"),
	}
	column.Nullable = !opts.Has("notNull") && !column.PrimaryKey
	if field.Type.Kind() == reflect.Pointer {
		column.Nullable = true
	}
	column.AutoIncrement = opts.Has("autoIncrement") || opts.Has("serial") ||
		opts.Has("bigserial") || opts.Has("identity") || opts.Has("identityByDefault")

	return column
}

// TagOptions represents parsed tag options.
type TagOptions struct {
	Name    string            // Column name (first element)
	Options map[string]string // Other options
}

// parseTag parses a struct tag value into TagOptions.
// Format: "column_name,option1,option2(value),option3"
func (p *Parser) parseTag(tag string) (*TagOptions, error) {
	parts := splitTag(tag)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty tag value")
	}
	opts := &TagOptions{
		Name:    parts[0],
		Options: make(map[string]string),
	}
	if opts.Name == "-" {
		opts.Name = ""
	}
	// Parse remaining options
	for i := 1; i < len(parts); i++ {
		opt := parts[i]
		// Check if option has a value: option(value) or option:value
		if idx := strings.Index(opt, "("); idx != -1 {
			if !strings.HasSuffix(opt, ")") {
				return nil, fmt.Errorf("invalid option format: %s", opt)
			}
			key := opt[:idx]
			value := opt[idx+1 : len(opt)-1]
			opts.Options[key] = value
		} else if idx := strings.Index(opt, ":"); idx != -1 {
			// Support colon format: key:value
			opts.Options[opt[:idx]] = opt[idx+1:]
		} else {
			// Boolean option
			opts.Options[opt] = ""
		}
	}
	return opts, nil
}

// Has checks if an option exists.
func (t *TagOptions) Has(key string) bool {
	_, ok := t.Options[key]
	return ok
}

// Get returns the value of an option.
func (t *TagOptions) Get(key string) string {
	return t.Options[key]
}

// splitTag splits a tag value by commas, handling nested parentheses.
func splitTag(tag string) []string {
	var parts []string
	var current strings.Builder
	depth := 0
	for _, ch := range tag {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(current.String()))
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, strings.TrimSpace(current.String()))
	}
	return parts
}

// propertyName converts a Go field name to its lowerCamel property name.
// Initialisms count as one word: "ID" -> "id", "CatalogID" -> "catalogId",
// "URLPath" -> "urlPath".
func propertyName(goName string) string {
	var b strings.Builder
	for i, word := range splitWords(goName) {
		if i == 0 {
			b.WriteString(strings.ToLower(word))
			continue
		}
		r := []rune(strings.ToLower(word))
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

func splitWords(s string) []string {
	runes := []rune(s)
	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			// fooBar
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && unicode.IsLower(next):
			// URLPath: split before P
		case unicode.IsDigit(prev) != unicode.IsDigit(cur) && unicode.IsUpper(cur):
		default:
			continue
		}
		words = append(words, string(runes[start:i]))
		start = i
	}
	return append(words, string(runes[start:]))
}
