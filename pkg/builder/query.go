// Package builder renders dialect-aware SELECT, INSERT, UPDATE and DELETE
// statements addressed by table name.
package builder

import (
	"github.com/marshallshelly/modspace/pkg/runtime"
)

// Query represents a renderable statement.
type Query interface {
	// ToSQL generates the SQL query and parameter values.
	ToSQL() (sql string, args []any, err error)
}

// Builder creates queries for one SQL dialect.
type Builder struct {
	dialect runtime.Dialect
}

// New creates a Builder for the given dialect.
func New(dialect runtime.Dialect) *Builder {
	return &Builder{dialect: dialect}
}

// Dialect returns the dialect queries are rendered for.
func (b *Builder) Dialect() runtime.Dialect {
	return b.dialect
}

// Select creates a SELECT query on table.
// Usage: b.Select("book").As("t").Where(Eq("t.id", 1)).ToSQL()
func (b *Builder) Select(table string) *SelectQuery {
	return &SelectQuery{
		dialect: b.dialect,
		table:   table,
	}
}

// Insert creates an INSERT query on table.
// Usage: b.Insert("book").Set("title", "Dune").Returning("id").ToSQL()
func (b *Builder) Insert(table string) *InsertQuery {
	return &InsertQuery{
		dialect: b.dialect,
		table:   table,
	}
}

// Update creates an UPDATE query on table.
// Usage: b.Update("book").Set("title", "Dune").Where(Eq("id", 1)).ToSQL()
func (b *Builder) Update(table string) *UpdateQuery {
	return &UpdateQuery{
		dialect: b.dialect,
		table:   table,
	}
}

// Delete creates a DELETE query on table.
// Usage: b.Delete("book").Where(Eq("id", 1)).ToSQL()
func (b *Builder) Delete(table string) *DeleteQuery {
	return &DeleteQuery{
		dialect: b.dialect,
		table:   table,
	}
}

// Condition represents a WHERE condition.
type Condition struct {
	Column   string
	Operator Operator
	Value    any
	Logic    LogicOperator
}

// Join represents a JOIN clause.
type Join struct {
	Type      JoinType
	Table     string
	Alias     string
	Condition string
}

// OrderBy represents an ORDER BY clause.
type OrderBy struct {
	Column    string
	Direction OrderDirection
}

// assignment is one column = value pair of an INSERT or UPDATE.
type assignment struct {
	column string
	value  any
}

// Operator represents a comparison operator.
type Operator string

const (
	// OpEqual represents the = operator.
	OpEqual Operator = "="
	// OpNotEqual represents the != operator.
	OpNotEqual Operator = "!="
	// OpGreaterThan represents the > operator.
	OpGreaterThan Operator = ">"
	// OpIn represents the IN operator.
	OpIn Operator = "IN"
	// OpLike represents the LIKE operator.
	OpLike Operator = "LIKE"
	// OpIsNull represents the IS NULL operator.
	OpIsNull Operator = "IS NULL"
	// OpBetween represents the BETWEEN operator.
	OpBetween Operator = "BETWEEN"
)

// LogicOperator represents a logical operator (AND/OR).
type LogicOperator string

const (
	// LogicAnd represents the AND operator.
	LogicAnd LogicOperator = "AND"
	// LogicOr represents the OR operator.
	LogicOr LogicOperator = "OR"
)

// JoinType represents a type of JOIN.
type JoinType string

const (
	// InnerJoin represents an INNER JOIN.
	InnerJoin JoinType = "INNER JOIN"
	// LeftJoin represents a LEFT JOIN.
	LeftJoin JoinType = "LEFT JOIN"
)

// OrderDirection represents the sort direction.
type OrderDirection string

const (
	// Asc represents ascending order.
	Asc OrderDirection = "ASC"
	// Desc represents descending order.
	Desc OrderDirection = "DESC"
)
