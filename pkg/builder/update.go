package builder

import (
	"fmt"
	"strings"

	"github.com/marshallshelly/modspace/pkg/runtime"
)

// UpdateQuery represents an UPDATE query.
type UpdateQuery struct {
	dialect runtime.Dialect
	table   string
	sets    []assignment
	where   []Condition
}

// Set sets a column value for the UPDATE. Columns render in the order they
// are set.
func (q *UpdateQuery) Set(column string, value any) *UpdateQuery {
	for i := range q.sets {
		if q.sets[i].column == column {
			q.sets[i].value = value
			return q
		}
	}
	q.sets = append(q.sets, assignment{column: column, value: value})
	return q
}

// Where adds a WHERE condition.
func (q *UpdateQuery) Where(condition Condition) *UpdateQuery {
	q.where = append(q.where, condition)
	return q
}

// And adds an AND condition.
func (q *UpdateQuery) And(condition Condition) *UpdateQuery {
	condition.Logic = LogicAnd
	return q.Where(condition)
}

// ToSQL generates the UPDATE SQL and arguments.
func (q *UpdateQuery) ToSQL() (string, []any, error) {
	if q.table == "" {
		return "", nil, fmt.Errorf("update: table name is required")
	}
	if len(q.sets) == 0 {
		return "", nil, fmt.Errorf("no columns to update")
	}

	var sql strings.Builder
	args := make([]any, 0, len(q.sets)+len(q.where))

	sql.WriteString("UPDATE ")
	sql.WriteString(q.table)
	sql.WriteString(" SET ")

	// SET clause
	setClauses := make([]string, len(q.sets))
	for i, s := range q.sets {
		setClauses[i] = s.column + " = " + q.dialect.Placeholder(i+1)
		args = append(args, s.value)
	}
	sql.WriteString(strings.Join(setClauses, ", "))

	// WHERE clause
	if len(q.where) > 0 {
		whereBuilder := NewWhereBuilderWithStart(q.dialect, len(q.sets)+1)
		whereBuilder.Add(q.where...)
		whereSQL, whereArgs, err := whereBuilder.Build()
		if err != nil {
			return "", nil, fmt.Errorf("failed to build WHERE clause: %w", err)
		}
		sql.WriteString(" ")
		sql.WriteString(whereSQL)
		args = append(args, whereArgs...)
	}

	return sql.String(), args, nil
}
