package builder

import (
	"fmt"
	"strings"

	"github.com/marshallshelly/modspace/pkg/runtime"
)

// InsertQuery represents a single-row INSERT query.
type InsertQuery struct {
	dialect   runtime.Dialect
	table     string
	values    []assignment
	returning []string
}

// Set appends a column value. Columns render in the order they are set.
func (q *InsertQuery) Set(column string, value any) *InsertQuery {
	for i := range q.values {
		if q.values[i].column == column {
			q.values[i].value = value
			return q
		}
	}
	q.values = append(q.values, assignment{column: column, value: value})
	return q
}

// Returning specifies columns to return after insert. It is ignored by
// dialects without INSERT ... RETURNING; see HasReturning.
func (q *InsertQuery) Returning(columns ...string) *InsertQuery {
	q.returning = columns
	return q
}

// HasReturning reports whether ToSQL renders a RETURNING clause.
func (q *InsertQuery) HasReturning() bool {
	return len(q.returning) > 0 && q.dialect.SupportsReturning()
}

// ToSQL generates the INSERT SQL and arguments.
func (q *InsertQuery) ToSQL() (string, []any, error) {
	if q.table == "" {
		return "", nil, fmt.Errorf("insert: table name is required")
	}

	var sql strings.Builder
	sql.WriteString("INSERT INTO ")
	sql.WriteString(q.table)

	if len(q.values) == 0 {
		if q.dialect == runtime.MySQL {
			sql.WriteString(" () VALUES ()")
		} else {
			sql.WriteString(" DEFAULT VALUES")
		}
	} else {
		columns := make([]string, len(q.values))
		placeholders := make([]string, len(q.values))
		for i, v := range q.values {
			columns[i] = v.column
			placeholders[i] = q.dialect.Placeholder(i + 1)
		}
		sql.WriteString(" (")
		sql.WriteString(strings.Join(columns, ", "))
		sql.WriteString(") VALUES (")
		sql.WriteString(strings.Join(placeholders, ", "))
		sql.WriteString(")")
	}

	// RETURNING clause
	if q.HasReturning() {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}

	args := make([]any, len(q.values))
	for i, v := range q.values {
		args[i] = v.value
	}

	return sql.String(), args, nil
}
