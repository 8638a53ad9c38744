package builder

import (
	"fmt"
	"strings"

	"github.com/marshallshelly/modspace/pkg/runtime"
)

// DeleteQuery represents a DELETE query.
type DeleteQuery struct {
	dialect runtime.Dialect
	table   string
	where   []Condition
}

// Where adds a WHERE condition.
func (q *DeleteQuery) Where(condition Condition) *DeleteQuery {
	q.where = append(q.where, condition)
	return q
}

// And adds an AND condition.
func (q *DeleteQuery) And(condition Condition) *DeleteQuery {
	condition.Logic = LogicAnd
	return q.Where(condition)
}

// ToSQL generates the DELETE SQL and arguments. A DELETE without conditions
// is rejected.
func (q *DeleteQuery) ToSQL() (string, []any, error) {
	if q.table == "" {
		return "", nil, fmt.Errorf("delete: table name is required")
	}
	if len(q.where) == 0 {
		return "", nil, fmt.Errorf("delete from %s without WHERE clause", q.table)
	}

	var sql strings.Builder
	sql.WriteString("DELETE FROM ")
	sql.WriteString(q.table)

	whereBuilder := NewWhereBuilder(q.dialect)
	whereBuilder.Add(q.where...)
	whereSQL, args, err := whereBuilder.Build()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build WHERE clause: %w", err)
	}
	sql.WriteString(" ")
	sql.WriteString(whereSQL)

	return sql.String(), args, nil
}
