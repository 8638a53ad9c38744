package builder

import (
	"fmt"
	"strings"

	"github.com/marshallshelly/modspace/pkg/runtime"
)

// SelectQuery represents a SELECT query.
type SelectQuery struct {
	dialect runtime.Dialect
	table   string
	alias   string
	columns []string
	where   []Condition
	joins   []Join
	orderBy []OrderBy
	limit   *int
	offset  *int
}

// As sets the alias of the FROM table.
func (q *SelectQuery) As(alias string) *SelectQuery {
	q.alias = alias
	return q
}

// Columns specifies which columns to select.
func (q *SelectQuery) Columns(cols ...string) *SelectQuery {
	q.columns = cols
	return q
}

// Where adds a WHERE condition.
func (q *SelectQuery) Where(condition Condition) *SelectQuery {
	q.where = append(q.where, condition)
	return q
}

// And adds an AND condition (alias for Where).
func (q *SelectQuery) And(condition Condition) *SelectQuery {
	condition.Logic = LogicAnd
	return q.Where(condition)
}

// Or adds an OR condition.
func (q *SelectQuery) Or(condition Condition) *SelectQuery {
	condition.Logic = LogicOr
	return q.Where(condition)
}

// InnerJoin adds an INNER JOIN of table under alias.
func (q *SelectQuery) InnerJoin(table, alias, condition string) *SelectQuery {
	q.joins = append(q.joins, Join{Type: InnerJoin, Table: table, Alias: alias, Condition: condition})
	return q
}

// LeftJoin adds a LEFT JOIN of table under alias.
func (q *SelectQuery) LeftJoin(table, alias, condition string) *SelectQuery {
	q.joins = append(q.joins, Join{Type: LeftJoin, Table: table, Alias: alias, Condition: condition})
	return q
}

// OrderBy adds an ORDER BY clause.
func (q *SelectQuery) OrderBy(column string, direction OrderDirection) *SelectQuery {
	q.orderBy = append(q.orderBy, OrderBy{Column: column, Direction: direction})
	return q
}

// OrderByAsc adds an ascending ORDER BY clause.
func (q *SelectQuery) OrderByAsc(column string) *SelectQuery {
	return q.OrderBy(column, Asc)
}

// OrderByDesc adds a descending ORDER BY clause.
func (q *SelectQuery) OrderByDesc(column string) *SelectQuery {
	return q.OrderBy(column, Desc)
}

// Limit sets the LIMIT clause.
func (q *SelectQuery) Limit(limit int) *SelectQuery {
	q.limit = &limit
	return q
}

// Offset sets the OFFSET clause.
func (q *SelectQuery) Offset(offset int) *SelectQuery {
	q.offset = &offset
	return q
}

// ToSQL generates the SQL query and arguments.
func (q *SelectQuery) ToSQL() (string, []any, error) {
	cols := "*"
	if len(q.columns) > 0 {
		cols = strings.Join(q.columns, ", ")
	}
	return q.render(cols, true)
}

// CountSQL generates a SELECT COUNT(*) over the same FROM, JOIN and WHERE
// clauses.
func (q *SelectQuery) CountSQL() (string, []any, error) {
	return q.render("COUNT(*)", false)
}

func (q *SelectQuery) render(cols string, tail bool) (string, []any, error) {
	if q.table == "" {
		return "", nil, fmt.Errorf("select: table name is required")
	}

	var sql strings.Builder
	var args []any

	sql.WriteString("SELECT ")
	sql.WriteString(cols)

	// FROM clause
	sql.WriteString(" FROM ")
	sql.WriteString(q.table)
	if q.alias != "" {
		sql.WriteString(" ")
		sql.WriteString(q.alias)
	}

	// JOIN clauses
	for _, join := range q.joins {
		sql.WriteString(" ")
		sql.WriteString(string(join.Type))
		sql.WriteString(" ")
		sql.WriteString(join.Table)
		if join.Alias != "" {
			sql.WriteString(" ")
			sql.WriteString(join.Alias)
		}
		sql.WriteString(" ON ")
		sql.WriteString(join.Condition)
	}

	// WHERE clause
	if len(q.where) > 0 {
		whereBuilder := NewWhereBuilder(q.dialect)
		whereBuilder.Add(q.where...)
		whereSQL, whereArgs, err := whereBuilder.Build()
		if err != nil {
			return "", nil, fmt.Errorf("failed to build WHERE clause: %w", err)
		}
		sql.WriteString(" ")
		sql.WriteString(whereSQL)
		args = append(args, whereArgs...)
	}

	if !tail {
		return sql.String(), args, nil
	}

	// ORDER BY clause
	if len(q.orderBy) > 0 {
		orderParts := make([]string, len(q.orderBy))
		for i, order := range q.orderBy {
			orderParts[i] = order.Column + " " + string(order.Direction)
		}
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(orderParts, ", "))
	}

	// LIMIT clause
	if q.limit != nil {
		fmt.Fprintf(&sql, " LIMIT %d", *q.limit)
	}

	// OFFSET clause
	if q.offset != nil {
		fmt.Fprintf(&sql, " OFFSET %d", *q.offset)
	}

	return sql.String(), args, nil
}
