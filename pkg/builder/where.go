package builder

import (
	"fmt"
	"strings"

	"github.com/marshallshelly/modspace/pkg/runtime"
)

// WhereBuilder helps build WHERE clauses.
type WhereBuilder struct {
	dialect    runtime.Dialect
	conditions []Condition
	paramStart int
}

// NewWhereBuilder creates a new WhereBuilder numbering parameters from 1.
func NewWhereBuilder(dialect runtime.Dialect) *WhereBuilder {
	return NewWhereBuilderWithStart(dialect, 1)
}

// NewWhereBuilderWithStart creates a new WhereBuilder with a starting parameter number.
func NewWhereBuilderWithStart(dialect runtime.Dialect, paramStart int) *WhereBuilder {
	return &WhereBuilder{
		dialect:    dialect,
		paramStart: paramStart,
	}
}

// Add adds a condition to the WHERE clause.
func (w *WhereBuilder) Add(conditions ...Condition) {
	w.conditions = append(w.conditions, conditions...)
}

// Build generates the WHERE clause SQL and arguments.
func (w *WhereBuilder) Build() (string, []any, error) {
	if len(w.conditions) == 0 {
		return "", nil, nil
	}

	sql, args, err := w.buildConditions(w.conditions, w.paramStart)
	if err != nil {
		return "", nil, err
	}

	return "WHERE " + sql, args, nil
}

func (w *WhereBuilder) buildConditions(conditions []Condition, paramStart int) (string, []any, error) {
	var parts []string
	var args []any
	paramNum := paramStart

	for i, cond := range conditions {
		condSQL, condArgs, err := w.buildCondition(cond, paramNum)
		if err != nil {
			return "", nil, err
		}

		if i > 0 {
			logic := cond.Logic
			if logic == "" {
				logic = LogicAnd
			}
			parts = append(parts, string(logic))
		}
		parts = append(parts, condSQL)
		args = append(args, condArgs...)
		paramNum += len(condArgs)
	}

	return strings.Join(parts, " "), args, nil
}

// buildCondition builds a single condition.
func (w *WhereBuilder) buildCondition(cond Condition, paramNum int) (string, []any, error) {
	column := cond.Column
	ph := w.dialect.Placeholder

	switch cond.Operator {
	case OpEqual, OpNotEqual, OpGreaterThan, OpLike:
		return fmt.Sprintf("%s %s %s", column, cond.Operator, ph(paramNum)), []any{cond.Value}, nil

	case OpIn:
		values, ok := cond.Value.([]any)
		if !ok || len(values) == 0 {
			return "", nil, fmt.Errorf("%s operator on %s requires a non-empty value list", cond.Operator, column)
		}

		placeholders := make([]string, len(values))
		for i := range values {
			placeholders[i] = ph(paramNum + i)
		}
		return fmt.Sprintf("%s %s (%s)", column, cond.Operator, strings.Join(placeholders, ", ")), values, nil

	case OpIsNull:
		return fmt.Sprintf("%s %s", column, cond.Operator), nil, nil

	case OpBetween:
		// Expect value to be [min, max]
		values, ok := cond.Value.([]any)
		if !ok || len(values) != 2 {
			return "", nil, fmt.Errorf("BETWEEN operator requires [min, max] array")
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", column, ph(paramNum), ph(paramNum+1)), values, nil

	default:
		return "", nil, fmt.Errorf("unknown operator: %s", cond.Operator)
	}
}

func compare(column string, op Operator, value any) Condition {
	return Condition{Column: column, Operator: op, Value: value, Logic: LogicAnd}
}

// Eq creates an equality condition.
func Eq(column string, value any) Condition {
	return compare(column, OpEqual, value)
}

// NotEq creates a not-equal condition.
func NotEq(column string, value any) Condition {
	return compare(column, OpNotEqual, value)
}

// Gt creates a greater-than condition.
func Gt(column string, value any) Condition {
	return compare(column, OpGreaterThan, value)
}

// In creates an IN condition.
func In(column string, values ...any) Condition {
	return compare(column, OpIn, values)
}

// Like creates a LIKE condition.
func Like(column string, pattern string) Condition {
	return compare(column, OpLike, pattern)
}

// IsNull creates an IS NULL condition.
func IsNull(column string) Condition {
	return compare(column, OpIsNull, nil)
}

// Between creates a BETWEEN condition.
func Between(column string, min, max any) Condition {
	return compare(column, OpBetween, []any{min, max})
}
