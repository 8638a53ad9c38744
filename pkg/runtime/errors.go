// Package runtime provides the database connection, dialects, configuration
// and error kinds shared by the persistence engine.
package runtime

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for an unknown property name, a value that
	// is not a model where one is required, or an invalid relation type code.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState is returned when an operation needs a primary key value
	// that has not been set, e.g. removing a model that was never persisted.
	ErrInvalidState = errors.New("invalid state")

	// ErrRelationIntegrity is returned when an insert would link the same
	// target twice through a one-to-one relation.
	ErrRelationIntegrity = errors.New("relation integrity violation")

	// ErrRelationRetrieval is returned when a related type or join column
	// required to resolve a relation cannot be found.
	ErrRelationRetrieval = errors.New("relation retrieval failed")

	// ErrNilRelation is returned when the linked object of an owning relation
	// is nil at persist or save time.
	ErrNilRelation = errors.New("relation object must not be nil")

	// ErrInvalidType is returned when a column value cannot be assigned to a field.
	ErrInvalidType = errors.New("invalid type")

	// ErrNoConnection is returned when no database connection is available.
	ErrNoConnection = errors.New("no database connection")
)

// QueryError represents a query execution error.
type QueryError struct {
	Query string
	Err   error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v\nQuery: %s", e.Err, e.Query)
}

// Unwrap returns the underlying driver error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsQueryError reports whether err is, or wraps, a *QueryError.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
