package sqlcheck

import (
	"errors"
	"fmt"

	"postgate/internal/domain"
)

var (
	// ErrEmptyQuery is returned when the input contains no statement.
	ErrEmptyQuery = errors.New("empty query")

	// ErrMultipleStatements is returned when the input stacks more than one
	// statement behind a semicolon.
	ErrMultipleStatements = errors.New("multiple statements not allowed")

	// ErrUnsupportedStatement is returned for statement kinds outside the
	// seven permitted operations (SET, SHOW, COPY, GRANT, BEGIN, ...).
	ErrUnsupportedStatement = errors.New("unsupported statement type")
)

// SyntaxError wraps the underlying parser error verbatim.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("failed to parse SQL: %v", e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// OperationNotAllowedError is returned when the statement's operation is not
// in the token's permission set.
type OperationNotAllowedError struct {
	Op domain.Operation
}

func (e *OperationNotAllowedError) Error() string {
	return fmt.Sprintf("operation %s is not allowed", e.Op)
}

// QualifiedTableError is returned for any schema-qualified relation
// reference. Tenants may only name relations resolved through their own
// search path.
type QualifiedTableError struct {
	Full string
}

func (e *QualifiedTableError) Error() string {
	return fmt.Sprintf("qualified table names are not allowed: %q", e.Full)
}

// SystemTableError is returned for references to pg_* relations or
// information_schema.
type SystemTableError struct {
	Name string
}

func (e *SystemTableError) Error() string {
	return fmt.Sprintf("system table access is not allowed: %q", e.Name)
}

// TableNotAllowedError is returned when table rules carry an allow list and
// the referenced table is not on it.
type TableNotAllowedError struct {
	Name string
}

func (e *TableNotAllowedError) Error() string {
	return fmt.Sprintf("table %q is not allowed", e.Name)
}

// TableDeniedError is returned when the referenced table is on the deny list.
type TableDeniedError struct {
	Name string
}

func (e *TableDeniedError) Error() string {
	return fmt.Sprintf("table %q is denied", e.Name)
}
