package executor

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when the per-query deadline expires, regardless of
// which phase (checkout, query, fetch, commit) was in flight.
var ErrTimeout = errors.New("query timed out")

// RowLimitError is returned when a result set exceeds the database's row cap.
type RowLimitError struct {
	Limit int
}

func (e *RowLimitError) Error() string {
	return fmt.Sprintf("query returned more than %d rows", e.Limit)
}

// ParamError is returned when a bound parameter cannot be interpreted.
type ParamError struct {
	Index int
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter $%d: %v", e.Index+1, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}
