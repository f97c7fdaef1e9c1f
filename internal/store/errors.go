package store

import "errors"

var (
	// ErrNotFound is returned when a database record does not exist.
	ErrNotFound = errors.New("database not found")

	// ErrTokenNotFound is returned when no token matches the presented hash.
	ErrTokenNotFound = errors.New("token not found")

	// ErrDuplicateName is returned when a database name is already taken.
	ErrDuplicateName = errors.New("database name already exists")
)
