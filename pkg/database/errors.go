package database

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("database: record not found")

	// ErrDuplicate is returned when a unique constraint would be violated
	// (username, email, or a repeated bookmark).
	ErrDuplicate = errors.New("database: record already exists")

	// ErrInvalidInput is returned for structurally invalid arguments.
	ErrInvalidInput = errors.New("database: invalid input")
)
