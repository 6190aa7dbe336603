package storage

import "errors"

var (
	// ErrNotFound is returned when no document matches, including malformed ids
	ErrNotFound = errors.New("not found")
	// ErrInvalidPagination is returned for unsupported page or limit values
	ErrInvalidPagination = errors.New("invalid pagination")
	// ErrEmptyPatch is returned when an update sets no field
	ErrEmptyPatch = errors.New("no fields to update")
)

// ErrDuplicate is returned when a unique key already exists
var ErrDuplicate = errors.New("already exists")
