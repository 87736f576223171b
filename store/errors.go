package store

import "github.com/cockroachdb/errors"

var (
	// ErrParentNotFound is returned when the parent record doesn't exist or is deleted.
	ErrParentNotFound = errors.New("store: parent record not found")

	// ErrNotFound is returned when a record doesn't exist or is deleted (has TTL <= now).
	ErrNotFound = errors.New("store: record not found")

	// ErrAlreadyExists is returned when attempting to create a record with an existing ID.
	ErrAlreadyExists = errors.New("store: record already exists")

	// ErrConcurrentModification is returned when optimistic lock fails (version mismatch).
	ErrConcurrentModification = errors.New("store: record was modified concurrently")

	// ErrDuplicateValue is returned when a sibling of the same kind already has the name.
	ErrDuplicateValue = errors.New("store: duplicate name within parent")

	// ErrUnknownRelationship is returned when the registry doesn't allow the
	// parent kind to own the record kind.
	ErrUnknownRelationship = errors.New("store: unknown parent/child relationship")
)
