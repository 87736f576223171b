// Package store persists the NIX entity graph as a tree of records.
package store

import (
	"context"
	"time"
)

// Kind names the type of entity stored in a Record.
type Kind string

// Known record kinds.
const (
	KindFile      Kind = "file"
	KindBlock     Kind = "block"
	KindSource    Kind = "source"
	KindSection   Kind = "section"
	KindProperty  Kind = "property"
	KindDataArray Kind = "data_array"
	KindTag       Kind = "tag"
	KindMultiTag  Kind = "multi_tag"
	KindGroup     Kind = "group"
)

// Record is one stored entity. Dimensions, features and values are carried
// inside the Body of their owner.
type Record struct {
	// ID is the 36-character UUID of the entity.
	ID string

	// Kind is the entity kind.
	Kind Kind

	// ParentID is the id of the owning record (empty for root records).
	ParentID string

	// Name is unique among records of the same kind under the same parent.
	// Empty names are not constrained.
	Name string

	// Type is the free-form entity type.
	Type string

	// Seq orders siblings by creation.
	Seq int64

	// Version is the optimistic lock version, 1 after Create.
	Version int64

	// CreatedAt is the creation timestamp.
	CreatedAt time.Time

	// UpdatedAt is the last update timestamp.
	UpdatedAt time.Time

	// Body is the encoded entity document.
	Body []byte
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := *r
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return &c
}

// Backend stores records.
//
// ID, Kind, ParentID and Name are immutable after Create. Update writes Type,
// Seq, UpdatedAt and Body and bumps Version.
type Backend interface {
	// NewID returns a fresh 36-character UUID that is never reused.
	NewID() string

	// Create stores a new record and sets its Version to 1. It fails with
	// ErrParentNotFound, ErrAlreadyExists, ErrDuplicateValue or
	// ErrUnknownRelationship.
	Create(ctx context.Context, rec *Record) error

	// Update replaces a record when rec.Version matches the stored version.
	// It fails with ErrNotFound or ErrConcurrentModification.
	Update(ctx context.Context, rec *Record) error

	// Get returns the record with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Children returns the live children of parentID ordered by Seq.
	Children(ctx context.Context, parentID string) ([]*Record, error)

	// Delete removes a record and all of its descendants. Deleting a missing
	// record is not an error.
	Delete(ctx context.Context, id string) error
}
