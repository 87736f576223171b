// Package store persists NIX entity records.
//
// Every entity of a NIX file (file, block, source, section, property, data
// array, tag, multi-tag, group) is stored as a [Record]: an id, its kind, the
// id of its owning record, an optional name that is unique among siblings of
// the same kind, a version for optimistic locking and an opaque body.
//
// Three [Backend] implementations are provided:
//
//   - [Memory] keeps records in process and is the default for new files.
//   - [SQLite] stores records in a single table with a recursive delete.
//   - [Dynamo] stores records in DynamoDB across an entity table, a sharded
//     relationship table and a unique name table.
//
// # Relationships
//
// A [Registry] lists which kinds may own which. Create rejects a child whose
// parent is missing, deleted or of a kind that cannot own it.
//
// # Deletes
//
// Deleting a record removes its whole subtree. The Dynamo backend marks the
// root with a TTL and propagates that TTL to descendants either inline
// ([Config].InlineCascade) or from a DynamoDB stream handler.
//
// # Configuration
//
// Use [DefaultConfig] or [LoadConfig], which reads a file and NIX_* variables:
//
//	cfg, err := store.LoadConfig("nix.yaml")
//	cfg.NumShards = 16
//
// # Errors
//
//   - [ErrNotFound] - record doesn't exist or is deleted
//   - [ErrParentNotFound] - parent validation failed
//   - [ErrAlreadyExists] - record with ID already exists
//   - [ErrConcurrentModification] - optimistic lock failed
//   - [ErrDuplicateValue] - sibling name already taken
//   - [ErrUnknownRelationship] - kind cannot be owned by the parent kind
package store
