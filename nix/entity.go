package nix

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/jacentio/nixcore/store"
)

// entity holds the identity and bookkeeping shared by every entity.
type entity struct {
	file      *File
	id        string
	parentID  string
	kind      store.Kind
	createdAt time.Time
	updatedAt time.Time
	seq       int64

	// version is the stored record version, 0 until the first flush.
	version int64
	dirty   bool

	// holder is the record entity whose body stores this entity, nil when
	// the entity is a record itself.
	holder *entity
}

func newEntity(f *File, kind store.Kind, parentID string) entity {
	now := f.now()
	return entity{
		file:      f,
		id:        f.backend.NewID(),
		parentID:  parentID,
		kind:      kind,
		createdAt: now,
		updatedAt: now,
		seq:       f.nextSeq(),
		dirty:     true,
	}
}

func (e *entity) base() *entity {
	return e
}

// ID returns the 36-character UUID of the entity.
func (e *entity) ID() string {
	return e.id
}

// CreatedAt returns the creation time, truncated to seconds.
func (e *entity) CreatedAt() time.Time {
	return e.createdAt
}

// UpdatedAt returns the time of the last modification, truncated to seconds.
func (e *entity) UpdatedAt() time.Time {
	return e.updatedAt
}

// ForceCreatedAt overrides the creation time.
func (e *entity) ForceCreatedAt(t time.Time) {
	e.createdAt = t.UTC().Truncate(time.Second)
	e.touch()
}

// touch records a modification.
func (e *entity) touch() {
	e.updatedAt = e.file.now()
	h := e
	if e.holder != nil {
		h = e.holder
		h.updatedAt = e.updatedAt
	}
	h.dirty = true
}

// live reports whether the entity is still part of its file.
func (e *entity) live() bool {
	_, ok := e.file.index[e.id]
	return ok
}

func (e *entity) loadRecord(rec *store.Record) {
	e.id = rec.ID
	e.parentID = rec.ParentID
	e.kind = rec.Kind
	e.createdAt = rec.CreatedAt.UTC()
	e.updatedAt = rec.UpdatedAt.UTC()
	e.seq = rec.Seq
	e.version = rec.Version
	e.dirty = false
	if rec.Seq > e.file.seq {
		e.file.seq = rec.Seq
	}
}

// namedEntity adds a name, a type and a definition.
type namedEntity struct {
	entity
	name       string
	typ        string
	definition string
}

func newNamedEntity(f *File, kind store.Kind, parentID, name, typ string) (namedEntity, error) {
	if err := checkName(name); err != nil {
		return namedEntity{}, err
	}
	if err := checkType(typ); err != nil {
		return namedEntity{}, err
	}
	return namedEntity{entity: newEntity(f, kind, parentID), name: name, typ: typ}, nil
}

// Name returns the name, unique among siblings of the same kind.
func (e *namedEntity) Name() string {
	return e.name
}

// Type returns the free-form type.
func (e *namedEntity) Type() string {
	return e.typ
}

// SetType replaces the type, which must not be empty.
func (e *namedEntity) SetType(typ string) error {
	if err := checkType(typ); err != nil {
		return err
	}
	e.typ = typ
	e.touch()
	return nil
}

// Definition returns the definition, "" when unset.
func (e *namedEntity) Definition() string {
	return e.definition
}

// SetDefinition replaces the definition; "" removes it.
func (e *namedEntity) SetDefinition(def string) {
	e.definition = def
	e.touch()
}

// entityWithMetadata adds a weak link to a metadata Section.
type entityWithMetadata struct {
	namedEntity
	metadata string
}

// Metadata returns the linked metadata section, nil when unset or deleted.
func (e *entityWithMetadata) Metadata() *Section {
	s, _ := e.file.index[e.metadata].(*Section)
	return s
}

// SetMetadata links a metadata section of the same file.
func (e *entityWithMetadata) SetMetadata(s *Section) error {
	if err := checkMember(e.file, s); err != nil {
		return errors.Wrap(err, "set metadata")
	}
	e.metadata = s.id
	e.touch()
	return nil
}

// RemoveMetadata unlinks the metadata section.
func (e *entityWithMetadata) RemoveMetadata() {
	if e.metadata == "" {
		return
	}
	e.metadata = ""
	e.touch()
}

func (e *entityWithMetadata) scrubMetadata(dead map[string]bool) bool {
	if e.metadata != "" && dead[e.metadata] {
		e.metadata = ""
		return true
	}
	return false
}

// entityWithSources adds membership in a Block and weak links to Sources of
// that Block.
type entityWithSources struct {
	entityWithMetadata
	block   *Block
	sources refSet
}

// Block returns the owning block.
func (e *entityWithSources) Block() *Block {
	return e.block
}

// Sources returns the linked sources in link order.
func (e *entityWithSources) Sources() []*Source {
	return resolveAll[*Source](e.file, e.sources)
}

// SourceCount returns the number of linked sources.
func (e *entityWithSources) SourceCount() int {
	return len(e.Sources())
}

// HasSource reports whether a source with the given name or id is linked.
func (e *entityWithSources) HasSource(nameOrID string) bool {
	_, ok := lookup(e.Sources(), nameOrID)
	return ok
}

// AddSource links a source of the same block. Linking twice is a no-op.
func (e *entityWithSources) AddSource(s *Source) error {
	if err := e.checkSource(s); err != nil {
		return err
	}
	if e.sources.add(s.id) {
		e.touch()
	}
	return nil
}

// RemoveSource unlinks a source and reports whether it was linked.
func (e *entityWithSources) RemoveSource(nameOrID string) bool {
	s, ok := lookup(e.Sources(), nameOrID)
	if !ok || !e.sources.remove(s.id) {
		return false
	}
	e.touch()
	return true
}

// SetSources replaces all source links. Nothing changes unless every source
// is valid.
func (e *entityWithSources) SetSources(sources []*Source) error {
	ids := make(refSet, 0, len(sources))
	for _, s := range sources {
		if err := e.checkSource(s); err != nil {
			return err
		}
		ids.add(s.id)
	}
	e.sources = ids
	e.touch()
	return nil
}

func (e *entityWithSources) checkSource(s *Source) error {
	if err := checkMember(e.file, s); err != nil {
		return errors.Wrap(err, "link source")
	}
	if s.block != e.block {
		return errors.Wrapf(ErrInvalidArgument, "source %s belongs to another block", s.id)
	}
	return nil
}

func (e *entityWithSources) scrubSources(dead map[string]bool) bool {
	changed := e.scrubMetadata(dead)
	if e.sources.scrub(dead) {
		changed = true
	}
	return changed
}

// record is an entity stored as its own store.Record.
type record interface {
	base() *entity
	recordName() string
	recordType() string
	encodeBody() ([]byte, error)
	// ownedRecords returns the directly owned records in creation order.
	ownedRecords() []record
	// scrub removes references to dead ids and reports whether anything
	// changed.
	scrub(dead map[string]bool) bool
}

// named is implemented by every record with a name.
type named interface {
	record
	Name() string
}

func (e *namedEntity) recordName() string { return e.name }
func (e *namedEntity) recordType() string { return e.typ }

// refSet is an ordered set of weak references by id.
type refSet []string

func (s refSet) contains(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

func (s *refSet) add(id string) bool {
	if s.contains(id) {
		return false
	}
	*s = append(*s, id)
	return true
}

func (s *refSet) remove(id string) bool {
	for i, v := range *s {
		if v == id {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return true
		}
	}
	return false
}

func (s *refSet) scrub(dead map[string]bool) bool {
	kept := (*s)[:0]
	for _, v := range *s {
		if !dead[v] {
			kept = append(kept, v)
		}
	}
	changed := len(kept) != len(*s)
	*s = kept
	return changed
}

// resolveAll returns the live entities of type T referenced by ids.
func resolveAll[T record](f *File, ids []string) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if v, ok := f.index[id].(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// lookup finds an item by id when nameOrID looks like a UUID, then by name.
func lookup[T named](items []T, nameOrID string) (T, bool) {
	if uuid.Validate(nameOrID) == nil {
		for _, it := range items {
			if it.base().id == nameOrID {
				return it, true
			}
		}
	}
	for _, it := range items {
		if it.Name() == nameOrID {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// checkSibling fails with ErrDuplicateName when name is taken among items.
func checkSibling[T named](items []T, name string) error {
	for _, it := range items {
		if it.Name() == name {
			return errors.Wrapf(ErrDuplicateName, "%q", name)
		}
	}
	return nil
}

// without returns items minus the one with the given id.
func without[T record](items []T, id string) []T {
	out := items[:0:0]
	for _, it := range items {
		if it.base().id != id {
			out = append(out, it)
		}
	}
	return out
}
