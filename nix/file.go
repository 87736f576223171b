package nix

import (
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jacentio/nixcore/store"
)

// Format names the record layout written by Flush.
const Format = "nix"

// FormatVersion is the layout version written by Flush.
var FormatVersion = []int{1, 2, 0}

// File is the root of an entity graph. It owns Blocks and top-level Sections
// and keeps the id index every lookup and weak reference resolves against.
//
// A File is not safe for concurrent mutation.
type File struct {
	entity

	backend store.Backend
	logger  *zap.SugaredLogger
	clock   func() time.Time

	format   string
	version  []int
	blocks   []*Block
	sections []*Section

	// index holds every live record entity, including the file.
	index map[string]record
	seq   int64

	// pendingDeletes are ids of persisted subtree roots removed since the
	// last flush.
	pendingDeletes []string
}

func newFileShell(opts []Option) *File {
	f := &File{
		logger:  zap.NewNop().Sugar(),
		clock:   time.Now,
		format:  Format,
		version: append([]int(nil), FormatVersion...),
		index:   make(map[string]record),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.backend == nil {
		f.backend = store.NewMemory()
	}
	f.entity.file = f
	return f
}

// NewFile creates an empty file. Without WithBackend it flushes to a fresh
// store.Memory.
func NewFile(opts ...Option) *File {
	f := newFileShell(opts)
	f.entity = newEntity(f, store.KindFile, "")
	f.index[f.id] = f
	return f
}

// Backend returns the backend the file flushes to.
func (f *File) Backend() store.Backend {
	return f.backend
}

// Format returns the format name.
func (f *File) Format() string {
	return f.format
}

// Version returns the format version.
func (f *File) Version() []int {
	return append([]int(nil), f.version...)
}

func (f *File) now() time.Time {
	return f.clock().UTC().Truncate(time.Second)
}

func (f *File) nextSeq() int64 {
	f.seq++
	return f.seq
}

// checkMember verifies r is a live entity of f.
func checkMember[T interface {
	comparable
	record
}](f *File, r T) error {
	var zero T
	if r == zero {
		return errors.Wrap(ErrInvalidArgument, "entity must not be nil")
	}
	e := r.base()
	if e.file != f || f.index[e.id] == nil {
		return errors.Wrapf(ErrNotFound, "%s %s is not part of this file", e.kind, e.id)
	}
	return nil
}

// CreateBlock creates a block.
func (f *File) CreateBlock(name, typ string) (*Block, error) {
	if err := checkSibling(f.blocks, name); err != nil {
		return nil, errors.Wrap(err, "create block")
	}
	ne, err := newNamedEntity(f, store.KindBlock, f.id, name, typ)
	if err != nil {
		return nil, errors.Wrap(err, "create block")
	}
	b := &Block{entityWithMetadata: entityWithMetadata{namedEntity: ne}}
	f.blocks = append(f.blocks, b)
	f.index[b.id] = b
	return b, nil
}

// Block returns the block with the given name or id, nil when absent.
func (f *File) Block(nameOrID string) *Block {
	b, _ := lookup(f.blocks, nameOrID)
	return b
}

// HasBlock reports whether a block with the given name or id exists.
func (f *File) HasBlock(nameOrID string) bool {
	_, ok := lookup(f.blocks, nameOrID)
	return ok
}

// Blocks returns all blocks in creation order.
func (f *File) Blocks() []*Block {
	return append([]*Block(nil), f.blocks...)
}

// BlockCount returns the number of blocks.
func (f *File) BlockCount() int {
	return len(f.blocks)
}

// DeleteBlock deletes a block and everything it owns.
func (f *File) DeleteBlock(nameOrID string) bool {
	b, ok := lookup(f.blocks, nameOrID)
	if !ok {
		return false
	}
	f.blocks = without(f.blocks, b.id)
	f.remove(b)
	return true
}

// CreateSection creates a top-level section.
func (f *File) CreateSection(name, typ string) (*Section, error) {
	s, err := newSection(f, nil, f.sections, name, typ)
	if err != nil {
		return nil, err
	}
	f.sections = append(f.sections, s)
	return s, nil
}

// Section returns the top-level section with the given name or id, nil when
// absent.
func (f *File) Section(nameOrID string) *Section {
	s, _ := lookup(f.sections, nameOrID)
	return s
}

// HasSection reports whether a top-level section with the given name or id
// exists.
func (f *File) HasSection(nameOrID string) bool {
	_, ok := lookup(f.sections, nameOrID)
	return ok
}

// Sections returns the top-level sections in creation order.
func (f *File) Sections() []*Section {
	return append([]*Section(nil), f.sections...)
}

// SectionCount returns the number of top-level sections.
func (f *File) SectionCount() int {
	return len(f.sections)
}

// DeleteSection deletes a top-level section and its subtree.
func (f *File) DeleteSection(nameOrID string) bool {
	s, ok := lookup(f.sections, nameOrID)
	if !ok {
		return false
	}
	f.sections = without(f.sections, s.id)
	f.remove(s)
	return true
}

// FindSections searches all section trees breadth-first. Top-level sections
// are at depth 0.
func (f *File) FindSections(filter func(*Section) bool, maxDepth int) []*Section {
	return findBFS(f.sections, (*Section).childSections, filter, maxDepth)
}

// remove drops r and its owned subtree from the index and scrubs their ids
// from every weak reference left in the file.
func (f *File) remove(r record) {
	dead := make(map[string]bool)
	var walk func(r record)
	walk = func(r record) {
		id := r.base().id
		dead[id] = true
		delete(f.index, id)
		for _, c := range r.ownedRecords() {
			walk(c)
		}
	}
	walk(r)

	scrubbed := 0
	for _, other := range f.index {
		if other.scrub(dead) {
			other.base().touch()
			scrubbed++
		}
	}

	e := r.base()
	if e.version > 0 {
		f.pendingDeletes = append(f.pendingDeletes, e.id)
	}
	f.logger.Debugw("entity deleted",
		"kind", e.kind,
		"id", e.id,
		"removed", len(dead),
		"scrubbed", scrubbed,
	)
}

func (f *File) recordName() string { return "" }
func (f *File) recordType() string { return "" }

func (f *File) ownedRecords() []record {
	out := make([]record, 0, len(f.blocks)+len(f.sections))
	for _, b := range f.blocks {
		out = append(out, b)
	}
	for _, s := range f.sections {
		out = append(out, s)
	}
	return out
}

func (f *File) scrub(map[string]bool) bool {
	return false
}
