package nix

import (
	"github.com/cockroachdb/errors"

	"github.com/jacentio/nixcore/store"
)

// Source describes the origin of data. Sources form a strict tree inside a
// Block and are referenced by id from data arrays, tags and groups.
type Source struct {
	entityWithMetadata

	block   *Block
	parent  *Source
	sources []*Source
}

func newSource(b *Block, parentID, name, typ string) (*Source, error) {
	ne, err := newNamedEntity(b.file, store.KindSource, parentID, name, typ)
	if err != nil {
		return nil, err
	}
	s := &Source{
		entityWithMetadata: entityWithMetadata{namedEntity: ne},
		block:              b,
	}
	b.file.index[s.id] = s
	return s, nil
}

// Block returns the block the source tree belongs to.
func (s *Source) Block() *Block {
	return s.block
}

// Parent returns the owning source, nil for a root source.
func (s *Source) Parent() *Source {
	return s.parent
}

// CreateSource creates a child source.
func (s *Source) CreateSource(name, typ string) (*Source, error) {
	if err := checkSibling(s.sources, name); err != nil {
		return nil, errors.Wrap(err, "create source")
	}
	c, err := newSource(s.block, s.id, name, typ)
	if err != nil {
		return nil, errors.Wrap(err, "create source")
	}
	c.parent = s
	s.sources = append(s.sources, c)
	return c, nil
}

// Source returns the direct child with the given name or id, nil when
// absent.
func (s *Source) Source(nameOrID string) *Source {
	c, _ := lookup(s.sources, nameOrID)
	return c
}

// HasSource reports whether a direct child with the given name or id exists.
func (s *Source) HasSource(nameOrID string) bool {
	_, ok := lookup(s.sources, nameOrID)
	return ok
}

// Sources returns the direct children in creation order.
func (s *Source) Sources() []*Source {
	return append([]*Source(nil), s.sources...)
}

// SourceCount returns the number of direct children.
func (s *Source) SourceCount() int {
	return len(s.sources)
}

// DeleteSource deletes a direct child and its subtree.
func (s *Source) DeleteSource(nameOrID string) bool {
	c, ok := lookup(s.sources, nameOrID)
	if !ok {
		return false
	}
	s.sources = without(s.sources, c.id)
	s.file.remove(c)
	return true
}

// FindSources searches the subtree breadth-first starting with s at depth 0.
func (s *Source) FindSources(filter func(*Source) bool, maxDepth int) []*Source {
	return findBFS([]*Source{s}, (*Source).childSources, filter, maxDepth)
}

func (s *Source) childSources() []*Source {
	return s.sources
}

func (s *Source) ownedRecords() []record {
	out := make([]record, len(s.sources))
	for i, c := range s.sources {
		out[i] = c
	}
	return out
}

func (s *Source) scrub(dead map[string]bool) bool {
	return s.scrubMetadata(dead)
}
