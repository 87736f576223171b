package nix

import (
	"github.com/cockroachdb/errors"

	"github.com/jacentio/nixcore/store"
)

// Block groups the sources, data arrays, tags, multi-tags and groups of one
// recording.
type Block struct {
	entityWithMetadata

	sources    []*Source
	dataArrays []*DataArray
	tags       []*Tag
	multiTags  []*MultiTag
	groups     []*Group
}

// File returns the owning file.
func (b *Block) File() *File {
	return b.file
}

func (b *Block) newMember(kind store.Kind, name, typ string) (entityWithSources, error) {
	ne, err := newNamedEntity(b.file, kind, b.id, name, typ)
	if err != nil {
		return entityWithSources{}, err
	}
	return entityWithSources{
		entityWithMetadata: entityWithMetadata{namedEntity: ne},
		block:              b,
	}, nil
}

// CreateSource creates a root source of the block.
func (b *Block) CreateSource(name, typ string) (*Source, error) {
	if err := checkSibling(b.sources, name); err != nil {
		return nil, errors.Wrap(err, "create source")
	}
	s, err := newSource(b, b.id, name, typ)
	if err != nil {
		return nil, errors.Wrap(err, "create source")
	}
	b.sources = append(b.sources, s)
	return s, nil
}

// Source returns the root source with the given name or id, nil when absent.
func (b *Block) Source(nameOrID string) *Source {
	s, _ := lookup(b.sources, nameOrID)
	return s
}

// HasSource reports whether a root source with the given name or id exists.
func (b *Block) HasSource(nameOrID string) bool {
	_, ok := lookup(b.sources, nameOrID)
	return ok
}

// Sources returns the root sources in creation order.
func (b *Block) Sources() []*Source {
	return append([]*Source(nil), b.sources...)
}

// SourceCount returns the number of root sources.
func (b *Block) SourceCount() int {
	return len(b.sources)
}

// DeleteSource deletes a root source and its subtree.
func (b *Block) DeleteSource(nameOrID string) bool {
	s, ok := lookup(b.sources, nameOrID)
	if !ok {
		return false
	}
	b.sources = without(b.sources, s.id)
	b.file.remove(s)
	return true
}

// FindSources searches the block's source trees breadth-first. Root sources
// are at depth 0.
func (b *Block) FindSources(filter func(*Source) bool, maxDepth int) []*Source {
	return findBFS(b.sources, (*Source).childSources, filter, maxDepth)
}

// CreateDataArray creates a data array of the given type and extent with a
// zeroed buffer.
func (b *Block) CreateDataArray(name, typ string, dtype DataType, extent NDSize) (*DataArray, error) {
	if err := checkSibling(b.dataArrays, name); err != nil {
		return nil, errors.Wrap(err, "create data array")
	}
	if err := checkArrayType(dtype); err != nil {
		return nil, errors.Wrap(err, "create data array")
	}
	if err := checkExtent(extent); err != nil {
		return nil, errors.Wrap(err, "create data array")
	}
	m, err := b.newMember(store.KindDataArray, name, typ)
	if err != nil {
		return nil, errors.Wrap(err, "create data array")
	}
	da := &DataArray{
		entityWithSources: m,
		dataType:          dtype,
		extent:            extent.Clone(),
		data:              make([]float64, extent.Size()),
	}
	b.dataArrays = append(b.dataArrays, da)
	b.file.index[da.id] = da
	return da, nil
}

// DataArray returns the data array with the given name or id, nil when absent.
func (b *Block) DataArray(nameOrID string) *DataArray {
	da, _ := lookup(b.dataArrays, nameOrID)
	return da
}

// HasDataArray reports whether a data array with the given name or id exists.
func (b *Block) HasDataArray(nameOrID string) bool {
	_, ok := lookup(b.dataArrays, nameOrID)
	return ok
}

// DataArrays returns all data arrays in creation order.
func (b *Block) DataArrays() []*DataArray {
	return append([]*DataArray(nil), b.dataArrays...)
}

// DataArrayCount returns the number of data arrays.
func (b *Block) DataArrayCount() int {
	return len(b.dataArrays)
}

// DeleteDataArray deletes a data array and scrubs it from tags, features and
// groups.
func (b *Block) DeleteDataArray(nameOrID string) bool {
	da, ok := lookup(b.dataArrays, nameOrID)
	if !ok {
		return false
	}
	b.dataArrays = without(b.dataArrays, da.id)
	b.file.remove(da)
	return true
}

// CreateTag creates a tag at the given position.
func (b *Block) CreateTag(name, typ string, position []float64) (*Tag, error) {
	if err := checkSibling(b.tags, name); err != nil {
		return nil, errors.Wrap(err, "create tag")
	}
	m, err := b.newMember(store.KindTag, name, typ)
	if err != nil {
		return nil, errors.Wrap(err, "create tag")
	}
	t := &Tag{
		baseTag:  baseTag{entityWithSources: m},
		position: append([]float64(nil), position...),
	}
	b.tags = append(b.tags, t)
	b.file.index[t.id] = t
	return t, nil
}

// Tag returns the tag with the given name or id, nil when absent.
func (b *Block) Tag(nameOrID string) *Tag {
	t, _ := lookup(b.tags, nameOrID)
	return t
}

// HasTag reports whether a tag with the given name or id exists.
func (b *Block) HasTag(nameOrID string) bool {
	_, ok := lookup(b.tags, nameOrID)
	return ok
}

// Tags returns all tags in creation order.
func (b *Block) Tags() []*Tag {
	return append([]*Tag(nil), b.tags...)
}

// TagCount returns the number of tags.
func (b *Block) TagCount() int {
	return len(b.tags)
}

// DeleteTag deletes a tag and its features.
func (b *Block) DeleteTag(nameOrID string) bool {
	t, ok := lookup(b.tags, nameOrID)
	if !ok {
		return false
	}
	b.tags = without(b.tags, t.id)
	b.file.remove(t)
	return true
}

// CreateMultiTag creates a multi-tag whose positions are read from a data
// array of the same block.
func (b *Block) CreateMultiTag(name, typ string, positions *DataArray) (*MultiTag, error) {
	if err := checkSibling(b.multiTags, name); err != nil {
		return nil, errors.Wrap(err, "create multi-tag")
	}
	if err := checkBlockMember(b, positions); err != nil {
		return nil, errors.Wrap(err, "create multi-tag positions")
	}
	m, err := b.newMember(store.KindMultiTag, name, typ)
	if err != nil {
		return nil, errors.Wrap(err, "create multi-tag")
	}
	mt := &MultiTag{
		baseTag:   baseTag{entityWithSources: m},
		positions: positions.id,
	}
	b.multiTags = append(b.multiTags, mt)
	b.file.index[mt.id] = mt
	return mt, nil
}

// MultiTag returns the multi-tag with the given name or id, nil when absent.
func (b *Block) MultiTag(nameOrID string) *MultiTag {
	mt, _ := lookup(b.multiTags, nameOrID)
	return mt
}

// HasMultiTag reports whether a multi-tag with the given name or id exists.
func (b *Block) HasMultiTag(nameOrID string) bool {
	_, ok := lookup(b.multiTags, nameOrID)
	return ok
}

// MultiTags returns all multi-tags in creation order.
func (b *Block) MultiTags() []*MultiTag {
	return append([]*MultiTag(nil), b.multiTags...)
}

// MultiTagCount returns the number of multi-tags.
func (b *Block) MultiTagCount() int {
	return len(b.multiTags)
}

// DeleteMultiTag deletes a multi-tag and its features. The positions and
// extents arrays are not deleted.
func (b *Block) DeleteMultiTag(nameOrID string) bool {
	mt, ok := lookup(b.multiTags, nameOrID)
	if !ok {
		return false
	}
	b.multiTags = without(b.multiTags, mt.id)
	b.file.remove(mt)
	return true
}

// CreateGroup creates an empty group.
func (b *Block) CreateGroup(name, typ string) (*Group, error) {
	if err := checkSibling(b.groups, name); err != nil {
		return nil, errors.Wrap(err, "create group")
	}
	m, err := b.newMember(store.KindGroup, name, typ)
	if err != nil {
		return nil, errors.Wrap(err, "create group")
	}
	g := &Group{entityWithSources: m}
	b.groups = append(b.groups, g)
	b.file.index[g.id] = g
	return g, nil
}

// Group returns the group with the given name or id, nil when absent.
func (b *Block) Group(nameOrID string) *Group {
	g, _ := lookup(b.groups, nameOrID)
	return g
}

// HasGroup reports whether a group with the given name or id exists.
func (b *Block) HasGroup(nameOrID string) bool {
	_, ok := lookup(b.groups, nameOrID)
	return ok
}

// Groups returns all groups in creation order.
func (b *Block) Groups() []*Group {
	return append([]*Group(nil), b.groups...)
}

// GroupCount returns the number of groups.
func (b *Block) GroupCount() int {
	return len(b.groups)
}

// DeleteGroup deletes a group. Its members are not deleted.
func (b *Block) DeleteGroup(nameOrID string) bool {
	g, ok := lookup(b.groups, nameOrID)
	if !ok {
		return false
	}
	b.groups = without(b.groups, g.id)
	b.file.remove(g)
	return true
}

// checkBlockMember verifies r is a live entity of block b.
func checkBlockMember[T interface {
	comparable
	record
	Block() *Block
}](b *Block, r T) error {
	if err := checkMember(b.file, r); err != nil {
		return err
	}
	if r.Block() != b {
		e := r.base()
		return errors.Wrapf(ErrInvalidArgument, "%s %s belongs to another block", e.kind, e.id)
	}
	return nil
}

func (b *Block) ownedRecords() []record {
	out := make([]record, 0, len(b.sources)+len(b.dataArrays)+len(b.tags)+len(b.multiTags)+len(b.groups))
	for _, s := range b.sources {
		out = append(out, s)
	}
	for _, da := range b.dataArrays {
		out = append(out, da)
	}
	for _, t := range b.tags {
		out = append(out, t)
	}
	for _, mt := range b.multiTags {
		out = append(out, mt)
	}
	for _, g := range b.groups {
		out = append(out, g)
	}
	return out
}

func (b *Block) scrub(dead map[string]bool) bool {
	return b.scrubMetadata(dead)
}
