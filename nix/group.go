package nix

import (
	"github.com/cockroachdb/errors"
)

// Group collects data arrays, tags and multi-tags of its block without
// owning them.
type Group struct {
	entityWithSources

	dataArrays refSet
	tags       refSet
	multiTags  refSet
}

// DataArrays returns the member data arrays.
func (g *Group) DataArrays() []*DataArray {
	return resolveAll[*DataArray](g.file, g.dataArrays)
}

// DataArrayCount returns the number of member data arrays.
func (g *Group) DataArrayCount() int {
	return len(g.DataArrays())
}

// HasDataArray reports whether a data array with the given name or id is a
// member.
func (g *Group) HasDataArray(nameOrID string) bool {
	_, ok := lookup(g.DataArrays(), nameOrID)
	return ok
}

// AddDataArray adds a data array of the same block.
func (g *Group) AddDataArray(da *DataArray) error {
	if err := checkBlockMember(g.block, da); err != nil {
		return errors.Wrap(err, "add data array")
	}
	if g.dataArrays.add(da.id) {
		g.touch()
	}
	return nil
}

// RemoveDataArray drops a member data array.
func (g *Group) RemoveDataArray(nameOrID string) bool {
	da, ok := lookup(g.DataArrays(), nameOrID)
	if !ok || !g.dataArrays.remove(da.id) {
		return false
	}
	g.touch()
	return true
}

// SetDataArrays replaces the member data arrays.
func (g *Group) SetDataArrays(arrays []*DataArray) error {
	ids := make(refSet, 0, len(arrays))
	for _, da := range arrays {
		if err := checkBlockMember(g.block, da); err != nil {
			return errors.Wrap(err, "set data arrays")
		}
		ids.add(da.id)
	}
	g.dataArrays = ids
	g.touch()
	return nil
}

// Tags returns the member tags.
func (g *Group) Tags() []*Tag {
	return resolveAll[*Tag](g.file, g.tags)
}

// TagCount returns the number of member tags.
func (g *Group) TagCount() int {
	return len(g.Tags())
}

// HasTag reports whether a tag with the given name or id is a member.
func (g *Group) HasTag(nameOrID string) bool {
	_, ok := lookup(g.Tags(), nameOrID)
	return ok
}

// AddTag adds a tag of the same block.
func (g *Group) AddTag(t *Tag) error {
	if err := checkBlockMember(g.block, t); err != nil {
		return errors.Wrap(err, "add tag")
	}
	if g.tags.add(t.id) {
		g.touch()
	}
	return nil
}

// RemoveTag drops a member tag.
func (g *Group) RemoveTag(nameOrID string) bool {
	t, ok := lookup(g.Tags(), nameOrID)
	if !ok || !g.tags.remove(t.id) {
		return false
	}
	g.touch()
	return true
}

// SetTags replaces the member tags.
func (g *Group) SetTags(tags []*Tag) error {
	ids := make(refSet, 0, len(tags))
	for _, t := range tags {
		if err := checkBlockMember(g.block, t); err != nil {
			return errors.Wrap(err, "set tags")
		}
		ids.add(t.id)
	}
	g.tags = ids
	g.touch()
	return nil
}

// MultiTags returns the member multi-tags.
func (g *Group) MultiTags() []*MultiTag {
	return resolveAll[*MultiTag](g.file, g.multiTags)
}

// MultiTagCount returns the number of member multi-tags.
func (g *Group) MultiTagCount() int {
	return len(g.MultiTags())
}

// HasMultiTag reports whether a multi-tag with the given name or id is a
// member.
func (g *Group) HasMultiTag(nameOrID string) bool {
	_, ok := lookup(g.MultiTags(), nameOrID)
	return ok
}

// AddMultiTag adds a multi-tag of the same block.
func (g *Group) AddMultiTag(mt *MultiTag) error {
	if err := checkBlockMember(g.block, mt); err != nil {
		return errors.Wrap(err, "add multi-tag")
	}
	if g.multiTags.add(mt.id) {
		g.touch()
	}
	return nil
}

// RemoveMultiTag drops a member multi-tag.
func (g *Group) RemoveMultiTag(nameOrID string) bool {
	mt, ok := lookup(g.MultiTags(), nameOrID)
	if !ok || !g.multiTags.remove(mt.id) {
		return false
	}
	g.touch()
	return true
}

// SetMultiTags replaces the member multi-tags.
func (g *Group) SetMultiTags(mts []*MultiTag) error {
	ids := make(refSet, 0, len(mts))
	for _, mt := range mts {
		if err := checkBlockMember(g.block, mt); err != nil {
			return errors.Wrap(err, "set multi-tags")
		}
		ids.add(mt.id)
	}
	g.multiTags = ids
	g.touch()
	return nil
}

func (g *Group) ownedRecords() []record {
	return nil
}

func (g *Group) scrub(dead map[string]bool) bool {
	changed := g.scrubSources(dead)
	for _, set := range []*refSet{&g.dataArrays, &g.tags, &g.multiTags} {
		if set.scrub(dead) {
			changed = true
		}
	}
	return changed
}
