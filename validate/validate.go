// Package validate checks the consistency rules of a nix file that the
// entity setters cannot enforce on their own, such as dimension descriptors
// matching the data shape or tag units fitting the tagged data.
//
// Validation never fails; problems are reported as errors and warnings of a
// Result.
package validate

import (
	"github.com/jacentio/nixcore/nix"
	"github.com/jacentio/nixcore/units"
)

// File validates every block and every section of f.
func File(f *nix.File) Result {
	var r Result
	for _, b := range f.Blocks() {
		r.Concat(Block(b))
	}
	for _, s := range f.FindSections(nil, nix.Unlimited) {
		r.Concat(Section(s))
	}
	return r
}

// Block validates the data arrays, tags and multi-tags of b.
func Block(b *nix.Block) Result {
	var r Result
	for _, da := range b.DataArrays() {
		r.Concat(DataArray(da))
	}
	for _, t := range b.Tags() {
		r.Concat(Tag(t))
	}
	for _, mt := range b.MultiTags() {
		r.Concat(MultiTag(mt))
	}
	return r
}

// DataArray checks the unit of da and that its dimension descriptors match
// its shape.
func DataArray(da *nix.DataArray) Result {
	var r Result
	id := da.ID()
	if u := da.Unit(); u != "" && !units.IsSIUnit(u) {
		r.errorf(id, "unit %q is not an SI unit", u)
	}
	if n, rank := da.DimensionCount(), da.DataExtent().Rank(); n != rank {
		r.errorf(id, "%d dimension descriptors for data of rank %d", n, rank)
	}
	for _, d := range da.Dimensions() {
		r.Concat(Dimension(da, d))
	}
	return r
}

// Dimension checks d on its own and against the extent of da along its axis.
// Messages carry the id of da.
func Dimension(da *nix.DataArray, d nix.Dimension) Result {
	var r Result
	id := da.ID()
	axis := d.Index()
	if axis == 0 {
		r.errorf(id, "%s dimension is not attached to the data array", d.DimensionType())
		return r
	}

	extent := da.DataExtent()
	size := -1
	if axis <= extent.Rank() {
		size = extent[axis-1]
	}

	switch d := d.(type) {
	case *nix.SampledDimension:
		if d.SamplingInterval() <= 0 {
			r.errorf(id, "dimension %d: sampling interval %g is not positive", axis, d.SamplingInterval())
		}
		checkDimensionUnit(&r, id, axis, d.Unit())
	case *nix.RangeDimension:
		ticks := d.Ticks()
		if len(ticks) == 0 {
			r.errorf(id, "dimension %d: range dimension has no ticks", axis)
		}
		for i := 1; i < len(ticks); i++ {
			if ticks[i] <= ticks[i-1] {
				r.errorf(id, "dimension %d: ticks are not strictly ascending at %d", axis, i)
				break
			}
		}
		if size >= 0 && len(ticks) != size {
			r.errorf(id, "dimension %d: %d ticks for an extent of %d", axis, len(ticks), size)
		}
		checkDimensionUnit(&r, id, axis, d.Unit())
	case *nix.SetDimension:
		labels := d.Labels()
		if len(labels) > 0 && size >= 0 && len(labels) != size {
			r.errorf(id, "dimension %d: %d labels for an extent of %d", axis, len(labels), size)
		}
	}
	return r
}

func checkDimensionUnit(r *Result, id string, axis int, u string) {
	if u != "" && !units.IsAtomicSIUnit(u) {
		r.errorf(id, "dimension %d: unit %q is not an atomic SI unit", axis, u)
	}
}

// Tag checks the position, extent and units of t against its references
// and validates its features.
func Tag(t *nix.Tag) Result {
	var r Result
	id := t.ID()
	position, extent := t.Position(), t.Extent()
	if len(extent) > 0 && len(extent) != len(position) {
		r.errorf(id, "extent has %d entries, position has %d", len(extent), len(position))
	}
	checkTagging(&r, id, t.Units(), len(position), t.References())
	for _, ft := range t.Features() {
		r.Concat(Feature(ft))
	}
	return r
}

// MultiTag checks the positions and extents of mt, its units against its
// references and validates its features.
func MultiTag(mt *nix.MultiTag) Result {
	var r Result
	id := mt.ID()
	positions := mt.Positions()
	if positions == nil {
		r.errorf(id, "multi-tag has no positions")
	} else {
		shape := positions.DataExtent()
		switch shape.Rank() {
		case 1:
			checkTagging(&r, id, mt.Units(), 1, mt.References())
		case 2:
			checkTagging(&r, id, mt.Units(), shape[1], mt.References())
		default:
			r.errorf(id, "positions have rank %d, want 1 or 2", shape.Rank())
		}
		if extents := mt.Extents(); extents != nil && !extents.DataExtent().Equal(shape) {
			r.errorf(id, "extents shape %v differs from positions shape %v", extents.DataExtent(), shape)
		}
	}
	for _, ft := range mt.Features() {
		r.Concat(Feature(ft))
	}
	return r
}

func isNoUnit(u string) bool {
	return u == "" || u == "none"
}

// checkTagging checks tag units and that every reference can be indexed by
// a position of length n given in those units.
func checkTagging(r *Result, id string, tagUnits []string, n int, refs []*nix.DataArray) {
	for i, u := range tagUnits {
		if !isNoUnit(u) && !units.IsSIUnit(u) {
			r.errorf(id, "unit %d %q is not an SI unit", i, u)
		}
	}
	if len(tagUnits) > n {
		r.errorf(id, "%d units for positions of length %d", len(tagUnits), n)
	}

	for _, ref := range refs {
		rank := ref.DataExtent().Rank()
		if rank < n {
			r.errorf(id, "reference %q has rank %d, positions have length %d", ref.Name(), rank, n)
			continue
		}
		for i := 0; i < n; i++ {
			dim, err := ref.Dimension(i + 1)
			if err != nil {
				r.errorf(id, "reference %q has no descriptor for dimension %d", ref.Name(), i+1)
				continue
			}
			if i >= len(tagUnits) || isNoUnit(tagUnits[i]) {
				continue
			}
			u := tagUnits[i]
			var dimUnit string
			switch d := dim.(type) {
			case *nix.SampledDimension:
				dimUnit = d.Unit()
			case *nix.RangeDimension:
				dimUnit = d.Unit()
			}
			switch {
			case dimUnit == "":
				r.errorf(id, "unit %q given for dimension %d of %q which has no unit", u, i+1, ref.Name())
			case !units.IsScalable(u, dimUnit):
				r.errorf(id, "unit %q cannot be scaled to %q of dimension %d of %q", u, dimUnit, i+1, ref.Name())
			}
		}
	}
}

// Feature checks that ft still has data.
func Feature(ft *nix.Feature) Result {
	var r Result
	if ft.Data() == nil {
		r.errorf(ft.ID(), "feature has no data")
	}
	return r
}

// Section checks the link and the properties of s. Subsections are not
// visited.
func Section(s *nix.Section) Result {
	var r Result
	if s.Link() == s {
		r.warnf(s.ID(), "section links to itself")
	}
	for _, p := range s.Properties() {
		r.Concat(Property(p))
	}
	return r
}

// Property checks the unit and values of p.
func Property(p *nix.Property) Result {
	var r Result
	id := p.ID()
	if u := p.Unit(); u != "" && !units.IsSIUnit(u) {
		r.errorf(id, "unit %q is not an SI unit", u)
	}
	values := p.Values()
	for i, v := range values {
		if v.DataType() != p.DataType() {
			r.errorf(id, "value %d is %s, property is %s", i, v.DataType(), p.DataType())
			break
		}
	}
	if len(values) > 0 && p.DataType().IsNumeric() && p.Unit() == "" {
		r.warnf(id, "numeric values without a unit")
	}
	return r
}
