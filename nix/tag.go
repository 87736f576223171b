package nix

import (
	"github.com/cockroachdb/errors"

	"github.com/jacentio/nixcore/units"
)

// baseTag holds what Tag and MultiTag share: units, references to data
// arrays of the same block and owned features.
type baseTag struct {
	entityWithSources

	units      []string
	references refSet
	features   []*Feature
}

// Units returns the per-axis units of the position.
func (t *baseTag) Units() []string {
	return append([]string(nil), t.units...)
}

// SetUnits replaces the per-axis units. Each entry is sanitized and must be
// an SI unit, "" or "none". Nothing changes unless every unit is valid.
func (t *baseTag) SetUnits(us []string) error {
	out := make([]string, len(us))
	for i, u := range us {
		s := units.Sanitize(u)
		if !isNoUnit(s) {
			var err error
			if s, err = checkUnit(s, false); err != nil {
				return errors.Wrapf(err, "set units: axis %d", i)
			}
		}
		out[i] = s
	}
	if len(out) == 0 {
		out = nil
	}
	t.units = out
	t.touch()
	return nil
}

// unitAt returns the unit of axis i, "none" when unset.
func (t *baseTag) unitAt(i int) string {
	if i < len(t.units) && t.units[i] != "" {
		return t.units[i]
	}
	return "none"
}

// References returns the referenced data arrays in link order.
func (t *baseTag) References() []*DataArray {
	return resolveAll[*DataArray](t.file, t.references)
}

// ReferenceCount returns the number of referenced data arrays.
func (t *baseTag) ReferenceCount() int {
	return len(t.References())
}

// Reference returns the referenced data array with the given name or id,
// nil when absent.
func (t *baseTag) Reference(nameOrID string) *DataArray {
	da, _ := lookup(t.References(), nameOrID)
	return da
}

// HasReference reports whether a data array with the given name or id is
// referenced.
func (t *baseTag) HasReference(nameOrID string) bool {
	_, ok := lookup(t.References(), nameOrID)
	return ok
}

// AddReference references a data array of the same block. Adding twice is a
// no-op.
func (t *baseTag) AddReference(da *DataArray) error {
	if err := checkBlockMember(t.block, da); err != nil {
		return errors.Wrap(err, "add reference")
	}
	if t.references.add(da.id) {
		t.touch()
	}
	return nil
}

// RemoveReference drops a reference and reports whether it was present.
func (t *baseTag) RemoveReference(nameOrID string) bool {
	da, ok := lookup(t.References(), nameOrID)
	if !ok || !t.references.remove(da.id) {
		return false
	}
	t.touch()
	return true
}

// SetReferences replaces all references. Nothing changes unless every array
// is valid.
func (t *baseTag) SetReferences(arrays []*DataArray) error {
	ids := make(refSet, 0, len(arrays))
	for _, da := range arrays {
		if err := checkBlockMember(t.block, da); err != nil {
			return errors.Wrap(err, "set references")
		}
		ids.add(da.id)
	}
	t.references = ids
	t.touch()
	return nil
}

// referenceAt returns reference i or ErrIndexOutOfRange.
func (t *baseTag) referenceAt(i int) (*DataArray, error) {
	refs := t.References()
	if i < 0 || i >= len(refs) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "reference %d of %d", i, len(refs))
	}
	return refs[i], nil
}

// CreateFeature attaches data to the tag with the given link type.
func (t *baseTag) CreateFeature(data *DataArray, link LinkType) (*Feature, error) {
	if err := checkMember(t.file, data); err != nil {
		return nil, errors.Wrap(err, "create feature")
	}
	if !link.valid() {
		return nil, errors.Wrapf(ErrInvalidArgument, "create feature: unknown link type %d", link)
	}
	ft := &Feature{entity: newEntity(t.file, "", t.id), data: data.id, linkType: link}
	ft.holder = &t.entity
	t.features = append(t.features, ft)
	t.touch()
	return ft, nil
}

// Features returns the features in creation order.
func (t *baseTag) Features() []*Feature {
	return append([]*Feature(nil), t.features...)
}

// FeatureCount returns the number of features.
func (t *baseTag) FeatureCount() int {
	return len(t.features)
}

// Feature returns the feature with the given id, nil when absent.
func (t *baseTag) Feature(id string) *Feature {
	for _, ft := range t.features {
		if ft.id == id {
			return ft
		}
	}
	return nil
}

// HasFeature reports whether a feature with the given id exists.
func (t *baseTag) HasFeature(id string) bool {
	return t.Feature(id) != nil
}

// DeleteFeature deletes a feature. Its data array is not deleted.
func (t *baseTag) DeleteFeature(id string) bool {
	for i, ft := range t.features {
		if ft.id == id {
			t.features = append(t.features[:i], t.features[i+1:]...)
			t.touch()
			return true
		}
	}
	return false
}

// featureAt returns feature i or ErrIndexOutOfRange.
func (t *baseTag) featureAt(i int) (*Feature, error) {
	if i < 0 || i >= len(t.features) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "feature %d of %d", i, len(t.features))
	}
	return t.features[i], nil
}

func (t *baseTag) scrubTag(dead map[string]bool) bool {
	changed := t.scrubSources(dead)
	if t.references.scrub(dead) {
		changed = true
	}
	for _, ft := range t.features {
		if ft.data != "" && dead[ft.data] {
			ft.data = ""
			changed = true
		}
	}
	return changed
}

func (t *baseTag) ownedRecords() []record {
	return nil
}

// Tag marks one region of interest, given by a position and an optional
// extent, in the referenced data arrays.
type Tag struct {
	baseTag

	position []float64
	extent   []float64
}

// Position returns the start of the region, one value per axis.
func (t *Tag) Position() []float64 {
	return append([]float64(nil), t.position...)
}

// SetPosition replaces the position. When an extent is set the lengths must
// match.
func (t *Tag) SetPosition(position []float64) error {
	if len(t.extent) > 0 && len(position) != len(t.extent) {
		return errors.Wrapf(ErrInvalidArgument, "position has %d values, extent %d", len(position), len(t.extent))
	}
	t.position = append([]float64(nil), position...)
	t.touch()
	return nil
}

// Extent returns the size of the region, empty for a point.
func (t *Tag) Extent() []float64 {
	return append([]float64(nil), t.extent...)
}

// SetExtent replaces the extent, which must have one value per position
// axis. nil removes it.
func (t *Tag) SetExtent(extent []float64) error {
	if len(extent) > 0 && len(extent) != len(t.position) {
		return errors.Wrapf(ErrInvalidArgument, "extent has %d values, position %d", len(extent), len(t.position))
	}
	if len(extent) == 0 {
		extent = nil
	}
	t.extent = append([]float64(nil), extent...)
	t.touch()
	return nil
}

func (t *Tag) scrub(dead map[string]bool) bool {
	return t.scrubTag(dead)
}
