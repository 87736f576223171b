package nix

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/jacentio/nixcore/units"
)

// DimensionType is the kind of axis descriptor.
type DimensionType int

// Dimension types.
const (
	DimensionTypeSample DimensionType = iota + 1
	DimensionTypeSet
	DimensionTypeRange
)

func (t DimensionType) String() string {
	switch t {
	case DimensionTypeSample:
		return "sample"
	case DimensionTypeSet:
		return "set"
	case DimensionTypeRange:
		return "range"
	}
	return "unknown"
}

// Dimension describes one axis of a DataArray. It is implemented by
// *SampledDimension, *RangeDimension and *SetDimension only.
type Dimension interface {
	// Index returns the 1-based axis of the dimension in its array, 0 once
	// it was removed.
	Index() int
	DimensionType() DimensionType

	owner() *DataArray
}

type dimensionBase struct {
	array *DataArray
}

func (d *dimensionBase) owner() *DataArray {
	return d.array
}

func (d *dimensionBase) indexOf(self Dimension) int {
	if d.array == nil {
		return 0
	}
	for i, dim := range d.array.dims {
		if dim == self {
			return i + 1
		}
	}
	return 0
}

func (d *dimensionBase) touch() {
	if d.array != nil {
		d.array.touch()
	}
}

// PositionToIndex converts a position given in unit into an index along dim.
func PositionToIndex(pos float64, unit string, dim Dimension) (int, error) {
	switch d := dim.(type) {
	case *SampledDimension:
		return d.PositionToIndex(pos, unit)
	case *RangeDimension:
		return d.PositionToIndex(pos, unit)
	case *SetDimension:
		return d.PositionToIndex(pos, unit)
	case nil:
		return 0, errors.Wrap(ErrInvalidArgument, "no dimension descriptor")
	}
	return 0, errors.Wrapf(ErrInvalidArgument, "unsupported dimension %T", dim)
}

// isNoUnit reports whether u stands for "no unit".
func isNoUnit(u string) bool {
	return u == "" || u == "none"
}

// positionScaling returns the factor converting a position in unit to the
// dimension unit dimUnit.
func positionScaling(unit, dimUnit string) (float64, error) {
	unit = units.Sanitize(unit)
	if isNoUnit(unit) {
		return 1, nil
	}
	if dimUnit == "" {
		return 0, errors.Wrapf(ErrUnitMismatch, "position has unit %q but the dimension has none", unit)
	}
	return units.Scaling(unit, dimUnit)
}

// SampledDimension is a regularly sampled axis: position = offset + index *
// interval.
type SampledDimension struct {
	dimensionBase
	interval float64
	offset   float64
	unit     string
	label    string
}

// Index returns the 1-based axis of the dimension.
func (d *SampledDimension) Index() int { return d.indexOf(d) }

// DimensionType returns DimensionTypeSample.
func (d *SampledDimension) DimensionType() DimensionType { return DimensionTypeSample }

func checkInterval(interval float64) error {
	if !(interval > 0) || math.IsInf(interval, 0) {
		return errors.Wrapf(ErrInvalidArgument, "sampling interval %v must be positive", interval)
	}
	return nil
}

// SamplingInterval returns the distance between two samples.
func (d *SampledDimension) SamplingInterval() float64 {
	return d.interval
}

// SetSamplingInterval replaces the sampling interval, which must be
// positive.
func (d *SampledDimension) SetSamplingInterval(interval float64) error {
	if err := checkInterval(interval); err != nil {
		return err
	}
	d.interval = interval
	d.touch()
	return nil
}

// Offset returns the position of index 0.
func (d *SampledDimension) Offset() float64 {
	return d.offset
}

// SetOffset replaces the offset.
func (d *SampledDimension) SetOffset(offset float64) {
	d.offset = offset
	d.touch()
}

// Unit returns the unit, "" when unset.
func (d *SampledDimension) Unit() string {
	return d.unit
}

// SetUnit replaces the unit with an atomic SI unit; "" removes it.
func (d *SampledDimension) SetUnit(unit string) error {
	u, err := checkUnit(unit, true)
	if err != nil {
		return errors.Wrap(err, "set dimension unit")
	}
	d.unit = u
	d.touch()
	return nil
}

// Label returns the axis label.
func (d *SampledDimension) Label() string {
	return d.label
}

// SetLabel replaces the axis label.
func (d *SampledDimension) SetLabel(label string) {
	d.label = label
	d.touch()
}

// IndexOf returns the index of the sample nearest to pos, given in the
// dimension unit.
func (d *SampledDimension) IndexOf(pos float64) (int, error) {
	idx := math.Round((pos - d.offset) / d.interval)
	if idx < 0 {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "position %v is before the first sample", pos)
	}
	return int(idx), nil
}

// PositionAt returns the position of sample i.
func (d *SampledDimension) PositionAt(i int) float64 {
	return d.offset + float64(i)*d.interval
}

// Axis returns the positions of count samples starting at index start.
func (d *SampledDimension) Axis(count, start int) ([]float64, error) {
	if count < 0 || start < 0 {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "axis of %d samples from %d", count, start)
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = d.PositionAt(start + i)
	}
	return out, nil
}

// PositionToIndex converts a position given in unit to an index.
func (d *SampledDimension) PositionToIndex(pos float64, unit string) (int, error) {
	scale, err := positionScaling(unit, d.unit)
	if err != nil {
		return 0, err
	}
	return d.IndexOf(pos * scale)
}

// SetDimension is an axis of categories.
type SetDimension struct {
	dimensionBase
	labels []string
}

// Index returns the 1-based axis of the dimension.
func (d *SetDimension) Index() int { return d.indexOf(d) }

// DimensionType returns DimensionTypeSet.
func (d *SetDimension) DimensionType() DimensionType { return DimensionTypeSet }

// Labels returns the category labels.
func (d *SetDimension) Labels() []string {
	return append([]string(nil), d.labels...)
}

// SetLabels replaces the category labels; nil removes them.
func (d *SetDimension) SetLabels(labels []string) {
	d.labels = append([]string(nil), labels...)
	d.touch()
}

// PositionToIndex rounds pos to a category index. Set dimensions carry no
// unit.
func (d *SetDimension) PositionToIndex(pos float64, unit string) (int, error) {
	if u := units.Sanitize(unit); !isNoUnit(u) {
		return 0, errors.Wrapf(ErrUnitMismatch, "set dimensions have no unit, got %q", u)
	}
	idx := math.Round(pos)
	if idx < 0 {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "position %v is negative", pos)
	}
	if len(d.labels) > 0 && int(idx) >= len(d.labels) {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "position %v is beyond %d labels", pos, len(d.labels))
	}
	return int(idx), nil
}

// RangeDimension is an irregularly sampled axis described by ascending
// ticks. An alias range dimension reads its ticks, unit and label from the
// owning array.
type RangeDimension struct {
	dimensionBase
	ticks []float64
	unit  string
	label string
	alias bool
}

// Index returns the 1-based axis of the dimension.
func (d *RangeDimension) Index() int { return d.indexOf(d) }

// DimensionType returns DimensionTypeRange.
func (d *RangeDimension) DimensionType() DimensionType { return DimensionTypeRange }

// IsAlias reports whether the ticks are the owning array's data.
func (d *RangeDimension) IsAlias() bool {
	return d.alias
}

func checkTicks(ticks []float64) error {
	if len(ticks) == 0 {
		return errors.Wrap(ErrInvalidArgument, "ticks must not be empty")
	}
	for i := 1; i < len(ticks); i++ {
		if !(ticks[i] > ticks[i-1]) {
			return errors.Wrapf(ErrInvalidArgument, "ticks must be strictly ascending at %d", i)
		}
	}
	return nil
}

func (d *RangeDimension) tickSlice() []float64 {
	if d.alias {
		return d.array.data
	}
	return d.ticks
}

// Ticks returns a copy of the ticks.
func (d *RangeDimension) Ticks() []float64 {
	return append([]float64(nil), d.tickSlice()...)
}

// SetTicks replaces the ticks, which must be non-empty and strictly
// ascending. On an alias dimension the array is resized to hold them.
func (d *RangeDimension) SetTicks(ticks []float64) error {
	if err := checkTicks(ticks); err != nil {
		return err
	}
	if d.alias {
		d.array.extent = NDSize{len(ticks)}
		d.array.data = append([]float64(nil), ticks...)
	} else {
		d.ticks = append([]float64(nil), ticks...)
	}
	d.touch()
	return nil
}

// Unit returns the unit, "" when unset.
func (d *RangeDimension) Unit() string {
	if d.alias {
		return d.array.unit
	}
	return d.unit
}

// SetUnit replaces the unit with an atomic SI unit; "" removes it.
func (d *RangeDimension) SetUnit(unit string) error {
	u, err := checkUnit(unit, true)
	if err != nil {
		return errors.Wrap(err, "set dimension unit")
	}
	if d.alias {
		d.array.unit = u
	} else {
		d.unit = u
	}
	d.touch()
	return nil
}

// Label returns the axis label.
func (d *RangeDimension) Label() string {
	if d.alias {
		return d.array.label
	}
	return d.label
}

// SetLabel replaces the axis label.
func (d *RangeDimension) SetLabel(label string) {
	if d.alias {
		d.array.label = label
	} else {
		d.label = label
	}
	d.touch()
}

// TickAt returns tick i.
func (d *RangeDimension) TickAt(i int) (float64, error) {
	ticks := d.tickSlice()
	if i < 0 || i >= len(ticks) {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "tick %d of %d", i, len(ticks))
	}
	return ticks[i], nil
}

// Axis returns count ticks starting at index start.
func (d *RangeDimension) Axis(count, start int) ([]float64, error) {
	ticks := d.tickSlice()
	if count < 0 || start < 0 || start+count > len(ticks) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "axis [%d, %d) of %d ticks", start, start+count, len(ticks))
	}
	return append([]float64(nil), ticks[start:start+count]...), nil
}

// IndexOf returns the index of the tick nearest to pos, given in the
// dimension unit. Positions outside the ticks clamp to the first or last
// index and ties go to the lower index.
func (d *RangeDimension) IndexOf(pos float64) (int, error) {
	ticks := d.tickSlice()
	if len(ticks) == 0 {
		return 0, errors.Wrap(ErrInvalidArgument, "range dimension has no ticks")
	}
	i := sort.SearchFloat64s(ticks, pos)
	switch {
	case i == 0:
		return 0, nil
	case i == len(ticks):
		return len(ticks) - 1, nil
	case ticks[i] == pos:
		return i, nil
	}
	if pos-ticks[i-1] <= ticks[i]-pos {
		return i - 1, nil
	}
	return i, nil
}

// PositionToIndex converts a position given in unit to an index.
func (d *RangeDimension) PositionToIndex(pos float64, unit string) (int, error) {
	scale, err := positionScaling(unit, d.Unit())
	if err != nil {
		return 0, err
	}
	return d.IndexOf(pos * scale)
}
