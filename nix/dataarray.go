package nix

import (
	"math"

	"github.com/cockroachdb/errors"
)

// DataArray is an N-dimensional numeric array with one dimension descriptor
// per axis. Data is kept row-major as float64; bool arrays store 0 and 1.
type DataArray struct {
	entityWithSources

	dataType DataType
	extent   NDSize
	data     []float64
	label    string
	unit     string

	expansionOrigin *float64
	coefficients    []float64

	dims []Dimension
}

func checkArrayType(dtype DataType) error {
	if !dtype.IsNumeric() && dtype != DataTypeBool {
		return errors.Wrapf(ErrInvalidArgument, "data arrays cannot hold %s", dtype)
	}
	return nil
}

func checkExtent(extent NDSize) error {
	for i, n := range extent {
		if n < 0 {
			return errors.Wrapf(ErrInvalidArgument, "extent %d of axis %d is negative", n, i)
		}
	}
	return nil
}

// DataType returns the element type.
func (da *DataArray) DataType() DataType {
	return da.dataType
}

// DataExtent returns the shape of the data.
func (da *DataArray) DataExtent() NDSize {
	return da.extent.Clone()
}

// checkReshape validates a new extent. An array whose data are the ticks
// of an alias range dimension stays rank 1.
func (da *DataArray) checkReshape(extent NDSize) error {
	if err := checkExtent(extent); err != nil {
		return err
	}
	if da.aliasDimension() != nil && extent.Rank() != 1 {
		return errors.Wrapf(ErrInvalidArgument, "alias range array cannot take extent %v", extent)
	}
	return nil
}

// SetDataExtent resizes the array. When the rank is unchanged the
// overlapping region keeps its values; otherwise the data is zeroed.
func (da *DataArray) SetDataExtent(extent NDSize) error {
	if err := da.checkReshape(extent); err != nil {
		return err
	}
	data := make([]float64, extent.Size())
	if extent.Rank() == da.extent.Rank() && extent.Rank() > 0 {
		overlap := make(NDSize, extent.Rank())
		for i := range overlap {
			overlap[i] = min(extent[i], da.extent[i])
		}
		zero := make(NDSize, extent.Rank())
		var src []float64
		forEachIndex(da.extent, zero, overlap, func(flat int) {
			src = append(src, da.data[flat])
		})
		i := 0
		forEachIndex(extent, zero, overlap, func(flat int) {
			data[flat] = src[i]
			i++
		})
	}
	da.extent = extent.Clone()
	da.data = data
	da.touch()
	return nil
}

// SetData replaces data and extent. len(values) must match extent.
func (da *DataArray) SetData(values []float64, extent NDSize) error {
	if err := da.checkReshape(extent); err != nil {
		return err
	}
	if len(values) != extent.Size() {
		return errors.Wrapf(ErrInvalidArgument, "%d values do not fill extent %v", len(values), extent)
	}
	da.extent = extent.Clone()
	da.data = append([]float64(nil), values...)
	da.touch()
	return nil
}

// Data returns a copy of all data in row-major order.
func (da *DataArray) Data() []float64 {
	return append([]float64(nil), da.data...)
}

// ReadRegion returns the values of the box (offset, count) in row-major
// order.
func (da *DataArray) ReadRegion(offset, count NDSize) ([]float64, error) {
	if !inBounds(da.extent, offset, count) {
		return nil, errors.Wrapf(ErrOutOfBounds, "offset %v count %v in extent %v", offset, count, da.extent)
	}
	out := make([]float64, 0, count.Size())
	forEachIndex(da.extent, offset, count, func(flat int) {
		out = append(out, da.data[flat])
	})
	return out, nil
}

// WriteRegion overwrites the box (offset, count) with values in row-major
// order.
func (da *DataArray) WriteRegion(offset, count NDSize, values []float64) error {
	if !inBounds(da.extent, offset, count) {
		return errors.Wrapf(ErrOutOfBounds, "offset %v count %v in extent %v", offset, count, da.extent)
	}
	if len(values) != count.Size() {
		return errors.Wrapf(ErrInvalidArgument, "%d values do not fill count %v", len(values), count)
	}
	i := 0
	forEachIndex(da.extent, offset, count, func(flat int) {
		da.data[flat] = values[i]
		i++
	})
	da.touch()
	return nil
}

// Label returns the label of the values.
func (da *DataArray) Label() string {
	return da.label
}

// SetLabel replaces the label; "" removes it.
func (da *DataArray) SetLabel(label string) {
	da.label = label
	da.touch()
}

// Unit returns the unit of the values, "" when unset.
func (da *DataArray) Unit() string {
	return da.unit
}

// SetUnit replaces the unit with a sanitized SI unit; "" removes it.
func (da *DataArray) SetUnit(unit string) error {
	u, err := checkUnit(unit, false)
	if err != nil {
		return errors.Wrap(err, "set data array unit")
	}
	da.unit = u
	da.touch()
	return nil
}

// ExpansionOrigin returns the calibration origin and whether it is set.
func (da *DataArray) ExpansionOrigin() (float64, bool) {
	if da.expansionOrigin == nil {
		return 0, false
	}
	return *da.expansionOrigin, true
}

// SetExpansionOrigin sets the calibration origin.
func (da *DataArray) SetExpansionOrigin(origin float64) {
	da.expansionOrigin = &origin
	da.touch()
}

// RemoveExpansionOrigin removes the calibration origin.
func (da *DataArray) RemoveExpansionOrigin() {
	da.expansionOrigin = nil
	da.touch()
}

// PolynomCoefficients returns the calibration polynomial, lowest order
// first.
func (da *DataArray) PolynomCoefficients() []float64 {
	return append([]float64(nil), da.coefficients...)
}

// SetPolynomCoefficients replaces the calibration polynomial; nil removes
// it.
func (da *DataArray) SetPolynomCoefficients(coefficients []float64) {
	da.coefficients = append([]float64(nil), coefficients...)
	da.touch()
}

// CalibratedData returns the data with the calibration applied: the
// polynomial evaluated at (value - origin), or value - origin without
// coefficients.
func (da *DataArray) CalibratedData() []float64 {
	origin, _ := da.ExpansionOrigin()
	out := make([]float64, len(da.data))
	for i, v := range da.data {
		x := v - origin
		if len(da.coefficients) == 0 {
			out[i] = x
			continue
		}
		sum := 0.0
		for k, c := range da.coefficients {
			sum += c * math.Pow(x, float64(k))
		}
		out[i] = sum
	}
	return out
}

// Dimensions returns the dimension descriptors in axis order.
func (da *DataArray) Dimensions() []Dimension {
	return append([]Dimension(nil), da.dims...)
}

// DimensionCount returns the number of dimension descriptors.
func (da *DataArray) DimensionCount() int {
	return len(da.dims)
}

// Dimension returns the descriptor of the 1-based axis index.
func (da *DataArray) Dimension(index int) (Dimension, error) {
	if index < 1 || index > len(da.dims) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "dimension %d of %d", index, len(da.dims))
	}
	return da.dims[index-1], nil
}

// AppendSampledDimension adds a sampled dimension as the last axis.
func (da *DataArray) AppendSampledDimension(interval float64) (*SampledDimension, error) {
	return da.CreateSampledDimension(len(da.dims)+1, interval)
}

// AppendRangeDimension adds a range dimension as the last axis.
func (da *DataArray) AppendRangeDimension(ticks []float64) (*RangeDimension, error) {
	return da.CreateRangeDimension(len(da.dims)+1, ticks)
}

// AppendSetDimension adds a set dimension as the last axis.
func (da *DataArray) AppendSetDimension() *SetDimension {
	d, _ := da.CreateSetDimension(len(da.dims) + 1)
	return d
}

// AppendAliasRangeDimension adds a range dimension whose ticks are the data
// of this array. The array must be numeric with rank 1 and carry no other
// dimension.
func (da *DataArray) AppendAliasRangeDimension() (*RangeDimension, error) {
	if !da.dataType.IsNumeric() {
		return nil, errors.Wrapf(ErrInvalidArgument, "alias range dimension on %s array", da.dataType)
	}
	if da.extent.Rank() != 1 {
		return nil, errors.Wrapf(ErrInvalidArgument, "alias range dimension on rank %d array", da.extent.Rank())
	}
	if len(da.dims) > 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "array already has a dimension")
	}
	d := &RangeDimension{dimensionBase: dimensionBase{array: da}, alias: true}
	da.dims = append(da.dims, d)
	da.touch()
	return d, nil
}

// CreateSampledDimension puts a sampled dimension at the 1-based index,
// replacing the descriptor there or appending at DimensionCount()+1.
func (da *DataArray) CreateSampledDimension(index int, interval float64) (*SampledDimension, error) {
	if err := checkInterval(interval); err != nil {
		return nil, err
	}
	d := &SampledDimension{interval: interval}
	if err := da.putDimension(index, d, &d.dimensionBase); err != nil {
		return nil, err
	}
	return d, nil
}

// CreateRangeDimension puts a range dimension at the 1-based index,
// replacing the descriptor there or appending at DimensionCount()+1.
func (da *DataArray) CreateRangeDimension(index int, ticks []float64) (*RangeDimension, error) {
	if err := checkTicks(ticks); err != nil {
		return nil, err
	}
	d := &RangeDimension{ticks: append([]float64(nil), ticks...)}
	if err := da.putDimension(index, d, &d.dimensionBase); err != nil {
		return nil, err
	}
	return d, nil
}

// CreateSetDimension puts a set dimension at the 1-based index, replacing
// the descriptor there or appending at DimensionCount()+1.
func (da *DataArray) CreateSetDimension(index int) (*SetDimension, error) {
	d := &SetDimension{}
	if err := da.putDimension(index, d, &d.dimensionBase); err != nil {
		return nil, err
	}
	return d, nil
}

func (da *DataArray) putDimension(index int, d Dimension, base *dimensionBase) error {
	if index < 1 || index > len(da.dims)+1 {
		return errors.Wrapf(ErrIndexOutOfRange, "dimension %d of %d", index, len(da.dims))
	}
	base.array = da
	if index == len(da.dims)+1 {
		da.dims = append(da.dims, d)
	} else {
		da.detach(da.dims[index-1])
		da.dims[index-1] = d
	}
	da.touch()
	return nil
}

// DeleteDimension removes the descriptor at the 1-based index. Later
// dimensions move down by one.
func (da *DataArray) DeleteDimension(index int) bool {
	if index < 1 || index > len(da.dims) {
		return false
	}
	da.detach(da.dims[index-1])
	da.dims = append(da.dims[:index-1], da.dims[index:]...)
	da.touch()
	return true
}

// DeleteDimensions removes all descriptors.
func (da *DataArray) DeleteDimensions() bool {
	if len(da.dims) == 0 {
		return false
	}
	for _, d := range da.dims {
		da.detach(d)
	}
	da.dims = nil
	da.touch()
	return true
}

// detach cuts a removed descriptor loose from the array. An alias keeps a
// snapshot of the ticks it used to share.
func (da *DataArray) detach(d Dimension) {
	switch d := d.(type) {
	case *SampledDimension:
		d.array = nil
	case *SetDimension:
		d.array = nil
	case *RangeDimension:
		if d.alias {
			d.ticks = append([]float64(nil), da.data...)
			d.unit = da.unit
			d.label = da.label
			d.alias = false
		}
		d.array = nil
	}
}

// aliasDimension returns the alias range dimension, nil when there is none.
func (da *DataArray) aliasDimension() *RangeDimension {
	for _, d := range da.dims {
		if rd, ok := d.(*RangeDimension); ok && rd.alias {
			return rd
		}
	}
	return nil
}

func (da *DataArray) ownedRecords() []record {
	return nil
}

func (da *DataArray) scrub(dead map[string]bool) bool {
	return da.scrubSources(dead)
}
