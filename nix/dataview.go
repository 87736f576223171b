package nix

import (
	"github.com/cockroachdb/errors"
)

// DataView is a window onto a region of a DataArray. It reads and writes the
// live array, so changes through either side are visible to the other.
type DataView struct {
	array  *DataArray
	offset NDSize
	count  NDSize
}

// NewDataView returns a view of the box (offset, count) of da.
func NewDataView(da *DataArray, offset, count NDSize) (*DataView, error) {
	return viewOf(da, offset.Clone(), count.Clone())
}

// Array returns the viewed array.
func (v *DataView) Array() *DataArray {
	return v.array
}

// DataType returns the element type of the viewed array.
func (v *DataView) DataType() DataType {
	return v.array.dataType
}

// DataExtent returns the shape of the view.
func (v *DataView) DataExtent() NDSize {
	return v.count.Clone()
}

// Offset returns the position of the view inside the array.
func (v *DataView) Offset() NDSize {
	return v.offset.Clone()
}

// Read returns the values of the view in row-major order.
func (v *DataView) Read() ([]float64, error) {
	return v.array.ReadRegion(v.offset, v.count)
}

// Get returns the value at index, relative to the view.
func (v *DataView) Get(index NDSize) (float64, error) {
	if index.Rank() == 0 || index.Rank() != v.count.Rank() {
		return 0, errors.Wrapf(ErrInvalidArgument, "index rank %d, view rank %d", index.Rank(), v.count.Rank())
	}
	abs := make(NDSize, len(index))
	one := make(NDSize, len(index))
	for i, n := range index {
		if n < 0 || n >= v.count[i] {
			return 0, errors.Wrapf(ErrIndexOutOfRange, "index %v in view of %v", index, v.count)
		}
		abs[i] = v.offset[i] + n
		one[i] = 1
	}
	vals, err := v.array.ReadRegion(abs, one)
	if err != nil {
		return 0, err
	}
	return vals[0], nil
}

// Write overwrites the view with values in row-major order.
func (v *DataView) Write(values []float64) error {
	return v.array.WriteRegion(v.offset, v.count, values)
}
