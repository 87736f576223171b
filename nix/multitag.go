package nix

import (
	"github.com/cockroachdb/errors"
)

// MultiTag marks many regions of interest at once. Row i of the positions
// array (and of the optional extents array) describes region i.
type MultiTag struct {
	baseTag

	positions string
	extents   string
}

// Positions returns the positions array, nil when it was deleted.
func (mt *MultiTag) Positions() *DataArray {
	da, _ := mt.file.index[mt.positions].(*DataArray)
	return da
}

// SetPositions replaces the positions array with one of the same block.
func (mt *MultiTag) SetPositions(da *DataArray) error {
	if err := checkBlockMember(mt.block, da); err != nil {
		return errors.Wrap(err, "set positions")
	}
	mt.positions = da.id
	mt.touch()
	return nil
}

// Extents returns the extents array, nil when unset or deleted.
func (mt *MultiTag) Extents() *DataArray {
	da, _ := mt.file.index[mt.extents].(*DataArray)
	return da
}

// SetExtents replaces the extents array with one of the same block.
func (mt *MultiTag) SetExtents(da *DataArray) error {
	if err := checkBlockMember(mt.block, da); err != nil {
		return errors.Wrap(err, "set extents")
	}
	mt.extents = da.id
	mt.touch()
	return nil
}

// RemoveExtents unlinks the extents array.
func (mt *MultiTag) RemoveExtents() {
	if mt.extents == "" {
		return
	}
	mt.extents = ""
	mt.touch()
}

// row returns the position and extent of region index. The extent is nil
// when the multi-tag has no extents.
func (mt *MultiTag) row(index int) (position, extent []float64, err error) {
	pos := mt.Positions()
	if pos == nil {
		return nil, nil, errors.Wrapf(ErrDanglingReference, "multi-tag %s has no positions", mt.id)
	}
	position, err = readRow(pos, index)
	if err != nil {
		return nil, nil, errors.Wrap(err, "positions")
	}
	if ext := mt.Extents(); ext != nil {
		if !ext.extent.Equal(pos.extent) {
			return nil, nil, errors.Wrapf(ErrInvalidArgument, "extents shape %v differs from positions shape %v", ext.extent, pos.extent)
		}
		if extent, err = readRow(ext, index); err != nil {
			return nil, nil, errors.Wrap(err, "extents")
		}
	}
	return position, extent, nil
}

// readRow reads row index of a rank 1 or rank 2 array. Rank 1 arrays hold
// one scalar per row.
func readRow(da *DataArray, index int) ([]float64, error) {
	shape := da.extent
	if shape.Rank() < 1 || shape.Rank() > 2 {
		return nil, errors.Wrapf(ErrInvalidArgument, "rank %d, want 1 or 2", shape.Rank())
	}
	if index < 0 || index >= shape[0] {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "row %d of %d", index, shape[0])
	}
	offset := make(NDSize, shape.Rank())
	count := make(NDSize, shape.Rank())
	offset[0], count[0] = index, 1
	if shape.Rank() == 2 {
		count[1] = shape[1]
	}
	return da.ReadRegion(offset, count)
}

func (mt *MultiTag) scrub(dead map[string]bool) bool {
	changed := mt.scrubTag(dead)
	if mt.positions != "" && dead[mt.positions] {
		mt.positions = ""
		changed = true
	}
	if mt.extents != "" && dead[mt.extents] {
		mt.extents = ""
		changed = true
	}
	return changed
}
