package nix

import (
	"github.com/cockroachdb/errors"
)

// regionFor converts a position and optional extent, given in the units
// returned by unitAt, into an offset and count inside da. Axes beyond the
// position are taken whole.
func regionFor(position, extent []float64, unitAt func(int) string, da *DataArray) (NDSize, NDSize, error) {
	shape := da.extent
	if len(position) > shape.Rank() {
		return nil, nil, errors.Wrapf(ErrInvalidArgument,
			"position has %d axes, data array %s has %d", len(position), da.name, shape.Rank())
	}
	if len(extent) > 0 && len(extent) != len(position) {
		return nil, nil, errors.Wrapf(ErrInvalidArgument,
			"extent has %d axes, position %d", len(extent), len(position))
	}

	offset := make(NDSize, shape.Rank())
	count := make(NDSize, shape.Rank())
	for i := range shape {
		if i >= len(position) {
			count[i] = shape[i]
			continue
		}
		dim, err := da.Dimension(i + 1)
		if err != nil {
			return nil, nil, errors.Mark(
				errors.Wrapf(err, "data array %s has no descriptor for axis %d", da.name, i+1),
				ErrInvalidArgument)
		}
		unit := unitAt(i)
		start, err := PositionToIndex(position[i], unit, dim)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "axis %d", i+1)
		}
		offset[i], count[i] = start, 1
		if len(extent) > 0 {
			end, err := PositionToIndex(position[i]+extent[i], unit, dim)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "axis %d", i+1)
			}
			if c := end - start; c > 1 {
				count[i] = c
			}
		}
	}
	return offset, count, nil
}

// OffsetAndCount returns the region of da selected by tag.
func OffsetAndCount(tag *Tag, da *DataArray) (offset, count NDSize, err error) {
	return regionFor(tag.position, tag.extent, tag.unitAt, da)
}

// MultiTagOffsetAndCount returns the region of da selected by row index of
// mt.
func MultiTagOffsetAndCount(mt *MultiTag, da *DataArray, index int) (offset, count NDSize, err error) {
	position, extent, err := mt.row(index)
	if err != nil {
		return nil, nil, err
	}
	return regionFor(position, extent, mt.unitAt, da)
}

// PositionInData reports whether offset addresses an element of da.
func PositionInData(da *DataArray, offset NDSize) bool {
	if offset.Rank() != da.extent.Rank() {
		return false
	}
	for i, o := range offset {
		if o < 0 || o >= da.extent[i] {
			return false
		}
	}
	return true
}

// PositionAndExtentInData reports whether the box (offset, count) lies inside
// da.
func PositionAndExtentInData(da *DataArray, offset, count NDSize) bool {
	return inBounds(da.extent, offset, count)
}

func viewOf(da *DataArray, offset, count NDSize) (*DataView, error) {
	if !PositionAndExtentInData(da, offset, count) {
		return nil, errors.Wrapf(ErrOutOfBounds,
			"offset %v count %v exceed extent %v of %s", offset, count, da.extent, da.name)
	}
	return &DataView{array: da, offset: offset, count: count}, nil
}

func wholeView(da *DataArray) *DataView {
	return &DataView{array: da, offset: make(NDSize, da.extent.Rank()), count: da.extent.Clone()}
}

// RetrieveData returns the region of reference refIndex selected by tag.
func RetrieveData(tag *Tag, refIndex int) (*DataView, error) {
	da, err := tag.referenceAt(refIndex)
	if err != nil {
		return nil, err
	}
	offset, count, err := OffsetAndCount(tag, da)
	if err != nil {
		return nil, err
	}
	return viewOf(da, offset, count)
}

// RetrieveMultiTagData returns the region of reference refIndex selected by
// row posIndex of mt.
func RetrieveMultiTagData(mt *MultiTag, posIndex, refIndex int) (*DataView, error) {
	da, err := mt.referenceAt(refIndex)
	if err != nil {
		return nil, err
	}
	offset, count, err := MultiTagOffsetAndCount(mt, da, posIndex)
	if err != nil {
		return nil, err
	}
	return viewOf(da, offset, count)
}

func featureData(ft *Feature) (*DataArray, error) {
	da := ft.Data()
	if da == nil {
		return nil, errors.Wrapf(ErrDanglingReference, "feature %s has no data", ft.id)
	}
	return da, nil
}

// RetrieveFeatureData returns the data of feature featIndex of tag. Tagged
// features are cut to the tag region; untagged and indexed features are
// returned whole.
func RetrieveFeatureData(tag *Tag, featIndex int) (*DataView, error) {
	ft, err := tag.featureAt(featIndex)
	if err != nil {
		return nil, err
	}
	da, err := featureData(ft)
	if err != nil {
		return nil, err
	}
	if ft.linkType != LinkTagged {
		return wholeView(da), nil
	}
	offset, count, err := OffsetAndCount(tag, da)
	if err != nil {
		return nil, err
	}
	return viewOf(da, offset, count)
}

// RetrieveMultiTagFeatureData returns the data of feature featIndex of mt
// for row posIndex. Tagged features are cut to the row's region, indexed
// features to their row posIndex and untagged features are returned whole.
func RetrieveMultiTagFeatureData(mt *MultiTag, posIndex, featIndex int) (*DataView, error) {
	ft, err := mt.featureAt(featIndex)
	if err != nil {
		return nil, err
	}
	da, err := featureData(ft)
	if err != nil {
		return nil, err
	}
	position, extent, err := mt.row(posIndex)
	if err != nil {
		return nil, err
	}

	switch ft.linkType {
	case LinkTagged:
		offset, count, err := regionFor(position, extent, mt.unitAt, da)
		if err != nil {
			return nil, err
		}
		return viewOf(da, offset, count)
	case LinkIndexed:
		if da.extent.Rank() == 0 || posIndex >= da.extent[0] {
			return nil, errors.Wrapf(ErrIndexOutOfRange,
				"row %d of feature data %s with extent %v", posIndex, da.name, da.extent)
		}
		offset := make(NDSize, da.extent.Rank())
		count := da.extent.Clone()
		offset[0], count[0] = posIndex, 1
		return viewOf(da, offset, count)
	}
	return wholeView(da), nil
}
