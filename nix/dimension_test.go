package nix_test

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/nixcore/nix"
)

func TestSampledDimension_IndexOf(t *testing.T) {
	_, b := newBlock(t)
	da := newArray(t, b, "trace", 100)
	dim, err := da.AppendSampledDimension(math.Pi)
	require.NoError(t, err)

	tests := []struct {
		pos  float64
		want int
		err  error
	}{
		{-1.14, 0, nil},
		{-3.14, 0, nix.ErrIndexOutOfRange},
		{3.14, 1, nil},
		{6.28, 2, nil},
		{4.28, 1, nil},
		{7.28, 2, nil},
	}
	for _, tt := range tests {
		got, err := dim.IndexOf(tt.pos)
		if tt.err != nil {
			assert.True(t, errors.Is(err, tt.err), "pos %v: %v", tt.pos, err)
			continue
		}
		require.NoError(t, err, "pos %v", tt.pos)
		assert.Equal(t, tt.want, got, "pos %v", tt.pos)
	}

	dim.SetOffset(1)
	got, err := dim.IndexOf(2.14)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestSampledDimension_PositionRoundTrip(t *testing.T) {
	_, b := newBlock(t)
	da := newArray(t, b, "trace", 50)
	dim, err := da.AppendSampledDimension(0.25)
	require.NoError(t, err)
	dim.SetOffset(-3)

	for i := 0; i < 50; i++ {
		idx, err := dim.IndexOf(dim.PositionAt(i))
		require.NoError(t, err)
		assert.Equal(t, dim.PositionAt(i), dim.PositionAt(idx))
	}

	axis, err := dim.Axis(3, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{-2.5, -2.25, -2}, axis)

	axis, err = dim.Axis(0, 0)
	require.NoError(t, err)
	assert.Empty(t, axis)
	_, err = dim.Axis(-1, 0)
	assert.True(t, errors.Is(err, nix.ErrIndexOutOfRange))
	_, err = dim.Axis(2, -1)
	assert.True(t, errors.Is(err, nix.ErrIndexOutOfRange))
}

func TestSampledDimension_Setters(t *testing.T) {
	_, b := newBlock(t)
	da := newArray(t, b, "trace", 10)

	_, err := da.AppendSampledDimension(0)
	assert.True(t, errors.Is(err, nix.ErrInvalidArgument))
	_, err = da.AppendSampledDimension(-1)
	assert.True(t, errors.Is(err, nix.ErrInvalidArgument))
	assert.Equal(t, 0, da.DimensionCount())

	dim, err := da.AppendSampledDimension(1)
	require.NoError(t, err)
	assert.Equal(t, 1, dim.Index())
	assert.Equal(t, nix.DimensionTypeSample, dim.DimensionType())

	assert.Error(t, dim.SetSamplingInterval(0))
	assert.Equal(t, 1.0, dim.SamplingInterval())

	require.NoError(t, dim.SetUnit("ms"))
	assert.Equal(t, "ms", dim.Unit())
	assert.Error(t, dim.SetUnit("mV*s"), "compound units are not allowed on dimensions")
	assert.Equal(t, "ms", dim.Unit())
	require.NoError(t, dim.SetUnit(""))
	assert.Empty(t, dim.Unit())

	dim.SetLabel("time")
	assert.Equal(t, "time", dim.Label())
}

func TestSampledDimension_PositionToIndexUnits(t *testing.T) {
	_, b := newBlock(t)
	da := newArray(t, b, "trace", 10)
	dim, err := da.AppendSampledDimension(1)
	require.NoError(t, err)

	// No unit on either side.
	idx, err := dim.PositionToIndex(3, "none")
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	_, err = dim.PositionToIndex(3, "ms")
	assert.True(t, errors.Is(err, nix.ErrUnitMismatch))

	require.NoError(t, dim.SetUnit("ms"))
	idx, err = dim.PositionToIndex(0.004, "s")
	require.NoError(t, err)
	assert.Equal(t, 4, idx)

	_, err = dim.PositionToIndex(1, "mV")
	assert.True(t, errors.Is(err, nix.ErrUnitMismatch))
}

func TestRangeDimension_IndexOf(t *testing.T) {
	_, b := newBlock(t)
	da := newArray(t, b, "trace", 5)
	dim, err := da.AppendRangeDimension([]float64{-100, -10, 0, 10, 100})
	require.NoError(t, err)

	tests := []struct {
		pos  float64
		want int
	}{
		{-100, 0},
		{-50, 1},
		{-70, 0},
		{5, 2},
		{257.28, 4},
		{-257.28, 0},
	}
	for _, tt := range tests {
		got, err := dim.IndexOf(tt.pos)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "pos %v", tt.pos)
	}

	for i := 0; i < 5; i++ {
		tick, err := dim.TickAt(i)
		require.NoError(t, err)
		idx, err := dim.PositionToIndex(tick, "")
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}

	_, err = dim.TickAt(10)
	assert.True(t, errors.Is(err, nix.ErrIndexOutOfRange))
}

func TestRangeDimension_Axis(t *testing.T) {
	_, b := newBlock(t)
	da := newArray(t, b, "trace", 5)
	dim, err := da.AppendRangeDimension([]float64{-100, -10, 0, 10, 100})
	require.NoError(t, err)

	axis, err := dim.Axis(2, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{-100, -10}, axis)

	axis, err = dim.Axis(2, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10}, axis)

	_, err = dim.Axis(10, 0)
	assert.True(t, errors.Is(err, nix.ErrIndexOutOfRange))
	_, err = dim.Axis(2, 10)
	assert.True(t, errors.Is(err, nix.ErrIndexOutOfRange))
}

func TestRangeDimension_Ticks(t *testing.T) {
	_, b := newBlock(t)
	da := newArray(t, b, "trace", 3)

	tests := []struct {
		name  string
		ticks []float64
	}{
		{"empty", nil},
		{"unordered", []float64{1, 3, 2}},
		{"duplicate", []float64{1, 2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := da.AppendRangeDimension(tt.ticks)
			assert.True(t, errors.Is(err, nix.ErrInvalidArgument))
		})
	}

	dim, err := da.AppendRangeDimension([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.Error(t, dim.SetTicks([]float64{3, 2, 1}))
	assert.Equal(t, []float64{1, 2, 3}, dim.Ticks())

	require.NoError(t, dim.SetTicks([]float64{0.5, 1.5, 2.5}))
	assert.Equal(t, []float64{0.5, 1.5, 2.5}, dim.Ticks())
	assert.False(t, dim.IsAlias())
}

func TestRangeDimension_PositionToIndexUnits(t *testing.T) {
	_, b := newBlock(t)
	da := newArray(t, b, "trace", 5)
	dim, err := da.AppendRangeDimension([]float64{1.2, 2.3, 3.4, 4.5, 6.7})
	require.NoError(t, err)
	require.NoError(t, dim.SetUnit("ms"))

	tests := []struct {
		pos  float64
		unit string
		want int
	}{
		{1.0, "ms", 0},
		{8.0, "ms", 4},
		{0.001, "s", 0},
		{0.008, "s", 4},
		{3.4, "ms", 2},
		{3.6, "ms", 2},
		{4.0, "ms", 3},
		{0.0036, "s", 2},
	}
	for _, tt := range tests {
		got, err := dim.PositionToIndex(tt.pos, tt.unit)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v %s", tt.pos, tt.unit)
	}

	_, err = dim.PositionToIndex(1, "kV")
	assert.True(t, errors.Is(err, nix.ErrUnitMismatch))
}

func TestSetDimension_PositionToIndex(t *testing.T) {
	_, b := newBlock(t)
	da := newArray(t, b, "trace", 2)
	dim := da.AppendSetDimension()
	dim.SetLabels([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, dim.Labels())
	assert.Equal(t, nix.DimensionTypeSet, dim.DimensionType())

	_, err := dim.PositionToIndex(5.8, "none")
	assert.True(t, errors.Is(err, nix.ErrIndexOutOfRange))

	_, err = dim.PositionToIndex(0.5, "ms")
	assert.True(t, errors.Is(err, nix.ErrUnitMismatch))

	idx, err := dim.PositionToIndex(0.5, "none")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = dim.PositionToIndex(0.45, "")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestPositionToIndex_Dispatch(t *testing.T) {
	_, b := newBlock(t)
	da := newArray(t, b, "grid", 2, 10, 5)
	da.AppendSetDimension()
	_, err := da.AppendSampledDimension(1)
	require.NoError(t, err)
	_, err = da.AppendRangeDimension([]float64{1, 2, 3, 4, 5})
	require.NoError(t, err)

	positions := []float64{1.1, 4.1, 2.1}
	want := []int{1, 4, 1}
	for i, d := range da.Dimensions() {
		idx, err := nix.PositionToIndex(positions[i], "", d)
		require.NoError(t, err)
		assert.Equal(t, want[i], idx, "dimension %d", d.Index())
	}

	_, err = nix.PositionToIndex(1, "", nil)
	assert.True(t, errors.Is(err, nix.ErrInvalidArgument))
}

func TestDataArray_Dimensions(t *testing.T) {
	_, b := newBlock(t)
	da := newArray(t, b, "grid", 2, 3, 4)

	da.AppendSetDimension()
	_, err := da.AppendSampledDimension(1)
	require.NoError(t, err)
	_, err = da.AppendRangeDimension([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 3, da.DimensionCount())

	for i, d := range da.Dimensions() {
		assert.Equal(t, i+1, d.Index())
	}

	// Replace the second descriptor in place.
	sd, err := da.CreateSetDimension(2)
	require.NoError(t, err)
	assert.Equal(t, 2, sd.Index())
	d, err := da.Dimension(2)
	require.NoError(t, err)
	assert.Equal(t, nix.DimensionTypeSet, d.DimensionType())

	// Append through the create call.
	_, err = da.CreateSampledDimension(4, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 4, da.DimensionCount())

	_, err = da.CreateSampledDimension(6, 0.5)
	assert.True(t, errors.Is(err, nix.ErrIndexOutOfRange))
	_, err = da.Dimension(0)
	assert.True(t, errors.Is(err, nix.ErrIndexOutOfRange))

	// Deleting renumbers the later axes.
	last, err := da.Dimension(4)
	require.NoError(t, err)
	assert.True(t, da.DeleteDimension(1))
	assert.Equal(t, 3, da.DimensionCount())
	assert.Equal(t, 3, last.Index())
	assert.Equal(t, 1, sd.Index())
	assert.False(t, da.DeleteDimension(5))

	assert.True(t, da.DeleteDimensions())
	assert.Equal(t, 0, da.DimensionCount())
	assert.Equal(t, 0, sd.Index())
	assert.False(t, da.DeleteDimensions())
}

func TestAliasRangeDimension(t *testing.T) {
	_, b := newBlock(t)
	da := newArray(t, b, "time", 5)
	require.NoError(t, da.SetData([]float64{0, 1, 2, 3, 4}, nix.NDSize{5}))
	require.NoError(t, da.SetUnit("ms"))
	da.SetLabel("time")

	dim, err := da.AppendAliasRangeDimension()
	require.NoError(t, err)
	assert.True(t, dim.IsAlias())
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, dim.Ticks())
	assert.Equal(t, "ms", dim.Unit())
	assert.Equal(t, "time", dim.Label())

	_, err = da.AppendAliasRangeDimension()
	assert.True(t, errors.Is(err, nix.ErrInvalidArgument), "only one alias per array")

	// Writes go through to the array.
	require.NoError(t, dim.SetUnit("s"))
	assert.Equal(t, "s", da.Unit())
	dim.SetLabel("duration")
	assert.Equal(t, "duration", da.Label())

	require.NoError(t, dim.SetTicks([]float64{1, 2, 3, 4, 5, 6, 7}))
	assert.Equal(t, nix.NDSize{7}, da.DataExtent())
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7}, da.Data())

	// And reads see array writes.
	require.NoError(t, da.WriteRegion(nix.NDSize{0}, nix.NDSize{1}, []float64{-1}))
	tick, err := dim.TickAt(0)
	require.NoError(t, err)
	assert.Equal(t, -1.0, tick)
}

func TestAliasRangeDimension_Restrictions(t *testing.T) {
	_, b := newBlock(t)

	flags, err := b.CreateDataArray("flags", "mask", nix.DataTypeBool, nix.NDSize{4})
	require.NoError(t, err)
	_, err = flags.AppendAliasRangeDimension()
	assert.True(t, errors.Is(err, nix.ErrInvalidArgument))

	grid := newArray(t, b, "grid", 2, 2)
	_, err = grid.AppendAliasRangeDimension()
	assert.True(t, errors.Is(err, nix.ErrInvalidArgument))
}

func TestAliasRangeDimension_KeepsRank(t *testing.T) {
	_, b := newBlock(t)
	da := newArray(t, b, "time", 4)
	require.NoError(t, da.SetData(ramp(4), nix.NDSize{4}))
	_, err := da.AppendAliasRangeDimension()
	require.NoError(t, err)

	assert.True(t, errors.Is(da.SetData(ramp(4), nix.NDSize{2, 2}), nix.ErrInvalidArgument))
	assert.True(t, errors.Is(da.SetDataExtent(nix.NDSize{2, 3}), nix.ErrInvalidArgument))
	assert.Equal(t, nix.NDSize{4}, da.DataExtent())
	assert.Equal(t, ramp(4), da.Data())

	require.NoError(t, da.SetDataExtent(nix.NDSize{6}))
	assert.Equal(t, nix.NDSize{6}, da.DataExtent())
	require.NoError(t, da.SetData(ramp(3), nix.NDSize{3}))
	assert.Equal(t, ramp(3), da.Data())

	// Without the alias the array may change rank again.
	require.True(t, da.DeleteDimensions())
	require.NoError(t, da.SetDataExtent(nix.NDSize{2, 3}))
}
