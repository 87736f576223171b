package nix_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jacentio/nixcore/nix"
)

func newBlock(t *testing.T) (*nix.File, *nix.Block) {
	t.Helper()
	f := nix.NewFile()
	b, err := f.CreateBlock("session", "recording")
	require.NoError(t, err)
	return f, b
}

func newArray(t *testing.T, b *nix.Block, name string, extent ...int) *nix.DataArray {
	t.Helper()
	da, err := b.CreateDataArray(name, "signal", nix.DataTypeDouble, nix.NDSize(extent))
	require.NoError(t, err)
	return da
}

// ramp returns 0, 1, ..., n-1.
func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}
