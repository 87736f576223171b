package nix

// NDSize is an ordered sequence of non-negative per-axis extents, offsets or
// counts.
type NDSize []int

// Rank returns the number of axes.
func (s NDSize) Rank() int {
	return len(s)
}

// Size returns the number of elements spanned by s. It is 0 for rank 0.
func (s NDSize) Size() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, v := range s {
		n *= v
	}
	return n
}

// Equal reports whether s and o have the same rank and values.
func (s NDSize) Equal(o NDSize) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of s.
func (s NDSize) Clone() NDSize {
	if s == nil {
		return nil
	}
	return append(NDSize(nil), s...)
}

// strides returns row-major element strides.
func (s NDSize) strides() []int {
	st := make([]int, len(s))
	acc := 1
	for i := len(s) - 1; i >= 0; i-- {
		st[i] = acc
		acc *= s[i]
	}
	return st
}

// forEachIndex calls fn with the flat row-major index of every element of the
// box (offset, count) inside shape, in row-major order.
func forEachIndex(shape, offset, count NDSize, fn func(flat int)) {
	rank := len(shape)
	if rank == 0 || count.Size() == 0 {
		return
	}
	strides := shape.strides()
	idx := make([]int, rank)
	for {
		flat := 0
		for i := range idx {
			flat += (offset[i] + idx[i]) * strides[i]
		}
		fn(flat)

		i := rank - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < count[i] {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return
		}
	}
}

// inBounds reports whether offset+count fits inside shape.
func inBounds(shape, offset, count NDSize) bool {
	if len(offset) != len(shape) || len(count) != len(shape) {
		return false
	}
	for i := range shape {
		if offset[i] < 0 || count[i] < 0 || offset[i]+count[i] > shape[i] {
			return false
		}
	}
	return true
}
