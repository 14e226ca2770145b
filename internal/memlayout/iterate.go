package memlayout

// Increment advances coordinate as a multi-radix counter bounded by bounds,
// last dimension fastest. It returns false when the counter wraps back to
// all zeros, which terminates a full pass. Carry propagation is iterative so
// high-rank layouts cannot exhaust the stack.
func Increment(coordinate, bounds []int) bool {
	for d := len(bounds) - 1; d >= 0; d-- {
		coordinate[d]++
		if coordinate[d] < bounds[d] {
			return true
		}
		coordinate[d] = 0
	}
	return false
}

// Iterator enumerates every active coordinate of a layout exactly once in
// deterministic order. A fresh iterator starts at the zero coordinate; the
// sequence is finite and restartable via Reset.
type Iterator struct {
	layout   MemoryLayout
	bounds   []int
	physical []int
	done     bool
	started  bool
}

// Coordinates returns an iterator over the layout's active coordinates.
func (m MemoryLayout) Coordinates() *Iterator {
	it := &Iterator{
		layout:   m,
		bounds:   m.PhysicalActiveSize(),
		physical: make([]int, m.Rank()),
	}
	for _, b := range it.bounds {
		if b == 0 {
			it.done = true
		}
	}
	return it
}

// Next returns the next logical coordinate, or false when the pass is over.
// The returned slice is owned by the caller.
func (it *Iterator) Next() ([]int, bool) {
	if it.done {
		return nil, false
	}
	if it.started {
		if !Increment(it.physical, it.bounds) {
			it.done = true
			return nil, false
		}
	}
	it.started = true
	logical, err := it.layout.LogicalCoordinates(it.physical)
	if err != nil {
		it.done = true
		return nil, false
	}
	return logical, true
}

// Reset rewinds the iterator to the zero coordinate.
func (it *Iterator) Reset() {
	for d := range it.physical {
		it.physical[d] = 0
	}
	it.started = false
	it.done = false
	for _, b := range it.bounds {
		if b == 0 {
			it.done = true
		}
	}
}
