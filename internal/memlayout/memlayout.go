// Package memlayout describes the shape of multi-dimensional memory regions
// and converts between logical coordinates and physical linear offsets.
package memlayout

import (
	"fmt"
	"strings"
)

// MemoryLayout is a value object describing one shaped region: the extents
// actually used per dimension, the allocated extents including padding, the
// leading padding per dimension, and the mapping from logical dimensions to
// physical (memory) positions.
type MemoryLayout struct {
	activeSize []int // logical extents in use, logical order
	extent     []int // allocated extents including padding, logical order
	offset     []int // leading padding per dimension, logical order
	order      []int // order[i] = logical dimension at physical position i
	increment  []int // physical stride per logical dimension
}

// New returns an unpadded layout with identity dimension order.
func New(sizes ...int) MemoryLayout {
	n := len(sizes)
	active := append([]int(nil), sizes...)
	extent := append([]int(nil), sizes...)
	offset := make([]int, n)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	m := MemoryLayout{
		activeSize: active,
		extent:     extent,
		offset:     offset,
		order:      order,
	}
	m.increment = m.computeIncrements()
	return m
}

// NewPadded returns a layout with identity order where each dimension may
// carry leading padding. Requires offset[d]+size[d] <= extent[d] per dimension.
func NewPadded(sizes, extents, offsets []int) (MemoryLayout, error) {
	if len(sizes) != len(extents) || len(sizes) != len(offsets) {
		return MemoryLayout{}, fmt.Errorf("memlayout: rank mismatch: %d sizes, %d extents, %d offsets", len(sizes), len(extents), len(offsets))
	}
	for d := range sizes {
		if sizes[d] < 0 || offsets[d] < 0 {
			return MemoryLayout{}, fmt.Errorf("memlayout: negative size or offset in dimension %d", d)
		}
		if offsets[d]+sizes[d] > extents[d] {
			return MemoryLayout{}, fmt.Errorf("memlayout: dimension %d: offset %d + size %d exceeds extent %d", d, offsets[d], sizes[d], extents[d])
		}
	}
	order := make([]int, len(sizes))
	for i := range order {
		order[i] = i
	}
	m := MemoryLayout{
		activeSize: append([]int(nil), sizes...),
		extent:     append([]int(nil), extents...),
		offset:     append([]int(nil), offsets...),
		order:      order,
	}
	m.increment = m.computeIncrements()
	return m, nil
}

// NewOrdered returns an unpadded layout whose memory order is given
// explicitly: order[i] names the logical dimension stored at physical
// position i. The order must be a permutation of the dimension indices.
func NewOrdered(sizes, order []int) (MemoryLayout, error) {
	if len(sizes) != len(order) {
		return MemoryLayout{}, fmt.Errorf("memlayout: rank mismatch: %d sizes, %d order entries", len(sizes), len(order))
	}
	seen := make([]bool, len(order))
	for _, d := range order {
		if d < 0 || d >= len(order) || seen[d] {
			return MemoryLayout{}, fmt.Errorf("memlayout: order %v is not a permutation", order)
		}
		seen[d] = true
	}
	m := MemoryLayout{
		activeSize: append([]int(nil), sizes...),
		extent:     append([]int(nil), sizes...),
		offset:     make([]int, len(sizes)),
		order:      append([]int(nil), order...),
	}
	m.increment = m.computeIncrements()
	return m, nil
}

// Scalar returns the canonical single-entry layout used by scalar values.
func Scalar() MemoryLayout {
	return New(1)
}

// computeIncrements derives the per-logical-dimension stride: the stride at
// physical position i is the product of the extents at positions i+1..n-1.
func (m MemoryLayout) computeIncrements() []int {
	n := len(m.activeSize)
	physStride := make([]int, n)
	stride := 1
	for i := n - 1; i >= 0; i-- {
		physStride[i] = stride
		stride *= m.extent[m.order[i]]
	}
	increment := make([]int, n)
	for i, logical := range m.order {
		increment[logical] = physStride[i]
	}
	return increment
}

// Rank returns the number of dimensions.
func (m MemoryLayout) Rank() int { return len(m.activeSize) }

// ActiveSize returns the in-use extents per logical dimension.
func (m MemoryLayout) ActiveSize() []int { return append([]int(nil), m.activeSize...) }

// Extent returns the allocated extents per logical dimension.
func (m MemoryLayout) Extent() []int { return append([]int(nil), m.extent...) }

// Offset returns the leading padding per logical dimension.
func (m MemoryLayout) Offset() []int { return append([]int(nil), m.offset...) }

// Order returns the logical dimension stored at each physical position.
func (m MemoryLayout) Order() []int { return append([]int(nil), m.order...) }

// NumElements returns the number of active entries.
func (m MemoryLayout) NumElements() int {
	n := 1
	for _, s := range m.activeSize {
		n *= s
	}
	return n
}

// MemorySize returns the total number of allocated entries, padding included.
func (m MemoryLayout) MemorySize() int {
	n := 1
	for _, e := range m.extent {
		n *= e
	}
	return n
}

// IsContiguous reports whether the active region covers the allocation with
// identity order, enabling whole-region copies.
func (m MemoryLayout) IsContiguous() bool {
	for d := range m.activeSize {
		if m.offset[d] != 0 || m.activeSize[d] != m.extent[d] {
			return false
		}
		if m.order[d] != d {
			return false
		}
	}
	return true
}

// PhysicalActiveSize returns the active extents permuted into memory order;
// this is the bound vector for coordinate iteration.
func (m MemoryLayout) PhysicalActiveSize() []int {
	out := make([]int, len(m.order))
	for i, logical := range m.order {
		out[i] = m.activeSize[logical]
	}
	return out
}

// LogicalCoordinates reorders a physical coordinate (memory order) into
// logical dimension order.
func (m MemoryLayout) LogicalCoordinates(physical []int) ([]int, error) {
	if len(physical) != len(m.order) {
		return nil, fmt.Errorf("memlayout: coordinate rank %d does not match layout rank %d", len(physical), len(m.order))
	}
	logical := make([]int, len(physical))
	for i, d := range m.order {
		logical[d] = physical[i]
	}
	return logical, nil
}

// LogicalEntryOffset returns the physical linear offset of a logical
// coordinate, accounting for order, padding offsets and strides.
func (m MemoryLayout) LogicalEntryOffset(logical []int) (int, error) {
	if len(logical) != len(m.activeSize) {
		return 0, fmt.Errorf("memlayout: coordinate rank %d does not match layout rank %d", len(logical), len(m.activeSize))
	}
	off := 0
	for d, c := range logical {
		if c < 0 || c >= m.activeSize[d] {
			return 0, fmt.Errorf("memlayout: coordinate %d out of range [0,%d) in dimension %d", c, m.activeSize[d], d)
		}
		off += (c + m.offset[d]) * m.increment[d]
	}
	return off, nil
}

// EntryOffset returns the physical linear offset of a physical coordinate.
func (m MemoryLayout) EntryOffset(physical []int) (int, error) {
	logical, err := m.LogicalCoordinates(physical)
	if err != nil {
		return 0, err
	}
	return m.LogicalEntryOffset(logical)
}

// Equal reports structural equality of two layouts.
func (m MemoryLayout) Equal(other MemoryLayout) bool {
	return intsEqual(m.activeSize, other.activeSize) &&
		intsEqual(m.extent, other.extent) &&
		intsEqual(m.offset, other.offset) &&
		intsEqual(m.order, other.order)
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m MemoryLayout) String() string {
	var sb strings.Builder
	sb.WriteString("layout{active=")
	writeInts(&sb, m.activeSize)
	if !m.IsContiguous() {
		sb.WriteString(" extent=")
		writeInts(&sb, m.extent)
		sb.WriteString(" offset=")
		writeInts(&sb, m.offset)
		sb.WriteString(" order=")
		writeInts(&sb, m.order)
	}
	sb.WriteString("}")
	return sb.String()
}

func writeInts(sb *strings.Builder, xs []int) {
	sb.WriteString("[")
	for i, x := range xs {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(sb, "%d", x)
	}
	sb.WriteString("]")
}
