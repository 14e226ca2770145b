package memlayout

import "testing"

func TestNewComputesRowMajorStrides(t *testing.T) {
	m := New(3, 4)
	if m.Rank() != 2 {
		t.Fatalf("rank = %d, want 2", m.Rank())
	}
	if m.NumElements() != 12 || m.MemorySize() != 12 {
		t.Fatalf("elements/memory = %d/%d, want 12/12", m.NumElements(), m.MemorySize())
	}
	if !m.IsContiguous() {
		t.Fatalf("unpadded identity layout should be contiguous")
	}
	off, err := m.LogicalEntryOffset([]int{2, 3})
	if err != nil {
		t.Fatalf("LogicalEntryOffset: %v", err)
	}
	if off != 11 {
		t.Fatalf("offset of [2 3] = %d, want 11", off)
	}
}

func TestPaddedLayoutOffsets(t *testing.T) {
	m, err := NewPadded([]int{2, 2}, []int{4, 4}, []int{1, 1})
	if err != nil {
		t.Fatalf("NewPadded: %v", err)
	}
	if m.NumElements() != 4 {
		t.Fatalf("NumElements = %d, want 4", m.NumElements())
	}
	if m.MemorySize() != 16 {
		t.Fatalf("MemorySize = %d, want 16", m.MemorySize())
	}
	if m.IsContiguous() {
		t.Fatalf("padded layout reported contiguous")
	}
	off, err := m.LogicalEntryOffset([]int{0, 0})
	if err != nil {
		t.Fatalf("LogicalEntryOffset: %v", err)
	}
	if off != 5 {
		t.Fatalf("offset of [0 0] = %d, want 5", off)
	}
	off, err = m.LogicalEntryOffset([]int{1, 1})
	if err != nil {
		t.Fatalf("LogicalEntryOffset: %v", err)
	}
	if off != 10 {
		t.Fatalf("offset of [1 1] = %d, want 10", off)
	}
}

func TestPaddedLayoutRejectsOverflow(t *testing.T) {
	if _, err := NewPadded([]int{4}, []int{4}, []int{1}); err == nil {
		t.Fatalf("expected error when offset+size exceeds extent")
	}
}

func TestOrderedLayoutColumnMajor(t *testing.T) {
	m, err := NewOrdered([]int{3, 4}, []int{1, 0})
	if err != nil {
		t.Fatalf("NewOrdered: %v", err)
	}
	// Dimension 0 is stored minor: stride 1 for rows, 3 for columns.
	off, err := m.LogicalEntryOffset([]int{2, 3})
	if err != nil {
		t.Fatalf("LogicalEntryOffset: %v", err)
	}
	if off != 11 {
		t.Fatalf("offset of [2 3] = %d, want 11", off)
	}
	if m.IsContiguous() {
		t.Fatalf("non-identity order reported contiguous")
	}
}

func TestOrderedLayoutRejectsBadPermutation(t *testing.T) {
	if _, err := NewOrdered([]int{2, 2}, []int{0, 0}); err == nil {
		t.Fatalf("expected error for non-permutation order")
	}
}

func TestLogicalEntryOffsetBounds(t *testing.T) {
	m := New(2, 2)
	if _, err := m.LogicalEntryOffset([]int{2, 0}); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if _, err := m.LogicalEntryOffset([]int{0}); err == nil {
		t.Fatalf("expected rank mismatch error")
	}
}

func TestIncrementWraps(t *testing.T) {
	coord := []int{0, 0}
	bounds := []int{2, 3}
	seen := 1
	for Increment(coord, bounds) {
		seen++
	}
	if seen != 6 {
		t.Fatalf("counter visited %d coordinates, want 6", seen)
	}
	if coord[0] != 0 || coord[1] != 0 {
		t.Fatalf("counter should wrap to zero, got %v", coord)
	}
}

func TestIteratorOrderAndRestart(t *testing.T) {
	m := New(2, 2)
	it := m.Coordinates()
	want := [][]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	for _, w := range want {
		got, ok := it.Next()
		if !ok {
			t.Fatalf("iterator ended early, want %v", w)
		}
		if got[0] != w[0] || got[1] != w[1] {
			t.Fatalf("coordinate = %v, want %v", got, w)
		}
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("iterator should be exhausted after %d entries", len(want))
	}
	it.Reset()
	count := 0
	for _, ok := it.Next(); ok; _, ok = it.Next() {
		count++
	}
	if count != 4 {
		t.Fatalf("restarted iterator visited %d entries, want 4", count)
	}
}

func TestIteratorOrderedLayout(t *testing.T) {
	m, err := NewOrdered([]int{2, 3}, []int{1, 0})
	if err != nil {
		t.Fatalf("NewOrdered: %v", err)
	}
	it := m.Coordinates()
	first, ok := it.Next()
	if !ok || first[0] != 0 || first[1] != 0 {
		t.Fatalf("first coordinate = %v, want [0 0]", first)
	}
	second, ok := it.Next()
	if !ok || second[0] != 1 || second[1] != 0 {
		t.Fatalf("second coordinate = %v, want [1 0] (dimension 0 is minor)", second)
	}
}

func TestIteratorZeroSizeLayout(t *testing.T) {
	m := New(0, 3)
	if _, ok := m.Coordinates().Next(); ok {
		t.Fatalf("zero-size layout should yield no coordinates")
	}
}

func TestEqual(t *testing.T) {
	a := New(2, 3)
	b := New(2, 3)
	if !a.Equal(b) {
		t.Fatalf("identical layouts reported unequal")
	}
	c, err := NewPadded([]int{2, 3}, []int{2, 4}, []int{0, 0})
	if err != nil {
		t.Fatalf("NewPadded: %v", err)
	}
	if a.Equal(c) {
		t.Fatalf("padded layout reported equal to unpadded")
	}
}
