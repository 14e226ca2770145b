package emit

import (
	"fortio.org/safecast"

	"loom/internal/ir"
	"loom/internal/memlayout"
	"loom/internal/value"
)

// entryOffsets flattens a layout into physical entry offsets, one per
// active coordinate in iteration order.
func entryOffsets(layout memlayout.MemoryLayout) ([]int, error) {
	out := make([]int, 0, layout.NumElements())
	it := layout.Coordinates()
	for coords, ok := it.Next(); ok; coords, ok = it.Next() {
		o, err := layout.LogicalEntryOffset(coords)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// For visits coordinates at emission time: every loop in the program
// unrolls, since all layouts are static.
func (c *CompiledContext) For(layout memlayout.MemoryLayout, fn func(coords []int) error) error {
	return c.fold.For(layout, fn)
}

// CopyData copies src's active entries into dst. Constant-to-constant
// copies fold on the host; everything else emits loads and stores, with a
// bulk copy when both sides agree on a contiguous layout.
func (c *CompiledContext) CopyData(src, dst value.Value) error {
	if src.IsConstant() && dst.IsConstant() {
		return c.fold.CopyData(src, dst)
	}
	if !src.IsDefined() {
		return value.Errf(value.CodeInvalidArgument, "copy source is undefined")
	}
	if dst.IsConstant() {
		buf, _ := dst.Constant()
		if buf != nil {
			return value.Errf(value.CodeIllegalState, "cannot copy emitted data into constant storage")
		}
		return value.Errf(value.CodeInvalidArgument, "copy destination is undefined")
	}
	if !value.TypeCompatible(src, dst) {
		return value.Errf(value.CodeTypeMismatch, "copy from %s into %s", src.Type(), dst.Type())
	}
	srcLayout, dstLayout := src.Layout(), dst.Layout()
	if se, ok := src.Emittable(); ok {
		if de, ok2 := dst.Emittable(); ok2 && se == de && srcLayout.Equal(dstLayout) {
			return nil
		}
	}
	if src.PointerLevel() != 1 || dst.PointerLevel() != 1 {
		return value.Errf(value.CodeTypeMismatch, "copy between pointer levels %d and %d", src.PointerLevel(), dst.PointerLevel())
	}
	if srcLayout.NumElements() != dstLayout.NumElements() {
		return value.Errf(value.CodeSizeMismatch, "copy %d entries into %d", srcLayout.NumElements(), dstLayout.NumElements())
	}
	f, err := c.currentFunc()
	if err != nil {
		return err
	}
	dstPtr, err := c.realize(dst)
	if err != nil {
		return err
	}
	if srcBuf, srcOff := src.Constant(); srcBuf != nil && !(srcLayout.Equal(dstLayout) && srcLayout.IsContiguous()) {
		// Sparse constant source: store literals directly, no promotion.
		srcOffs, err := entryOffsets(srcLayout)
		if err != nil {
			return err
		}
		dstOffs, err := entryOffsets(dstLayout)
		if err != nil {
			return err
		}
		for i := range srcOffs {
			f.StoreAtIndex(dstPtr, dstOffs[i], litOf(f, srcBuf, srcOff+srcOffs[i]))
		}
		return nil
	}
	srcPtr, err := c.realize(src)
	if err != nil {
		return err
	}
	if srcLayout.Equal(dstLayout) && srcLayout.IsContiguous() {
		f.MemCopy(dstPtr, srcPtr, srcLayout.MemorySize())
		return nil
	}
	srcOffs, err := entryOffsets(srcLayout)
	if err != nil {
		return err
	}
	dstOffs, err := entryOffsets(dstLayout)
	if err != nil {
		return err
	}
	for i := range srcOffs {
		f.StoreAtIndex(dstPtr, dstOffs[i], f.ValueAtIndex(srcPtr, srcOffs[i]))
	}
	return nil
}

// MoveData copies src into dst and then consumes src.
func (c *CompiledContext) MoveData(src *value.Value, dst value.Value) error {
	if err := c.CopyData(*src, dst); err != nil {
		return err
	}
	src.Reset()
	return nil
}

// Offset returns an unconstrained view into base shifted by index entries.
func (c *CompiledContext) Offset(base value.Value, index int64) (value.Value, error) {
	if base.IsConstant() {
		return c.fold.Offset(base, index)
	}
	if base.PointerLevel() != 1 {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "offset requires a single-level pointer, got %s", base.Type())
	}
	f, err := c.currentFunc()
	if err != nil {
		return value.Value{}, err
	}
	h, err := c.realize(base)
	if err != nil {
		return value.Value{}, err
	}
	delta, err := safecast.Convert[int](index)
	if err != nil {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "offset index %d does not fit the host int", index)
	}
	shifted := f.PointerOffset(h, f.LitIndex(delta))
	return value.FromEmittableUnconstrained(base.Type(), value.Emittable{Handle: shifted}), nil
}

// litOf returns an immediate for one buffer element.
func litOf(f *ir.Func, buf *value.ConstantBuffer, idx int) ir.Value {
	switch {
	case buf.Kind == value.KindBool:
		return f.LitBool(buf.Int64At(idx) != 0)
	case buf.Kind.IsFloating():
		return f.LitFloat(buf.Kind, buf.Float64At(idx))
	default:
		return f.LitInt(buf.Kind, buf.Int64At(idx))
	}
}

// BinaryOperation applies dst = dst op src elementwise. With both operands
// constant the result folds on the host and stays constant.
func (c *CompiledContext) BinaryOperation(op value.BinaryOperation, dst, src value.Value) (value.Value, error) {
	if !src.IsDefined() {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "operand of %s is undefined", op)
	}
	if dst.IsConstant() && src.IsConstant() {
		return c.fold.BinaryOperation(op, dst, src)
	}
	var err error
	if !dst.IsDefined() {
		dst, err = c.Allocate(src.BaseType(), src.Layout())
		if err != nil {
			return value.Value{}, err
		}
	}
	if !value.TypeCompatible(dst, src) {
		return value.Value{}, value.Errf(value.CodeTypeMismatch, "%s between %s and %s", op, dst.Type(), src.Type())
	}
	if dst.BaseType() == value.KindBool {
		return value.Value{}, value.Errf(value.CodeNotImplemented, "%s is not defined for booleans", op)
	}
	if dst.BaseType().IsFloating() && op == value.BinaryModulus {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "modulus is not defined for floating-point operands")
	}
	layout := dst.Layout()
	if !layout.Equal(src.Layout()) {
		return value.Value{}, value.Errf(value.CodeSizeMismatch, "%s between layouts %s and %s", op, layout, src.Layout())
	}
	f, err := c.currentFunc()
	if err != nil {
		return value.Value{}, err
	}
	dstPtr, err := c.realize(dst)
	if err != nil {
		return value.Value{}, err
	}
	offs, err := entryOffsets(layout)
	if err != nil {
		return value.Value{}, err
	}
	srcBuf, srcViewOff := src.Constant()
	var srcPtr ir.Value
	if srcBuf == nil {
		srcPtr, err = c.realize(src)
		if err != nil {
			return value.Value{}, err
		}
	}
	for _, o := range offs {
		a := f.ValueAtIndex(dstPtr, o)
		var b ir.Value
		if srcBuf != nil {
			b = litOf(f, srcBuf, srcViewOff+o)
		} else {
			b = f.ValueAtIndex(srcPtr, o)
		}
		r, err := f.Op(op, a, b)
		if err != nil {
			return value.Value{}, err
		}
		f.StoreAtIndex(dstPtr, o, r)
	}
	return value.FromEmittable(dstPtr.Type, layout, value.Emittable{Handle: dstPtr}), nil
}

// UnaryOperation negates elementwise into fresh storage.
func (c *CompiledContext) UnaryOperation(op value.UnaryOperation, v value.Value) (value.Value, error) {
	if op != value.UnaryNegate {
		return value.Value{}, value.Errf(value.CodeIllegalState, "unknown unary operation %s", op)
	}
	if v.IsConstant() {
		return c.fold.UnaryOperation(op, v)
	}
	if v.BaseType() == value.KindBool {
		return value.Value{}, value.Errf(value.CodeNotImplemented, "%s is not defined for booleans", op)
	}
	f, err := c.currentFunc()
	if err != nil {
		return value.Value{}, err
	}
	layout := v.Layout()
	out, err := c.Allocate(v.BaseType(), layout)
	if err != nil {
		return value.Value{}, err
	}
	srcPtr, err := c.realize(v)
	if err != nil {
		return value.Value{}, err
	}
	outPtr, err := c.realize(out)
	if err != nil {
		return value.Value{}, err
	}
	var zero ir.Value
	if v.BaseType().IsFloating() {
		zero = f.LitFloat(v.BaseType(), 0)
	} else {
		zero = f.LitInt(v.BaseType(), 0)
	}
	offs, err := entryOffsets(layout)
	if err != nil {
		return value.Value{}, err
	}
	for _, o := range offs {
		x := f.ValueAtIndex(srcPtr, o)
		r, err := f.Op(value.BinarySubtract, zero, x)
		if err != nil {
			return value.Value{}, err
		}
		f.StoreAtIndex(outPtr, o, r)
	}
	return out, nil
}

// LogicalOperation compares elementwise and AND-reduces to one i1. Constant
// operands fold on the host.
func (c *CompiledContext) LogicalOperation(op value.LogicalOperation, a, b value.Value) (value.Value, error) {
	if a.IsConstant() && b.IsConstant() {
		return c.fold.LogicalOperation(op, a, b)
	}
	if !a.IsDefined() || !b.IsDefined() {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "operand of %s is undefined", op)
	}
	if !value.TypeCompatible(a, b) {
		return value.Value{}, value.Errf(value.CodeTypeMismatch, "%s between %s and %s", op, a.Type(), b.Type())
	}
	layout := a.Layout()
	if !layout.Equal(b.Layout()) {
		return value.Value{}, value.Errf(value.CodeSizeMismatch, "%s between layouts %s and %s", op, layout, b.Layout())
	}
	f, err := c.currentFunc()
	if err != nil {
		return value.Value{}, err
	}
	aPtr, err := c.realize(a)
	if err != nil {
		return value.Value{}, err
	}
	bPtr, err := c.realize(b)
	if err != nil {
		return value.Value{}, err
	}
	offs, err := entryOffsets(layout)
	if err != nil {
		return value.Value{}, err
	}
	acc := f.TrueBit()
	for _, o := range offs {
		cmp := f.Compare(op, f.ValueAtIndex(aPtr, o), f.ValueAtIndex(bPtr, o))
		acc = f.And(acc, cmp)
	}
	return value.FromEmittable(value.NewType(value.KindBool), memlayout.Scalar(), value.Emittable{Handle: acc}), nil
}

// Cast converts elementwise into fresh storage of kind k. Constant operands
// fold on the host.
func (c *CompiledContext) Cast(v value.Value, k value.Kind) (value.Value, error) {
	if v.IsConstant() {
		return c.fold.Cast(v, k)
	}
	if !k.IsNumeric() && k != value.KindBool {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "cannot cast to %s", k)
	}
	f, err := c.currentFunc()
	if err != nil {
		return value.Value{}, err
	}
	layout := v.Layout()
	out, err := c.Allocate(k, layout)
	if err != nil {
		return value.Value{}, err
	}
	srcPtr, err := c.realize(v)
	if err != nil {
		return value.Value{}, err
	}
	outPtr, err := c.realize(out)
	if err != nil {
		return value.Value{}, err
	}
	offs, err := entryOffsets(layout)
	if err != nil {
		return value.Value{}, err
	}
	for _, o := range offs {
		x := f.ValueAtIndex(srcPtr, o)
		f.StoreAtIndex(outPtr, o, f.Cast(x, k))
	}
	return out, nil
}
