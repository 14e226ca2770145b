package compute

import (
	"fortio.org/safecast"

	"loom/internal/memlayout"
	"loom/internal/value"
)

// constantView unwraps a value into its buffer, view offset and layout,
// failing when the value has been materialized by another backend.
func constantView(v value.Value, role string) (*value.ConstantBuffer, int, error) {
	if !v.IsConstant() {
		return nil, 0, value.Errf(value.CodeIllegalState, "%s has non-constant data; host evaluation only handles constants", role)
	}
	buf, off := v.Constant()
	if buf == nil {
		return nil, 0, value.Errf(value.CodeInvalidArgument, "%s is undefined", role)
	}
	return buf, off, nil
}

func copyRange(dst *value.ConstantBuffer, dstOff int, src *value.ConstantBuffer, srcOff, n int) {
	switch dst.Kind {
	case value.KindBool:
		copy(dst.Bool[dstOff:dstOff+n], src.Bool[srcOff:srcOff+n])
	case value.KindInt8:
		copy(dst.I8[dstOff:dstOff+n], src.I8[srcOff:srcOff+n])
	case value.KindInt16:
		copy(dst.I16[dstOff:dstOff+n], src.I16[srcOff:srcOff+n])
	case value.KindInt32:
		copy(dst.I32[dstOff:dstOff+n], src.I32[srcOff:srcOff+n])
	case value.KindInt64:
		copy(dst.I64[dstOff:dstOff+n], src.I64[srcOff:srcOff+n])
	case value.KindFloat32:
		copy(dst.F32[dstOff:dstOff+n], src.F32[srcOff:srcOff+n])
	case value.KindFloat64:
		copy(dst.F64[dstOff:dstOff+n], src.F64[srcOff:srcOff+n])
	}
}

// CopyData copies src's active entries into dst. Layouts may differ in
// padding and dimension order but must agree on active sizes.
func (c *Context) CopyData(src, dst value.Value) error {
	srcBuf, srcOff, err := constantView(src, "copy source")
	if err != nil {
		return err
	}
	dstBuf, dstOff, err := constantView(dst, "copy destination")
	if err != nil {
		return err
	}
	if !value.TypeCompatible(src, dst) {
		return value.Errf(value.CodeTypeMismatch, "copy from %s into %s", src.Type(), dst.Type())
	}
	srcLayout, dstLayout := src.Layout(), dst.Layout()
	if srcBuf == dstBuf && srcOff == dstOff && srcLayout.Equal(dstLayout) {
		return nil
	}
	if srcLayout.NumElements() != dstLayout.NumElements() {
		return value.Errf(value.CodeSizeMismatch, "copy %d entries into %d", srcLayout.NumElements(), dstLayout.NumElements())
	}
	if srcLayout.Equal(dstLayout) && srcLayout.IsContiguous() {
		copyRange(dstBuf, dstOff, srcBuf, srcOff, srcLayout.MemorySize())
		return nil
	}
	it := srcLayout.Coordinates()
	for coords, ok := it.Next(); ok; coords, ok = it.Next() {
		sOff, err := srcLayout.LogicalEntryOffset(coords)
		if err != nil {
			return err
		}
		dOff, err := dstLayout.LogicalEntryOffset(coords)
		if err != nil {
			return err
		}
		if err := dstBuf.Copy(dstOff+dOff, srcBuf, srcOff+sOff); err != nil {
			return err
		}
	}
	return nil
}

// MoveData copies src into dst and then consumes src, leaving it undefined.
func (c *Context) MoveData(src *value.Value, dst value.Value) error {
	if err := c.CopyData(*src, dst); err != nil {
		return err
	}
	src.Reset()
	return nil
}

// Offset returns a view into base shifted by index entries. The result
// shares base's buffer and carries no layout; the caller constrains it.
func (c *Context) Offset(base value.Value, index int64) (value.Value, error) {
	buf, off, err := constantView(base, "offset base")
	if err != nil {
		return value.Value{}, err
	}
	if base.PointerLevel() != 1 {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "offset requires a single-level pointer, got %s", base.Type())
	}
	delta, err := safecast.Convert[int](index)
	if err != nil {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "offset index %d does not fit the host int", index)
	}
	if off+delta < 0 || off+delta > buf.Len() {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "offset %d is outside the buffer of %d entries", off+delta, buf.Len())
	}
	out := value.NewUnconstrained(base.Type())
	out.SetConstant(buf, off+delta)
	return out, nil
}

func applyFloat(op value.BinaryOperation, a, b float64) float64 {
	switch op {
	case value.BinaryAdd:
		return a + b
	case value.BinarySubtract:
		return a - b
	case value.BinaryMultiply:
		return a * b
	case value.BinaryDivide:
		return a / b
	default:
		return 0
	}
}

func applyInt(op value.BinaryOperation, a, b int64) (int64, error) {
	switch op {
	case value.BinaryAdd:
		return a + b, nil
	case value.BinarySubtract:
		return a - b, nil
	case value.BinaryMultiply:
		return a * b, nil
	case value.BinaryDivide:
		if b == 0 {
			return 0, value.Errf(value.CodeInvalidArgument, "integer division by zero")
		}
		return a / b, nil
	case value.BinaryModulus:
		if b == 0 {
			return 0, value.Errf(value.CodeInvalidArgument, "integer modulus by zero")
		}
		return a % b, nil
	default:
		return 0, value.Errf(value.CodeIllegalState, "unknown binary operation %s", op)
	}
}

// BinaryOperation applies dst = dst op src elementwise and returns dst. An
// undefined dst is allocated from src's shape first, so the accumulation
// starts from zeros.
func (c *Context) BinaryOperation(op value.BinaryOperation, dst, src value.Value) (value.Value, error) {
	srcBuf, srcOff, err := constantView(src, "operand")
	if err != nil {
		return value.Value{}, err
	}
	if !dst.IsDefined() {
		dst, err = c.Allocate(src.BaseType(), src.Layout())
		if err != nil {
			return value.Value{}, err
		}
	}
	dstBuf, dstOff, err := constantView(dst, "destination")
	if err != nil {
		return value.Value{}, err
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
	floating := dst.BaseType().IsFloating()
	it := layout.Coordinates()
	for coords, ok := it.Next(); ok; coords, ok = it.Next() {
		off, err := layout.LogicalEntryOffset(coords)
		if err != nil {
			return value.Value{}, err
		}
		if floating {
			r := applyFloat(op, dstBuf.Float64At(dstOff+off), srcBuf.Float64At(srcOff+off))
			dstBuf.SetFromFloat64(dstOff+off, r)
		} else {
			r, err := applyInt(op, dstBuf.Int64At(dstOff+off), srcBuf.Int64At(srcOff+off))
			if err != nil {
				return value.Value{}, err
			}
			dstBuf.SetFromInt64(dstOff+off, r)
		}
	}
	return dst, nil
}

// UnaryOperation applies op elementwise and returns a freshly allocated
// result.
func (c *Context) UnaryOperation(op value.UnaryOperation, v value.Value) (value.Value, error) {
	buf, off, err := constantView(v, "operand")
	if err != nil {
		return value.Value{}, err
	}
	if op != value.UnaryNegate {
		return value.Value{}, value.Errf(value.CodeIllegalState, "unknown unary operation %s", op)
	}
	if v.BaseType() == value.KindBool {
		return value.Value{}, value.Errf(value.CodeNotImplemented, "%s is not defined for booleans", op)
	}
	layout := v.Layout()
	out, err := c.Allocate(v.BaseType(), layout)
	if err != nil {
		return value.Value{}, err
	}
	outBuf, outOff, _ := constantView(out, "result")
	floating := v.BaseType().IsFloating()
	it := layout.Coordinates()
	for coords, ok := it.Next(); ok; coords, ok = it.Next() {
		o, err := layout.LogicalEntryOffset(coords)
		if err != nil {
			return value.Value{}, err
		}
		if floating {
			outBuf.SetFromFloat64(outOff+o, -buf.Float64At(off+o))
		} else {
			outBuf.SetFromInt64(outOff+o, -buf.Int64At(off+o))
		}
	}
	return out, nil
}

func compareFloat(op value.LogicalOperation, a, b float64) bool {
	switch op {
	case value.LogicalEquality:
		return a == b
	case value.LogicalInequality:
		return a != b
	case value.LogicalGreaterThan:
		return a > b
	case value.LogicalGreaterThanOrEqual:
		return a >= b
	case value.LogicalLessThan:
		return a < b
	case value.LogicalLessThanOrEqual:
		return a <= b
	default:
		return false
	}
}

func compareInt(op value.LogicalOperation, a, b int64) bool {
	switch op {
	case value.LogicalEquality:
		return a == b
	case value.LogicalInequality:
		return a != b
	case value.LogicalGreaterThan:
		return a > b
	case value.LogicalGreaterThanOrEqual:
		return a >= b
	case value.LogicalLessThan:
		return a < b
	case value.LogicalLessThanOrEqual:
		return a <= b
	default:
		return false
	}
}

// LogicalOperation compares a and b elementwise and reduces with logical
// AND to a single boolean scalar.
func (c *Context) LogicalOperation(op value.LogicalOperation, a, b value.Value) (value.Value, error) {
	aBuf, aOff, err := constantView(a, "left operand")
	if err != nil {
		return value.Value{}, err
	}
	bBuf, bOff, err := constantView(b, "right operand")
	if err != nil {
		return value.Value{}, err
	}
	if !value.TypeCompatible(a, b) {
		return value.Value{}, value.Errf(value.CodeTypeMismatch, "%s between %s and %s", op, a.Type(), b.Type())
	}
	layout := a.Layout()
	if !layout.Equal(b.Layout()) {
		return value.Value{}, value.Errf(value.CodeSizeMismatch, "%s between layouts %s and %s", op, layout, b.Layout())
	}
	floating := a.BaseType().IsFloating()
	result := true
	it := layout.Coordinates()
	for coords, ok := it.Next(); ok && result; coords, ok = it.Next() {
		off, err := layout.LogicalEntryOffset(coords)
		if err != nil {
			return value.Value{}, err
		}
		if floating {
			result = compareFloat(op, aBuf.Float64At(aOff+off), bBuf.Float64At(bOff+off))
		} else {
			result = compareInt(op, aBuf.Int64At(aOff+off), bBuf.Int64At(bOff+off))
		}
	}
	return c.StoreConstantData(value.ConstantBool([]bool{result}), memlayout.Scalar())
}

// Cast converts v elementwise to kind k, preserving the layout. Integer to
// integer conversions keep 64-bit precision; anything involving a float
// goes through float64.
func (c *Context) Cast(v value.Value, k value.Kind) (value.Value, error) {
	buf, off, err := constantView(v, "cast operand")
	if err != nil {
		return value.Value{}, err
	}
	if !k.IsNumeric() && k != value.KindBool {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "cannot cast to %s", k)
	}
	layout := v.Layout()
	out, err := c.Allocate(k, layout)
	if err != nil {
		return value.Value{}, err
	}
	outBuf, outOff, _ := constantView(out, "result")
	viaInt := v.BaseType().IsIntegral() && k.IsIntegral()
	it := layout.Coordinates()
	for coords, ok := it.Next(); ok; coords, ok = it.Next() {
		o, err := layout.LogicalEntryOffset(coords)
		if err != nil {
			return value.Value{}, err
		}
		if viaInt {
			outBuf.SetFromInt64(outOff+o, buf.Int64At(off+o))
		} else {
			outBuf.SetFromFloat64(outOff+o, buf.Float64At(off+o))
		}
	}
	return out, nil
}
