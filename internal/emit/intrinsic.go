package emit

import (
	"loom/internal/ir"
	"loom/internal/memlayout"
	"loom/internal/value"
)

// mathKind is the kind intrinsic math evaluates in: float32 stays single
// precision and maps to the float runtime variants, everything else widens
// to double.
func mathKind(k value.Kind) value.Kind {
	if k == value.KindFloat32 {
		return value.KindFloat32
	}
	return value.KindFloat64
}

// scalarBit lowers a scalar operand to one SSA value.
func (c *CompiledContext) scalarBit(f *ir.Func, v value.Value) (ir.Value, error) {
	if v.Layout().NumElements() != 1 {
		return ir.Value{}, value.Errf(value.CodeInvalidArgument, "operand must be scalar, got %d entries", v.Layout().NumElements())
	}
	if buf, off := v.Constant(); buf != nil {
		return litOf(f, buf, off), nil
	}
	h, err := c.realize(v)
	if err != nil {
		return ir.Value{}, err
	}
	if h.Type.PointerLevel == 0 {
		return h, nil
	}
	return f.ValueAtIndex(h, 0), nil
}

// lowerIntrinsic emits runtime math calls for an intrinsic with at least
// one non-constant operand. Results keep the operand's element kind.
func (c *CompiledContext) lowerIntrinsic(name string, args []value.Value) (value.Value, error) {
	f, err := c.currentFunc()
	if err != nil {
		return value.Value{}, err
	}
	for i := range args {
		if args[i].BaseType() == value.KindBool {
			return value.Value{}, value.Errf(value.CodeTypeMismatch, "%s is not defined for booleans", name)
		}
	}
	switch name {
	case "pow":
		return c.lowerPow(f, args)
	case "max", "min":
		return c.lowerMinMax(f, name, args)
	case "abs", "cos", "exp", "log", "sin", "sqrt", "tanh":
		return c.lowerUnaryMath(f, name, args)
	default:
		return value.Value{}, value.Errf(value.CodeIllegalState, "unknown intrinsic %q", name)
	}
}

// mathBase maps an intrinsic name to the runtime routine.
func mathBase(name string) string {
	if name == "abs" {
		return "fabs"
	}
	return name
}

func (c *CompiledContext) lowerUnaryMath(f *ir.Func, name string, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "%s takes 1 argument, got %d", name, len(args))
	}
	v := args[0]
	kind := v.BaseType()
	layout := v.Layout()
	out, err := c.Allocate(kind, layout)
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
	mk := mathKind(kind)
	for _, o := range offs {
		x := f.Cast(f.ValueAtIndex(srcPtr, o), mk)
		r := f.CallMath(mathBase(name), kind, x)
		f.StoreAtIndex(outPtr, o, f.Cast(r, kind))
	}
	return out, nil
}

func (c *CompiledContext) lowerPow(f *ir.Func, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "pow takes 2 arguments, got %d", len(args))
	}
	base, exp := args[0], args[1]
	if !value.TypeCompatible(base, exp) {
		return value.Value{}, value.Errf(value.CodeTypeMismatch, "pow between %s and %s", base.Type(), exp.Type())
	}
	kind := base.BaseType()
	mk := mathKind(kind)
	e, err := c.scalarBit(f, exp)
	if err != nil {
		return value.Value{}, err
	}
	e = f.Cast(e, mk)
	layout := base.Layout()
	out, err := c.Allocate(kind, layout)
	if err != nil {
		return value.Value{}, err
	}
	srcPtr, err := c.realize(base)
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
		x := f.Cast(f.ValueAtIndex(srcPtr, o), mk)
		r := f.CallMath("pow", kind, x, e)
		f.StoreAtIndex(outPtr, o, f.Cast(r, kind))
	}
	return out, nil
}

// lowerMinMax emits the reduction form for one argument and the pairwise
// form for two scalar arguments, both via compare and select.
func (c *CompiledContext) lowerMinMax(f *ir.Func, name string, args []value.Value) (value.Value, error) {
	cmpOp := value.LogicalGreaterThan
	if name == "min" {
		cmpOp = value.LogicalLessThan
	}
	switch len(args) {
	case 1:
		v := args[0]
		kind := v.BaseType()
		layout := v.Layout()
		if layout.NumElements() == 0 {
			return value.Value{}, value.Errf(value.CodeInvalidArgument, "%s over an empty value", name)
		}
		srcPtr, err := c.realize(v)
		if err != nil {
			return value.Value{}, err
		}
		offs, err := entryOffsets(layout)
		if err != nil {
			return value.Value{}, err
		}
		acc := f.ValueAtIndex(srcPtr, offs[0])
		for _, o := range offs[1:] {
			x := f.ValueAtIndex(srcPtr, o)
			acc = f.Select(f.Compare(cmpOp, x, acc), x, acc)
		}
		return c.wrapScalar(f, kind, acc)
	case 2:
		a, b := args[0], args[1]
		if !value.TypeCompatible(a, b) {
			return value.Value{}, value.Errf(value.CodeTypeMismatch, "%s between %s and %s", name, a.Type(), b.Type())
		}
		x, err := c.scalarBit(f, a)
		if err != nil {
			return value.Value{}, err
		}
		y, err := c.scalarBit(f, b)
		if err != nil {
			return value.Value{}, err
		}
		r := f.Select(f.Compare(cmpOp, x, y), x, y)
		return c.wrapScalar(f, a.BaseType(), r)
	default:
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "%s takes 1 or 2 arguments, got %d", name, len(args))
	}
}

// wrapScalar stores one SSA value into fresh scalar storage.
func (c *CompiledContext) wrapScalar(f *ir.Func, k value.Kind, v ir.Value) (value.Value, error) {
	out, err := c.Allocate(k, memlayout.Scalar())
	if err != nil {
		return value.Value{}, err
	}
	outPtr, err := c.realize(out)
	if err != nil {
		return value.Value{}, err
	}
	f.StoreAtIndex(outPtr, 0, v)
	return out, nil
}
