package compute

import (
	"math"

	"loom/internal/memlayout"
	"loom/internal/value"
)

var unaryMath = map[string]func(float64) float64{
	"abs":  math.Abs,
	"cos":  math.Cos,
	"exp":  math.Exp,
	"log":  math.Log,
	"sin":  math.Sin,
	"sqrt": math.Sqrt,
	"tanh": math.Tanh,
}

// evalIntrinsic evaluates a builtin numeric function over constant data.
// Results keep the operand's element kind; evaluation happens in float64
// and narrows on store.
func (c *Context) evalIntrinsic(name string, args []value.Value) (value.Value, error) {
	switch name {
	case "pow":
		return c.evalPow(args)
	case "max", "min":
		return c.evalMinMax(name, args)
	default:
		return c.evalUnaryMath(name, args)
	}
}

func intrinsicOperand(name string, v value.Value, pos int) (*value.ConstantBuffer, int, error) {
	if v.BaseType() == value.KindBool {
		return nil, 0, value.Errf(value.CodeTypeMismatch, "%s is not defined for booleans", name)
	}
	return constantView(v, "intrinsic operand")
}

func (c *Context) evalUnaryMath(name string, args []value.Value) (value.Value, error) {
	fn, ok := unaryMath[name]
	if !ok {
		return value.Value{}, value.Errf(value.CodeIllegalState, "unknown intrinsic %q", name)
	}
	if len(args) != 1 {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "%s takes 1 argument, got %d", name, len(args))
	}
	v := args[0]
	buf, off, err := intrinsicOperand(name, v, 0)
	if err != nil {
		return value.Value{}, err
	}
	layout := v.Layout()
	out, err := c.Allocate(v.BaseType(), layout)
	if err != nil {
		return value.Value{}, err
	}
	outBuf, outOff, _ := constantView(out, "result")
	it := layout.Coordinates()
	for coords, ok := it.Next(); ok; coords, ok = it.Next() {
		o, err := layout.LogicalEntryOffset(coords)
		if err != nil {
			return value.Value{}, err
		}
		outBuf.SetFromFloat64(outOff+o, fn(buf.Float64At(off+o)))
	}
	return out, nil
}

func (c *Context) evalPow(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "pow takes 2 arguments, got %d", len(args))
	}
	base, exp := args[0], args[1]
	if !value.TypeCompatible(base, exp) {
		return value.Value{}, value.Errf(value.CodeTypeMismatch, "pow between %s and %s", base.Type(), exp.Type())
	}
	if exp.Layout().NumElements() != 1 {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "pow exponent must be scalar, got %d entries", exp.Layout().NumElements())
	}
	baseBuf, baseOff, err := intrinsicOperand("pow", base, 0)
	if err != nil {
		return value.Value{}, err
	}
	expBuf, expOff, err := intrinsicOperand("pow", exp, 1)
	if err != nil {
		return value.Value{}, err
	}
	e := expBuf.Float64At(expOff)
	layout := base.Layout()
	out, err := c.Allocate(base.BaseType(), layout)
	if err != nil {
		return value.Value{}, err
	}
	outBuf, outOff, _ := constantView(out, "result")
	it := layout.Coordinates()
	for coords, ok := it.Next(); ok; coords, ok = it.Next() {
		o, err := layout.LogicalEntryOffset(coords)
		if err != nil {
			return value.Value{}, err
		}
		outBuf.SetFromFloat64(outOff+o, math.Pow(baseBuf.Float64At(baseOff+o), e))
	}
	return out, nil
}

// evalMinMax handles both forms: one argument reduces over every entry, two
// scalar arguments pick the extremum of the pair.
func (c *Context) evalMinMax(name string, args []value.Value) (value.Value, error) {
	floating := false
	for i := range args {
		if _, _, err := intrinsicOperand(name, args[i], i); err != nil {
			return value.Value{}, err
		}
		floating = floating || args[i].BaseType().IsFloating()
	}
	wantMax := name == "max"
	switch len(args) {
	case 1:
		v := args[0]
		buf, off, _ := constantView(v, "intrinsic operand")
		layout := v.Layout()
		if layout.NumElements() == 0 {
			return value.Value{}, value.Errf(value.CodeInvalidArgument, "%s over an empty value", name)
		}
		var bestF float64
		var bestI int64
		first := true
		it := layout.Coordinates()
		for coords, ok := it.Next(); ok; coords, ok = it.Next() {
			o, err := layout.LogicalEntryOffset(coords)
			if err != nil {
				return value.Value{}, err
			}
			if floating {
				x := buf.Float64At(off + o)
				if first || (wantMax && x > bestF) || (!wantMax && x < bestF) {
					bestF = x
				}
			} else {
				x := buf.Int64At(off + o)
				if first || (wantMax && x > bestI) || (!wantMax && x < bestI) {
					bestI = x
				}
			}
			first = false
		}
		return c.scalarResult(v.BaseType(), floating, bestF, bestI)
	case 2:
		a, b := args[0], args[1]
		if !value.TypeCompatible(a, b) {
			return value.Value{}, value.Errf(value.CodeTypeMismatch, "%s between %s and %s", name, a.Type(), b.Type())
		}
		if a.Layout().NumElements() != 1 || b.Layout().NumElements() != 1 {
			return value.Value{}, value.Errf(value.CodeInvalidArgument, "two-argument %s requires scalar operands", name)
		}
		aBuf, aOff, _ := constantView(a, "intrinsic operand")
		bBuf, bOff, _ := constantView(b, "intrinsic operand")
		if floating {
			x, y := aBuf.Float64At(aOff), bBuf.Float64At(bOff)
			best := x
			if (wantMax && y > x) || (!wantMax && y < x) {
				best = y
			}
			return c.scalarResult(a.BaseType(), true, best, 0)
		}
		x, y := aBuf.Int64At(aOff), bBuf.Int64At(bOff)
		best := x
		if (wantMax && y > x) || (!wantMax && y < x) {
			best = y
		}
		return c.scalarResult(a.BaseType(), false, 0, best)
	default:
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "%s takes 1 or 2 arguments, got %d", name, len(args))
	}
}

func (c *Context) scalarResult(k value.Kind, floating bool, f float64, i int64) (value.Value, error) {
	out, err := c.Allocate(k, memlayout.Scalar())
	if err != nil {
		return value.Value{}, err
	}
	buf, off, _ := constantView(out, "result")
	if floating {
		buf.SetFromFloat64(off, f)
	} else {
		buf.SetFromInt64(off, i)
	}
	return out, nil
}
