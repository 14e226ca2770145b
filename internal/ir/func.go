package ir

import (
	"fmt"
	"strconv"
	"strings"

	"loom/internal/value"
)

// Func emits instructions into one function body. Bodies buffer locally and
// land in the module when End is called.
type Func struct {
	mod    *Module
	name   string
	ret    value.Type
	buf    strings.Builder
	tmpID  int
	ifID   int
	params []Value
	ended  bool
}

// BeginFunction opens a function definition. Use a KindVoid return type for
// void functions. Parameters are bound as %arg0..%argN.
func (m *Module) BeginFunction(name string, ret value.Type, params []value.Type) *Func {
	f := &Func{mod: m, name: name, ret: ret}
	paramDefs := make([]string, len(params))
	f.params = make([]Value, len(params))
	for i, p := range params {
		argName := fmt.Sprintf("%%arg%d", i)
		paramDefs[i] = fmt.Sprintf("%s %s", valueType(p), argName)
		f.params[i] = Value{Name: argName, Type: p}
	}
	fmt.Fprintf(&f.buf, "define %s @%s(%s) {\n", valueType(ret), name, strings.Join(paramDefs, ", "))
	f.buf.WriteString("entry:\n")
	return f
}

// Name returns the function's symbol name.
func (f *Func) Name() string { return f.name }

// Params returns the bound parameter handles.
func (f *Func) Params() []Value { return f.params }

func (f *Func) nextTemp() string {
	t := fmt.Sprintf("%%t%d", f.tmpID)
	f.tmpID++
	return t
}

// End closes the function with the given return value (zero handle for void)
// and appends the body to the module.
func (f *Func) End(ret Value) {
	if f.ended {
		return
	}
	if ret.IsZero() || f.ret.Base == value.KindVoid {
		f.buf.WriteString("  ret void\n")
	} else {
		fmt.Fprintf(&f.buf, "  ret %s %s\n", valueType(ret.Type), ret.Name)
	}
	f.buf.WriteString("}\n")
	f.mod.funcs = append(f.mod.funcs, f.buf.String())
	f.ended = true
}

// Alloca reserves count elements of the given element type and returns a
// pointer handle.
func (f *Func) Alloca(elem value.Type, count int) Value {
	ptr := value.Type{Base: elem.Base, PointerLevel: elem.PointerLevel + 1}
	tmp := f.nextTemp()
	fmt.Fprintf(&f.buf, "  %s = alloca %s, i64 %d\n", tmp, storageType(ptr), count)
	return Value{Name: tmp, Type: ptr}
}

// ZeroFill memsets count elements behind ptr to zero.
func (f *Func) ZeroFill(ptr Value, count int) {
	f.mod.ensureMemset()
	bytes := count * storageSize(ptr.Type)
	fmt.Fprintf(&f.buf, "  call void @llvm.memset.p0.i64(ptr %s, i8 0, i64 %d, i1 false)\n", ptr.Name, bytes)
}

// MemCopy copies count elements from src to dst as one bulk operation.
func (f *Func) MemCopy(dst, src Value, count int) {
	f.mod.ensureMemcpy()
	bytes := count * storageSize(src.Type)
	fmt.Fprintf(&f.buf, "  call void @llvm.memcpy.p0.p0.i64(ptr %s, ptr %s, i64 %d, i1 false)\n", dst.Name, src.Name, bytes)
}

// LitInt returns an integer immediate of the given kind.
func (f *Func) LitInt(k value.Kind, v int64) Value {
	return Value{Name: litInt(k, v), Type: value.Type{Base: k}}
}

// LitFloat returns a float immediate of the given kind.
func (f *Func) LitFloat(k value.Kind, v float64) Value {
	return Value{Name: litFloat(v), Type: value.Type{Base: k}}
}

// LitBool returns a boolean immediate.
func (f *Func) LitBool(b bool) Value {
	if b {
		return Value{Name: "true", Type: value.Type{Base: value.KindBool}}
	}
	return Value{Name: "false", Type: value.Type{Base: value.KindBool}}
}

// LitIndex returns an i64 index immediate.
func (f *Func) LitIndex(i int) Value {
	return Value{Name: strconv.Itoa(i), Type: value.Type{Base: value.KindInt64}}
}

func (f *Func) gep(ptr Value, offset Value) string {
	elem := storageType(ptr.Type)
	tmp := f.nextTemp()
	fmt.Fprintf(&f.buf, "  %s = getelementptr %s, ptr %s, i64 %s\n", tmp, elem, ptr.Name, offset.Name)
	return tmp
}

// PointerOffset returns ptr advanced by offset elements.
func (f *Func) PointerOffset(ptr Value, offset Value) Value {
	return Value{Name: f.gep(ptr, offset), Type: ptr.Type}
}

// ValueAt loads the element at offset behind ptr. Boolean elements are
// stored as bytes and truncated back to i1 on load.
func (f *Func) ValueAt(ptr Value, offset Value) Value {
	addr := f.gep(ptr, offset)
	elemType := ptr.Type.Dereference()
	tmp := f.nextTemp()
	fmt.Fprintf(&f.buf, "  %s = load %s, ptr %s\n", tmp, storageType(ptr.Type), addr)
	if elemType.PointerLevel == 0 && elemType.Base == value.KindBool {
		trunc := f.nextTemp()
		fmt.Fprintf(&f.buf, "  %s = trunc i8 %s to i1\n", trunc, tmp)
		tmp = trunc
	}
	return Value{Name: tmp, Type: elemType}
}

// ValueAtIndex loads the element at a constant offset behind ptr.
func (f *Func) ValueAtIndex(ptr Value, idx int) Value {
	return f.ValueAt(ptr, f.LitIndex(idx))
}

// StoreAt stores v into the element at offset behind ptr.
func (f *Func) StoreAt(ptr Value, offset Value, v Value) {
	addr := f.gep(ptr, offset)
	name := v.Name
	if v.Type.PointerLevel == 0 && v.Type.Base == value.KindBool {
		ext := f.nextTemp()
		fmt.Fprintf(&f.buf, "  %s = zext i1 %s to i8\n", ext, name)
		name = ext
	}
	fmt.Fprintf(&f.buf, "  store %s %s, ptr %s\n", storageType(ptr.Type), name, addr)
}

// StoreAtIndex stores v into the element at a constant offset behind ptr.
func (f *Func) StoreAtIndex(ptr Value, idx int, v Value) {
	f.StoreAt(ptr, f.LitIndex(idx), v)
}

// Op emits one typed binary arithmetic instruction. Operands must share a
// type; the float and integer operator families are distinct.
func (f *Func) Op(op value.BinaryOperation, a, b Value) (Value, error) {
	isFp := a.Type.Base.IsFloating()
	var opcode string
	switch op {
	case value.BinaryAdd:
		opcode = "add"
		if isFp {
			opcode = "fadd"
		}
	case value.BinarySubtract:
		opcode = "sub"
		if isFp {
			opcode = "fsub"
		}
	case value.BinaryMultiply:
		opcode = "mul"
		if isFp {
			opcode = "fmul"
		}
	case value.BinaryDivide:
		opcode = "sdiv"
		if isFp {
			opcode = "fdiv"
		}
	case value.BinaryModulus:
		if isFp {
			return Value{}, fmt.Errorf("ir: modulus on floating operands")
		}
		opcode = "srem"
	default:
		return Value{}, fmt.Errorf("ir: unknown binary operation %d", op)
	}
	tmp := f.nextTemp()
	fmt.Fprintf(&f.buf, "  %s = %s %s %s, %s\n", tmp, opcode, valueType(a.Type), a.Name, b.Name)
	return Value{Name: tmp, Type: a.Type}, nil
}

// Compare emits one typed comparison and returns an i1 handle.
func (f *Func) Compare(op value.LogicalOperation, a, b Value) Value {
	isFp := a.Type.Base.IsFloating()
	inst := "icmp"
	var pred string
	if isFp {
		inst = "fcmp"
		switch op {
		case value.LogicalEquality:
			pred = "oeq"
		case value.LogicalInequality:
			pred = "one"
		case value.LogicalGreaterThan:
			pred = "ogt"
		case value.LogicalGreaterThanOrEqual:
			pred = "oge"
		case value.LogicalLessThan:
			pred = "olt"
		case value.LogicalLessThanOrEqual:
			pred = "ole"
		}
	} else {
		switch op {
		case value.LogicalEquality:
			pred = "eq"
		case value.LogicalInequality:
			pred = "ne"
		case value.LogicalGreaterThan:
			pred = "sgt"
		case value.LogicalGreaterThanOrEqual:
			pred = "sge"
		case value.LogicalLessThan:
			pred = "slt"
		case value.LogicalLessThanOrEqual:
			pred = "sle"
		}
	}
	tmp := f.nextTemp()
	fmt.Fprintf(&f.buf, "  %s = %s %s %s %s, %s\n", tmp, inst, pred, valueType(a.Type), a.Name, b.Name)
	return Value{Name: tmp, Type: value.Type{Base: value.KindBool}}
}

// Select emits a conditional select between two same-typed operands.
func (f *Func) Select(cond, a, b Value) Value {
	tmp := f.nextTemp()
	ty := valueType(a.Type)
	fmt.Fprintf(&f.buf, "  %s = select i1 %s, %s %s, %s %s\n", tmp, cond.Name, ty, a.Name, ty, b.Name)
	return Value{Name: tmp, Type: a.Type}
}

// And emits a logical AND of two i1 operands.
func (f *Func) And(a, b Value) Value {
	tmp := f.nextTemp()
	fmt.Fprintf(&f.buf, "  %s = and i1 %s, %s\n", tmp, a.Name, b.Name)
	return Value{Name: tmp, Type: value.Type{Base: value.KindBool}}
}

// TrueBit returns the constant i1 true, the seed of AND reductions.
func (f *Func) TrueBit() Value {
	return Value{Name: "true", Type: value.Type{Base: value.KindBool}}
}

// Cast converts an SSA value to another element kind, choosing the
// conversion instruction from the source and destination kinds.
func (f *Func) Cast(v Value, to value.Kind) Value {
	from := v.Type.Base
	if from == to {
		return v
	}
	dst := value.Type{Base: to}
	emit := func(op string) Value {
		tmp := f.nextTemp()
		fmt.Fprintf(&f.buf, "  %s = %s %s %s to %s\n", tmp, op, valueType(v.Type), v.Name, kindValueType(to))
		return Value{Name: tmp, Type: dst}
	}
	switch {
	case from == value.KindBool && to.IsIntegral():
		return emit("zext")
	case from == value.KindBool && to.IsFloating():
		return emit("uitofp")
	case from.IsIntegral() && to == value.KindBool:
		cmp := f.nextTemp()
		fmt.Fprintf(&f.buf, "  %s = icmp ne %s %s, 0\n", cmp, valueType(v.Type), v.Name)
		return Value{Name: cmp, Type: dst}
	case from.IsFloating() && to == value.KindBool:
		cmp := f.nextTemp()
		fmt.Fprintf(&f.buf, "  %s = fcmp one %s %s, %s\n", cmp, valueType(v.Type), v.Name, litFloat(0))
		return Value{Name: cmp, Type: dst}
	case from.IsIntegral() && to.IsIntegral():
		if from.Size() < to.Size() {
			return emit("sext")
		}
		if from.Size() > to.Size() {
			return emit("trunc")
		}
		return Value{Name: v.Name, Type: dst}
	case from.IsIntegral() && to.IsFloating():
		return emit("sitofp")
	case from.IsFloating() && to.IsIntegral():
		return emit("fptosi")
	case from.IsFloating() && to.IsFloating():
		if from.Size() < to.Size() {
			return emit("fpext")
		}
		return emit("fptrunc")
	default:
		return Value{Name: v.Name, Type: dst}
	}
}

// Call emits a direct call. A KindVoid return type produces no result handle.
func (f *Func) Call(sym string, ret value.Type, args []Value) Value {
	argDefs := make([]string, len(args))
	for i, a := range args {
		argDefs[i] = fmt.Sprintf("%s %s", valueType(a.Type), a.Name)
	}
	if ret.Base == value.KindVoid {
		fmt.Fprintf(&f.buf, "  call void @%s(%s)\n", sym, strings.Join(argDefs, ", "))
		return Value{}
	}
	tmp := f.nextTemp()
	fmt.Fprintf(&f.buf, "  %s = call %s @%s(%s)\n", tmp, valueType(ret), sym, strings.Join(argDefs, ", "))
	return Value{Name: tmp, Type: ret}
}

// CallMath calls a libm-style runtime routine, declaring it on first use.
// Float32 operands use the float variant; everything else runs in double.
func (f *Func) CallMath(base string, kind value.Kind, args ...Value) Value {
	sym := f.mod.mathDecl(base, kind, len(args))
	ret := value.Type{Base: value.KindFloat64}
	if kind == value.KindFloat32 {
		ret = value.Type{Base: value.KindFloat32}
	}
	return f.Call(sym, ret, args)
}
