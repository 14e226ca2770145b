package emit

import (
	"loom/internal/ir"
	"loom/internal/memlayout"
	"loom/internal/value"
)

// testBit lowers a boolean scalar test to an i1 handle. Constant tests
// become immediates, so a constant conditional still emits real branches.
func (c *CompiledContext) testBit(f *ir.Func, test value.Value) (ir.Value, error) {
	if test.IsConstant() {
		t, err := constantTest(test)
		if err != nil {
			return ir.Value{}, err
		}
		return f.LitBool(t), nil
	}
	if test.BaseType() != value.KindBool {
		return ir.Value{}, value.Errf(value.CodeTypeMismatch, "conditional test must be boolean, got %s", test.Type())
	}
	h, err := c.realize(test)
	if err != nil {
		return ir.Value{}, err
	}
	switch h.Type.PointerLevel {
	case 0:
		return h, nil
	case 1:
		return f.ValueAtIndex(h, 0), nil
	default:
		return ir.Value{}, value.Errf(value.CodeTypeMismatch, "conditional test has pointer level %d", h.Type.PointerLevel)
	}
}

type compiledIf struct {
	c *CompiledContext
	f *ir.Func
	b *ir.IfBlock

	// sealed marks a chain whose else arm has opened or whose End ran;
	// further arms are skipped entirely, matching the host backend.
	sealed bool
}

// If opens a conditional chain in the open function.
func (c *CompiledContext) If(test value.Value, then func() error) (IfContext, error) {
	f, err := c.currentFunc()
	if err != nil {
		return nil, err
	}
	cond, err := c.testBit(f, test)
	if err != nil {
		return nil, err
	}
	b := f.If(cond)
	if err := then(); err != nil {
		return nil, err
	}
	return &compiledIf{c: c, f: f, b: b}, nil
}

func (ic *compiledIf) ElseIf(test value.Value, then func() error) error {
	if ic.sealed {
		return nil
	}
	var condErr error
	ic.b.ElseIf(func() ir.Value {
		cond, err := ic.c.testBit(ic.f, test)
		if err != nil {
			condErr = err
			return ic.f.LitBool(false)
		}
		return cond
	})
	if condErr != nil {
		return condErr
	}
	return then()
}

func (ic *compiledIf) Else(then func() error) error {
	if ic.sealed {
		return nil
	}
	ic.sealed = true
	ic.b.Else()
	return then()
}

func (ic *compiledIf) End() error {
	ic.sealed = true
	ic.b.End()
	return nil
}

// CreateFunction lowers a function definition into the module by running
// body against this context inside a fresh function scope. The scope gets
// its own promoted-constant frame; closing the scope discards it, so a
// later scope re-promotes the same buffers.
func (c *CompiledContext) CreateFunction(decl value.FunctionDeclaration, body FunctionBody) (DefinedFunction, error) {
	if value.IsIntrinsicName(decl.Name()) {
		return nil, value.Errf(value.CodeInvalidArgument, "%q is reserved for an intrinsic function", decl.Name())
	}
	key := decl.Key()
	if entry, ok := c.defined[key]; ok {
		return entry.fn, nil
	}
	params := decl.ParameterTypes()
	paramTypes := make([]value.Type, len(params))
	for i := range params {
		paramTypes[i] = params[i].Type()
	}
	retProto, hasRet := decl.ReturnType()
	retType := value.NewType(value.KindVoid)
	if hasRet {
		retType = retProto.Type()
	}
	f := c.mod.BeginFunction(decl.Name(), retType, paramTypes)
	c.fnStack = append(c.fnStack, f)
	c.promoted = append(c.promoted, nil)

	args := make([]value.Value, len(params))
	for i, p := range f.Params() {
		if params[i].IsConstrained() {
			args[i] = value.FromEmittable(p.Type, params[i].Layout(), value.Emittable{Handle: p})
		} else {
			args[i] = value.FromEmittableUnconstrained(p.Type, value.Emittable{Handle: p})
		}
	}
	result, bodyErr := body(c, args)

	var retHandle ir.Value
	var retErr error
	if bodyErr == nil && hasRet {
		if result.IsDefined() {
			retHandle, retErr = c.returnHandle(f, result, retType)
		} else {
			retErr = value.Errf(value.CodeTypeMismatch, "%s declares a %s return, body produced no value", decl.Name(), retType)
		}
	}

	c.promoted = c.promoted[:len(c.promoted)-1]
	c.fnStack = c.fnStack[:len(c.fnStack)-1]
	if bodyErr != nil {
		return nil, bodyErr
	}
	if retErr != nil {
		return nil, retErr
	}
	f.End(retHandle)

	fn := func(args []value.Value) (value.Value, error) {
		return c.Call(decl, args)
	}
	c.defined[key] = compiledFn{decl: decl, ret: retProto, sym: decl.Name(), fn: fn}
	return fn, nil
}

// returnHandle lowers a body result to the declared return type: pointers
// realize as-is, scalars load or become immediates.
func (c *CompiledContext) returnHandle(f *ir.Func, result value.Value, retType value.Type) (ir.Value, error) {
	if retType.Base == value.KindVoid {
		return ir.Value{}, nil
	}
	if result.BaseType() != retType.Base {
		return ir.Value{}, value.Errf(value.CodeTypeMismatch, "function returns %s, body produced %s", retType, result.Type())
	}
	if retType.PointerLevel == 0 {
		if buf, off := result.Constant(); buf != nil {
			return litOf(f, buf, off), nil
		}
	}
	h, err := c.realize(result)
	if err != nil {
		return ir.Value{}, err
	}
	gap := h.Type.PointerLevel - retType.PointerLevel
	switch gap {
	case 0:
		return h, nil
	case 1:
		return f.ValueAtIndex(h, 0), nil
	default:
		return ir.Value{}, value.Errf(value.CodeTypeMismatch, "function returns %s, body produced %s", retType, result.Type())
	}
}

// IsFunctionDefined reports whether a definition exists for decl.
func (c *CompiledContext) IsFunctionDefined(decl value.FunctionDeclaration) bool {
	_, ok := c.defined[decl.Key()]
	return ok
}

// Call dispatches a call on decl: intrinsics lower to runtime math calls
// (or fold when every argument is constant), defined functions emit direct
// calls, and everything else emits an external call against a forward
// declaration.
func (c *CompiledContext) Call(decl value.FunctionDeclaration, args []value.Value) (value.Value, error) {
	allConst := true
	for i := range args {
		if !args[i].IsDefined() {
			return value.Value{}, value.Errf(value.CodeInvalidArgument, "argument %d of %s is undefined", i, decl.Name())
		}
		allConst = allConst && args[i].IsConstant()
	}
	if value.IsIntrinsicName(decl.Name()) {
		if allConst {
			return c.fold.Call(decl, args)
		}
		return c.lowerIntrinsic(decl.Name(), args)
	}
	if entry, ok := c.defined[decl.Key()]; ok {
		return c.emitCall(entry.decl, entry.ret, args, false)
	}
	return c.emitCall(decl, value.Value{}, args, true)
}

// marshalArgs lowers call arguments to the declaration's parameter types.
// An argument whose pointer level sits exactly one above the parameter's
// dereferences once; any larger gap is a type error.
func (c *CompiledContext) marshalArgs(f *ir.Func, decl value.FunctionDeclaration, args []value.Value) ([]ir.Value, error) {
	params := decl.ParameterTypes()
	if len(args) != len(params) {
		return nil, value.Errf(value.CodeSizeMismatch, "%s takes %d arguments, got %d", decl.Name(), len(params), len(args))
	}
	out := make([]ir.Value, len(args))
	for i := range args {
		want := params[i].Type()
		if args[i].BaseType() != want.Base {
			return nil, value.Errf(value.CodeTypeMismatch, "argument %d of %s is %s, want %s", i, decl.Name(), args[i].Type(), want)
		}
		if want.PointerLevel == 0 {
			if buf, off := args[i].Constant(); buf != nil {
				out[i] = litOf(f, buf, off)
				continue
			}
		}
		h, err := c.realize(args[i])
		if err != nil {
			return nil, err
		}
		switch h.Type.PointerLevel - want.PointerLevel {
		case 0:
			out[i] = h
		case 1:
			out[i] = f.ValueAtIndex(h, 0)
		default:
			return nil, value.Errf(value.CodeTypeMismatch, "argument %d of %s has pointer level %d, want %d", i, decl.Name(), h.Type.PointerLevel, want.PointerLevel)
		}
	}
	return out, nil
}

func (c *CompiledContext) emitCall(decl value.FunctionDeclaration, retProto value.Value, args []value.Value, external bool) (value.Value, error) {
	f, err := c.currentFunc()
	if err != nil {
		return value.Value{}, err
	}
	irArgs, err := c.marshalArgs(f, decl, args)
	if err != nil {
		return value.Value{}, err
	}
	ret, hasRet := decl.ReturnType()
	retType := value.NewType(value.KindVoid)
	if hasRet {
		retType = ret.Type()
	}
	if external {
		paramTypes := make([]value.Type, len(irArgs))
		for i := range irArgs {
			paramTypes[i] = irArgs[i].Type
		}
		c.mod.DeclareExtern(decl.Name(), retType, paramTypes)
	}
	r := f.Call(decl.Name(), retType, irArgs)
	if !hasRet {
		return value.Value{}, nil
	}
	if retType.PointerLevel > 0 {
		if hasRet && ret.IsConstrained() {
			return value.FromEmittable(retType, ret.Layout(), value.Emittable{Handle: r}), nil
		}
		return value.FromEmittableUnconstrained(retType, value.Emittable{Handle: r}), nil
	}
	if external {
		// Externals hand back raw scalars; wrap one into addressable storage
		// so the result behaves like every other value.
		out, err := c.Allocate(retType.Base, memlayout.Scalar())
		if err != nil {
			return value.Value{}, err
		}
		outPtr, err := c.realize(out)
		if err != nil {
			return value.Value{}, err
		}
		f.StoreAtIndex(outPtr, 0, r)
		return out, nil
	}
	if retProto.IsConstrained() {
		return value.FromEmittable(retType, retProto.Layout(), value.Emittable{Handle: r}), nil
	}
	return value.FromEmittableUnconstrained(retType, value.Emittable{Handle: r}), nil
}
