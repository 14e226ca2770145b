package emit

import (
	"strings"
	"testing"

	"loom/internal/memlayout"
	"loom/internal/value"
)

func floatConstant(t *testing.T, ctx Context, data []float64, sizes ...int) value.Value {
	t.Helper()
	v, err := ctx.StoreConstantData(value.ConstantFloat64(data), memlayout.New(sizes...))
	if err != nil {
		t.Fatalf("StoreConstantData: %v", err)
	}
	return v
}

func TestCompiledConstantFoldStaysConstant(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	a := floatConstant(t, ctx, []float64{1, 2, 3}, 3)
	b := floatConstant(t, ctx, []float64{2, 2, 2}, 3)
	out, err := ctx.BinaryOperation(value.BinaryMultiply, a, b)
	if err != nil {
		t.Fatalf("BinaryOperation: %v", err)
	}
	if !out.IsConstant() {
		t.Fatalf("constant operands should fold without emission")
	}
	buf, off := out.Constant()
	if buf.Float64At(off+1) != 4 {
		t.Fatalf("folded entry = %g, want 4", buf.Float64At(off+1))
	}
	if strings.Contains(ctx.Render(), "define") {
		t.Fatalf("folding must not emit functions:\n%s", ctx.Render())
	}
}

func scalarFloatDecl(name string) value.FunctionDeclaration {
	proto := value.New(value.Type{Base: value.KindFloat64, PointerLevel: 1}, memlayout.New(3))
	return value.NewFunctionDeclaration(name).Parameters(proto).Returns(proto)
}

func TestCreateFunctionEmitsDefinition(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	decl := scalarFloatDecl("scale")
	_, err := ctx.CreateFunction(decl, func(fc Context, args []value.Value) (value.Value, error) {
		two := floatConstant(t, fc, []float64{2, 2, 2}, 3)
		return fc.BinaryOperation(value.BinaryMultiply, args[0], two)
	})
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}
	if !ctx.IsFunctionDefined(decl) {
		t.Fatalf("declaration should resolve after CreateFunction")
	}
	got := ctx.Render()
	if !strings.Contains(got, "define ptr @scale(ptr %arg0)") {
		t.Fatalf("missing definition:\n%s", got)
	}
	if !strings.Contains(got, "fmul double") {
		t.Fatalf("missing elementwise multiply:\n%s", got)
	}
	if !strings.Contains(got, "ret ptr") {
		t.Fatalf("missing pointer return:\n%s", got)
	}
}

func TestCreateFunctionIsIdempotent(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	decl := scalarFloatDecl("scale")
	body := func(fc Context, args []value.Value) (value.Value, error) {
		return args[0], nil
	}
	if _, err := ctx.CreateFunction(decl, body); err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}
	if _, err := ctx.CreateFunction(decl, body); err != nil {
		t.Fatalf("repeated CreateFunction: %v", err)
	}
	if n := strings.Count(ctx.Render(), "define "); n != 1 {
		t.Fatalf("expected one definition, found %d:\n%s", n, ctx.Render())
	}
}

func TestCreateFunctionRejectsIntrinsicNames(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	_, err := ctx.CreateFunction(value.NewFunctionDeclaration("pow"), func(fc Context, args []value.Value) (value.Value, error) {
		return value.Value{}, nil
	})
	if !value.IsCode(err, value.CodeInvalidArgument) {
		t.Fatalf("err = %v, want E1001", err)
	}
}

func TestPromotionCachePerScope(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	buf := value.ConstantFloat64([]float64{1, 2})
	layout := memlayout.New(2)

	decl1 := scalarFloatDecl("f1")
	_, err := ctx.CreateFunction(decl1, func(fc Context, args []value.Value) (value.Value, error) {
		v, err := fc.StoreConstantData(buf, layout)
		if err != nil {
			return value.Value{}, err
		}
		h1, err := ctx.PromoteConstantData(v)
		if err != nil {
			return value.Value{}, err
		}
		h2, err := ctx.PromoteConstantData(v)
		if err != nil {
			return value.Value{}, err
		}
		if h1 != h2 {
			t.Fatalf("repeated promotion in one scope yielded %s and %s", h1.Name, h2.Name)
		}
		if !ctx.HasBeenPromoted(v) {
			t.Fatalf("HasBeenPromoted should report the cached buffer")
		}
		return args[0], nil
	})
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}

	decl2 := scalarFloatDecl("f2")
	_, err = ctx.CreateFunction(decl2, func(fc Context, args []value.Value) (value.Value, error) {
		v, err := fc.StoreConstantData(buf, layout)
		if err != nil {
			return value.Value{}, err
		}
		if ctx.HasBeenPromoted(v) {
			t.Fatalf("promotion cache must not survive scope close")
		}
		if _, err := ctx.PromoteConstantData(v); err != nil {
			return value.Value{}, err
		}
		return args[0], nil
	})
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}

	got := ctx.Render()
	if !strings.Contains(got, "@m_f1_c0 = global [2 x double]") {
		t.Fatalf("missing first promotion global:\n%s", got)
	}
	if !strings.Contains(got, "@m_f2_c1 = global [2 x double]") {
		t.Fatalf("missing second promotion global:\n%s", got)
	}
}

func TestGlobalAllocateDuplicate(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	layout := memlayout.New(2)
	if _, err := ctx.GlobalAllocate(GlobalScopeModule, "weights", value.KindFloat64, layout); err != nil {
		t.Fatalf("GlobalAllocate: %v", err)
	}
	if _, err := ctx.GlobalAllocate(GlobalScopeModule, "weights", value.KindFloat64, layout); !value.IsCode(err, value.CodeInvalidArgument) {
		t.Fatalf("duplicate global: err = %v, want E1001", err)
	}
	if !strings.Contains(ctx.Render(), "@m_weights = global [2 x double] zeroinitializer") {
		t.Fatalf("missing qualified global:\n%s", ctx.Render())
	}
}

func TestAllocateOutsideFunction(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	if _, err := ctx.Allocate(value.KindFloat64, memlayout.New(2)); !value.IsCode(err, value.CodeIllegalState) {
		t.Fatalf("err = %v, want E1004", err)
	}
}

func TestIntrinsicLoweringEmitsMathCalls(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	decl := scalarFloatDecl("pipeline")
	_, err := ctx.CreateFunction(decl, func(fc Context, args []value.Value) (value.Value, error) {
		rooted, err := fc.Call(value.NewFunctionDeclaration("sqrt"), []value.Value{args[0]})
		if err != nil {
			return value.Value{}, err
		}
		exp := floatConstant(t, fc, []float64{2}, 1)
		return fc.Call(value.NewFunctionDeclaration("pow"), []value.Value{rooted, exp})
	})
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}
	got := ctx.Render()
	if !strings.Contains(got, "declare double @sqrt(double)") {
		t.Fatalf("missing sqrt declaration:\n%s", got)
	}
	if !strings.Contains(got, "call double @pow(double") {
		t.Fatalf("missing pow call:\n%s", got)
	}
}

func TestExternalCallMarshalling(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	scalarParam := value.NewUnconstrained(value.NewType(value.KindFloat64))
	extern := value.NewFunctionDeclaration("host_sink").Parameters(scalarParam)
	decl := scalarFloatDecl("caller")
	_, err := ctx.CreateFunction(decl, func(fc Context, args []value.Value) (value.Value, error) {
		scalar, err := fc.Allocate(value.KindFloat64, memlayout.Scalar())
		if err != nil {
			return value.Value{}, err
		}
		// Pointer one level above the parameter dereferences once.
		if _, err := fc.Call(extern, []value.Value{scalar}); err != nil {
			return value.Value{}, err
		}
		return args[0], nil
	})
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}
	got := ctx.Render()
	if !strings.Contains(got, "declare void @host_sink(double)") {
		t.Fatalf("missing external declaration:\n%s", got)
	}
	if !strings.Contains(got, "call void @host_sink(double") {
		t.Fatalf("missing external call:\n%s", got)
	}
}

func TestExternalCallPointerLevelGap(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	scalarParam := value.NewUnconstrained(value.NewType(value.KindFloat64))
	extern := value.NewFunctionDeclaration("host_sink").Parameters(scalarParam)
	// Parameter prototype two levels above the expectation.
	deep := value.NewUnconstrained(value.Type{Base: value.KindFloat64, PointerLevel: 2})
	decl := value.NewFunctionDeclaration("caller2").Parameters(deep)
	_, err := ctx.CreateFunction(decl, func(fc Context, args []value.Value) (value.Value, error) {
		_, err := fc.Call(extern, []value.Value{args[0]})
		return value.Value{}, err
	})
	if !value.IsCode(err, value.CodeTypeMismatch) {
		t.Fatalf("err = %v, want E1003", err)
	}
}

func TestExternalCallArityMismatch(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	extern := value.NewFunctionDeclaration("host_sink").
		Parameters(value.NewUnconstrained(value.NewType(value.KindFloat64)))
	decl := scalarFloatDecl("caller3")
	_, err := ctx.CreateFunction(decl, func(fc Context, args []value.Value) (value.Value, error) {
		_, err := fc.Call(extern, nil)
		return value.Value{}, err
	})
	if !value.IsCode(err, value.CodeSizeMismatch) {
		t.Fatalf("err = %v, want E1002", err)
	}
}

func TestCompiledIfEmitsBranches(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	decl := scalarFloatDecl("branchy")
	_, err := ctx.CreateFunction(decl, func(fc Context, args []value.Value) (value.Value, error) {
		five := floatConstant(t, fc, []float64{5}, 1)
		test, err := fc.LogicalOperation(value.LogicalGreaterThan, args[0], five)
		if err != nil {
			return value.Value{}, err
		}
		ic, err := fc.If(test, func() error {
			_, err := fc.BinaryOperation(value.BinaryAdd, args[0], five)
			return err
		})
		if err != nil {
			return value.Value{}, err
		}
		if err := ic.Else(func() error { return nil }); err != nil {
			return value.Value{}, err
		}
		if err := ic.End(); err != nil {
			return value.Value{}, err
		}
		return args[0], nil
	})
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}
	got := ctx.Render()
	for _, want := range []string{"br i1", "if0.then0:", "if0.end:"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q:\n%s", want, got)
		}
	}
}

func TestCreateFunctionRejectsMissingReturn(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	decl := scalarFloatDecl("empty")
	_, err := ctx.CreateFunction(decl, func(fc Context, args []value.Value) (value.Value, error) {
		return value.Value{}, nil
	})
	if !value.IsCode(err, value.CodeTypeMismatch) {
		t.Fatalf("err = %v, want E1003", err)
	}
	if strings.Contains(ctx.Render(), "@empty") {
		t.Fatalf("failed definition must not land in the module:\n%s", ctx.Render())
	}
}

func TestCompiledGlobalScopesShareNames(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	layout := memlayout.New(2)
	if _, err := ctx.GlobalAllocate(GlobalScopeModule, "x", value.KindFloat64, layout); err != nil {
		t.Fatalf("GlobalAllocate: %v", err)
	}
	decl := scalarFloatDecl("f")
	_, err := ctx.CreateFunction(decl, func(fc Context, args []value.Value) (value.Value, error) {
		if _, err := fc.GlobalAllocate(GlobalScopeFunction, "x", value.KindFloat64, layout); err != nil {
			return value.Value{}, err
		}
		return args[0], nil
	})
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}
	got := ctx.Render()
	for _, want := range []string{
		"@m_x = global [2 x double] zeroinitializer",
		"@m_f_x = global [2 x double] zeroinitializer",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q:\n%s", want, got)
		}
	}
}

func TestCompiledCopyRejectsNonPointerSource(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	decl := scalarFloatDecl("guard")
	_, err := ctx.CreateFunction(decl, func(fc Context, args []value.Value) (value.Value, error) {
		five := floatConstant(t, fc, []float64{5}, 1)
		// The comparison result is a raw bit, not addressable storage.
		test, err := fc.LogicalOperation(value.LogicalGreaterThan, args[0], five)
		if err != nil {
			return value.Value{}, err
		}
		out, err := fc.Allocate(value.KindBool, memlayout.Scalar())
		if err != nil {
			return value.Value{}, err
		}
		if err := fc.CopyData(test, out); err != nil {
			return value.Value{}, err
		}
		return args[0], nil
	})
	if !value.IsCode(err, value.CodeTypeMismatch) {
		t.Fatalf("err = %v, want E1003", err)
	}
	if strings.Contains(ctx.Render(), "@guard") {
		t.Fatalf("failed definition must not land in the module:\n%s", ctx.Render())
	}
}

func TestCompiledElseIfAfterElseIsSkipped(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	decl := scalarFloatDecl("arms")
	_, err := ctx.CreateFunction(decl, func(fc Context, args []value.Value) (value.Value, error) {
		five := floatConstant(t, fc, []float64{5}, 1)
		test, err := fc.LogicalOperation(value.LogicalGreaterThan, args[0], five)
		if err != nil {
			return value.Value{}, err
		}
		ic, err := fc.If(test, func() error { return nil })
		if err != nil {
			return value.Value{}, err
		}
		if err := ic.Else(func() error { return nil }); err != nil {
			return value.Value{}, err
		}
		ran := false
		if err := ic.ElseIf(test, func() error {
			ran = true
			return nil
		}); err != nil {
			return value.Value{}, err
		}
		if ran {
			t.Fatalf("arm opened after else must not run")
		}
		if err := ic.End(); err != nil {
			return value.Value{}, err
		}
		return args[0], nil
	})
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}
}

func TestCompiledSelfCopyIsNoop(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	decl := scalarFloatDecl("ident")
	_, err := ctx.CreateFunction(decl, func(fc Context, args []value.Value) (value.Value, error) {
		if err := fc.CopyData(args[0], args[0]); err != nil {
			return value.Value{}, err
		}
		return args[0], nil
	})
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}
	if strings.Contains(ctx.Render(), "memcpy") {
		t.Fatalf("self copy should emit nothing:\n%s", ctx.Render())
	}
}

func TestGetTypeRoundtrip(t *testing.T) {
	ctx := NewCompiledContext("m", "")
	decl := scalarFloatDecl("typed")
	_, err := ctx.CreateFunction(decl, func(fc Context, args []value.Value) (value.Value, error) {
		local, err := fc.Allocate(value.KindInt32, memlayout.New(4))
		if err != nil {
			return value.Value{}, err
		}
		got := fc.GetType(local)
		if got.Base != value.KindInt32 || got.PointerLevel != 1 {
			t.Fatalf("GetType(alloca) = %s", got)
		}
		return args[0], nil
	})
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}

	host := NewHostContext("m")
	v := floatConstant(t, host, []float64{1}, 1)
	if got := host.GetType(v); got.Base != value.KindFloat64 || got.PointerLevel != 1 {
		t.Fatalf("GetType(constant) = %s", got)
	}
}

func TestHostIfRunsFirstTrueArm(t *testing.T) {
	ctx := NewHostContext("m")
	boolScalar := func(b bool) value.Value {
		v, err := ctx.StoreConstantData(value.ConstantBool([]bool{b}), memlayout.Scalar())
		if err != nil {
			t.Fatalf("StoreConstantData: %v", err)
		}
		return v
	}
	var ran []string
	ic, err := ctx.If(boolScalar(false), func() error {
		ran = append(ran, "then")
		return nil
	})
	if err != nil {
		t.Fatalf("If: %v", err)
	}
	if err := ic.ElseIf(boolScalar(true), func() error {
		ran = append(ran, "elseif")
		return nil
	}); err != nil {
		t.Fatalf("ElseIf: %v", err)
	}
	if err := ic.Else(func() error {
		ran = append(ran, "else")
		return nil
	}); err != nil {
		t.Fatalf("Else: %v", err)
	}
	if err := ic.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if len(ran) != 1 || ran[0] != "elseif" {
		t.Fatalf("arms run = %v, want [elseif]", ran)
	}
}

func TestHostIfRejectsNonBooleanTest(t *testing.T) {
	ctx := NewHostContext("m")
	v := floatConstant(t, ctx, []float64{1}, 1)
	if _, err := ctx.If(v, func() error { return nil }); !value.IsCode(err, value.CodeTypeMismatch) {
		t.Fatalf("err = %v, want E1003", err)
	}
}

func TestBackendsAgreeOnPipeline(t *testing.T) {
	// The same body must fold on the host and emit under compilation
	// without semantic drift in the folded prefix.
	run := func(ctx Context) (value.Value, error) {
		a := floatConstant(t, ctx, []float64{1, 2, 3}, 3)
		b := floatConstant(t, ctx, []float64{2, 2, 2}, 3)
		mul, err := ctx.BinaryOperation(value.BinaryMultiply, a, b)
		if err != nil {
			return value.Value{}, err
		}
		return ctx.Cast(mul, value.KindInt32)
	}
	hostOut, err := run(NewHostContext("m"))
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	compOut, err := run(NewCompiledContext("m", ""))
	if err != nil {
		t.Fatalf("compiled: %v", err)
	}
	hb, ho := hostOut.Constant()
	cb, co := compOut.Constant()
	if hb == nil || cb == nil {
		t.Fatalf("both results should stay constant")
	}
	for i := 0; i < 3; i++ {
		if hb.Int64At(ho+i) != cb.Int64At(co+i) {
			t.Fatalf("backends disagree at %d: %d vs %d", i, hb.Int64At(ho+i), cb.Int64At(co+i))
		}
	}
}
