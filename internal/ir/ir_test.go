package ir

import (
	"strings"
	"testing"

	"loom/internal/value"
)

func TestRenderModuleHeader(t *testing.T) {
	m := NewModule("demo", "")
	got := m.Render()
	if !strings.Contains(got, "; ModuleID = 'demo'") {
		t.Fatalf("missing module id:\n%s", got)
	}
	if !strings.Contains(got, `target triple = "x86_64-linux-gnu"`) {
		t.Fatalf("missing default triple:\n%s", got)
	}
}

func TestGlobalRendering(t *testing.T) {
	m := NewModule("demo", "")
	zero := m.GlobalZero("demo_buf", value.NewType(value.KindFloat64), 4)
	if zero.Name != "@demo_buf" || zero.Type.PointerLevel != 1 {
		t.Fatalf("GlobalZero handle = %s %s", zero.Name, zero.Type)
	}
	data := m.GlobalData("demo_init", value.ConstantInt32([]int32{1, 2}))
	if data.Type.Base != value.KindInt32 {
		t.Fatalf("GlobalData handle kind = %s", data.Type)
	}
	got := m.Render()
	if !strings.Contains(got, "@demo_buf = global [4 x double] zeroinitializer") {
		t.Fatalf("missing zero global:\n%s", got)
	}
	if !strings.Contains(got, "@demo_init = global [2 x i32] [i32 1, i32 2]") {
		t.Fatalf("missing data global:\n%s", got)
	}
}

func TestBooleanStorageDuality(t *testing.T) {
	m := NewModule("demo", "")
	f := m.BeginFunction("flags", value.NewType(value.KindVoid), nil)
	ptr := f.Alloca(value.NewType(value.KindBool), 2)
	loaded := f.ValueAtIndex(ptr, 0)
	f.StoreAtIndex(ptr, 1, loaded)
	f.End(Value{})
	got := m.Render()
	if !strings.Contains(got, "alloca i8, i64 2") {
		t.Fatalf("booleans should allocate as bytes:\n%s", got)
	}
	if !strings.Contains(got, "trunc i8") {
		t.Fatalf("boolean load should truncate to i1:\n%s", got)
	}
	if !strings.Contains(got, "zext i1") {
		t.Fatalf("boolean store should extend to i8:\n%s", got)
	}
}

func TestOpSelectsFloatFamily(t *testing.T) {
	m := NewModule("demo", "")
	f := m.BeginFunction("ops", value.NewType(value.KindVoid), nil)
	a := f.LitFloat(value.KindFloat64, 1)
	b := f.LitFloat(value.KindFloat64, 2)
	if _, err := f.Op(value.BinaryAdd, a, b); err != nil {
		t.Fatalf("Op: %v", err)
	}
	x := f.LitInt(value.KindInt32, 1)
	y := f.LitInt(value.KindInt32, 2)
	if _, err := f.Op(value.BinaryDivide, x, y); err != nil {
		t.Fatalf("Op: %v", err)
	}
	if _, err := f.Op(value.BinaryModulus, a, b); err == nil {
		t.Fatalf("float modulus should be rejected")
	}
	f.End(Value{})
	got := m.Render()
	if !strings.Contains(got, "fadd double") {
		t.Fatalf("missing fadd:\n%s", got)
	}
	if !strings.Contains(got, "sdiv i32") {
		t.Fatalf("missing sdiv:\n%s", got)
	}
}

func TestCastInstructionSelection(t *testing.T) {
	m := NewModule("demo", "")
	f := m.BeginFunction("casts", value.NewType(value.KindVoid), nil)
	i := f.LitInt(value.KindInt32, 7)
	f.Cast(i, value.KindFloat64)
	f.Cast(i, value.KindInt64)
	f.Cast(i, value.KindInt8)
	d := f.LitFloat(value.KindFloat64, 1.5)
	f.Cast(d, value.KindFloat32)
	f.Cast(d, value.KindBool)
	f.End(Value{})
	got := m.Render()
	for _, want := range []string{"sitofp i32", "sext i32", "trunc i32", "fptrunc double", "fcmp one double"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q:\n%s", want, got)
		}
	}
}

func TestIfChainLabels(t *testing.T) {
	m := NewModule("demo", "")
	f := m.BeginFunction("branches", value.NewType(value.KindVoid), nil)
	b := f.If(f.LitBool(true))
	b.ElseIf(func() Value { return f.LitBool(false) })
	b.Else()
	b.End()
	f.End(Value{})
	got := m.Render()
	for _, want := range []string{
		"br i1 true, label %if0.then0, label %if0.next0",
		"if0.then0:",
		"if0.next0:",
		"br i1 false, label %if0.then1, label %if0.next1",
		"if0.end:",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q:\n%s", want, got)
		}
	}
}

func TestMathDeclarationVariants(t *testing.T) {
	m := NewModule("demo", "")
	f := m.BeginFunction("mathy", value.NewType(value.KindVoid), nil)
	f.CallMath("sin", value.KindFloat64, f.LitFloat(value.KindFloat64, 1))
	f.CallMath("sin", value.KindFloat32, f.LitFloat(value.KindFloat32, 1))
	f.End(Value{})
	got := m.Render()
	if !strings.Contains(got, "declare double @sin(double)") {
		t.Fatalf("missing double declaration:\n%s", got)
	}
	if !strings.Contains(got, "declare float @sinf(float)") {
		t.Fatalf("missing float declaration:\n%s", got)
	}
	if !strings.Contains(got, "call double @sin(") {
		t.Fatalf("missing call:\n%s", got)
	}
}

func TestDeclareExternDeduplicates(t *testing.T) {
	m := NewModule("demo", "")
	params := []value.Type{{Base: value.KindFloat64}}
	m.DeclareExtern("host_log", value.NewType(value.KindVoid), params)
	m.DeclareExtern("host_log", value.NewType(value.KindVoid), params)
	got := m.Render()
	if strings.Count(got, "declare void @host_log(double)") != 1 {
		t.Fatalf("external declaration should appear once:\n%s", got)
	}
}
