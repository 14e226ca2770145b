package ir

import (
	"fmt"
	"strings"

	"loom/internal/value"
)

// Module accumulates globals, external declarations and finished function
// bodies, and renders them as one IR translation unit. Globals may be added
// while a function body is still open (constant promotion does this), so
// bodies buffer separately and assembly happens at render time.
type Module struct {
	name   string
	triple string

	declOrder []string
	decls     map[string]string
	globals   []string
	funcs     []string
}

// NewModule creates an empty module for the given target triple.
func NewModule(name, triple string) *Module {
	if triple == "" {
		triple = "x86_64-linux-gnu"
	}
	return &Module{
		name:   name,
		triple: triple,
		decls:  make(map[string]string),
	}
}

// Name returns the module name used for scope-qualified globals.
func (m *Module) Name() string { return m.name }

// GlobalZero emits a zero-initialized global array of count elements and
// returns a pointer handle to its first element.
func (m *Module) GlobalZero(name string, t value.Type, count int) Value {
	elem := storageType(value.Type{Base: t.Base, PointerLevel: t.PointerLevel + 1})
	m.globals = append(m.globals, fmt.Sprintf("@%s = global [%d x %s] zeroinitializer", name, count, elem))
	return Value{Name: "@" + name, Type: value.Type{Base: t.Base, PointerLevel: t.PointerLevel + 1}}
}

// GlobalData emits a global array initialized from a constant buffer and
// returns a pointer handle to its first element.
func (m *Module) GlobalData(name string, buf *value.ConstantBuffer) Value {
	t := value.Type{Base: buf.Kind, PointerLevel: 1}
	elem := storageType(t)
	elems := make([]string, buf.Len())
	for i := range elems {
		elems[i] = fmt.Sprintf("%s %s", elem, litElem(buf, i))
	}
	m.globals = append(m.globals, fmt.Sprintf("@%s = global [%d x %s] [%s]", name, buf.Len(), elem, strings.Join(elems, ", ")))
	return Value{Name: "@" + name, Type: t}
}

// DeclareExtern records a forward declaration for an external function.
// Redeclaring the same symbol is a no-op.
func (m *Module) DeclareExtern(sym string, ret value.Type, params []value.Type) {
	paramTypes := make([]string, len(params))
	for i, p := range params {
		paramTypes[i] = valueType(p)
	}
	m.ensureDecl(sym, fmt.Sprintf("declare %s @%s(%s)", valueType(ret), sym, strings.Join(paramTypes, ", ")))
}

func (m *Module) ensureDecl(sym, line string) {
	if _, ok := m.decls[sym]; ok {
		return
	}
	m.decls[sym] = line
	m.declOrder = append(m.declOrder, sym)
}

// mathDecl ensures a libm-style runtime declaration and returns the symbol.
// Float32 operands use the float variant of the routine; everything else is
// evaluated in double.
func (m *Module) mathDecl(base string, kind value.Kind, arity int) string {
	sym := base
	ty := "double"
	if kind == value.KindFloat32 {
		sym += "f"
		ty = "float"
	}
	params := make([]string, arity)
	for i := range params {
		params[i] = ty
	}
	m.ensureDecl(sym, fmt.Sprintf("declare %s @%s(%s)", ty, sym, strings.Join(params, ", ")))
	return sym
}

func (m *Module) ensureMemset() {
	m.ensureDecl("llvm.memset.p0.i64", "declare void @llvm.memset.p0.i64(ptr, i8, i64, i1)")
}

func (m *Module) ensureMemcpy() {
	m.ensureDecl("llvm.memcpy.p0.p0.i64", "declare void @llvm.memcpy.p0.p0.i64(ptr, ptr, i64, i1)")
}

// Render assembles the module text: target triple, declarations, globals,
// then function bodies in definition order.
func (m *Module) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; ModuleID = '%s'\n", m.name)
	fmt.Fprintf(&sb, "target triple = %q\n\n", m.triple)
	for _, sym := range m.declOrder {
		sb.WriteString(m.decls[sym])
		sb.WriteString("\n")
	}
	if len(m.declOrder) > 0 {
		sb.WriteString("\n")
	}
	for _, g := range m.globals {
		sb.WriteString(g)
		sb.WriteString("\n")
	}
	if len(m.globals) > 0 {
		sb.WriteString("\n")
	}
	for _, f := range m.funcs {
		sb.WriteString(f)
		sb.WriteString("\n")
	}
	return sb.String()
}
