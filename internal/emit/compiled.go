package emit

import (
	"fmt"
	"io"
	"strconv"

	"loom/internal/compute"
	"loom/internal/ir"
	"loom/internal/memlayout"
	"loom/internal/value"
)

// promotedConst records one constant buffer materialized into the module,
// keyed on buffer identity. The cache lives per scope: promoting the same
// buffer twice in one scope reuses the materialization, while a new scope
// materializes afresh.
type promotedConst struct {
	buf      *value.ConstantBuffer
	realized ir.Value
}

type compiledFn struct {
	decl value.FunctionDeclaration
	ret  value.Value
	sym  string
	fn   DefinedFunction
}

// CompiledContext lowers emitter operations to a textual IR module. Values
// that stay constant fold through a private host context and only hit the
// module when something emitted needs them.
type CompiledContext struct {
	mod  *ir.Module
	fold *compute.Context

	fnStack  []*ir.Func
	promoted [][]promotedConst

	globals map[string]struct{}
	defined map[string]compiledFn

	constID int
}

// NewCompiledContext creates a compiled context targeting the given triple.
// An empty triple selects the default target.
func NewCompiledContext(moduleName, triple string) *CompiledContext {
	return &CompiledContext{
		mod:      ir.NewModule(moduleName, triple),
		fold:     compute.NewContext(moduleName),
		promoted: [][]promotedConst{nil},
		globals:  make(map[string]struct{}),
		defined:  make(map[string]compiledFn),
	}
}

// Module exposes the IR module under construction.
func (c *CompiledContext) Module() *ir.Module { return c.mod }

// Render returns the module text emitted so far.
func (c *CompiledContext) Render() string { return c.mod.Render() }

func (c *CompiledContext) currentFunc() (*ir.Func, error) {
	if len(c.fnStack) == 0 {
		return nil, value.Errf(value.CodeIllegalState, "operation requires an open function")
	}
	return c.fnStack[len(c.fnStack)-1], nil
}

func (c *CompiledContext) inFunction() bool { return len(c.fnStack) > 0 }

// scopeName qualifies name by module, and by the current function when
// scope demands it.
func (c *CompiledContext) scopeName(scope GlobalScope, name string) (string, error) {
	switch scope {
	case GlobalScopeModule:
		return c.mod.Name() + "_" + name, nil
	case GlobalScopeFunction:
		f, err := c.currentFunc()
		if err != nil {
			return "", value.Errf(value.CodeIllegalState, "function-scoped name %q requested outside any function", name)
		}
		return c.mod.Name() + "_" + f.Name() + "_" + name, nil
	default:
		return "", value.Errf(value.CodeIllegalState, "unknown allocation scope %d", scope)
	}
}

// Allocate reserves zeroed stack storage in the open function.
func (c *CompiledContext) Allocate(k value.Kind, layout memlayout.MemoryLayout) (value.Value, error) {
	f, err := c.currentFunc()
	if err != nil {
		return value.Value{}, value.Errf(value.CodeIllegalState, "local allocation outside any function")
	}
	n := layout.MemorySize()
	ptr := f.Alloca(value.NewType(k), n)
	f.ZeroFill(ptr, n)
	return value.FromEmittable(ptr.Type, layout, value.Emittable{Handle: ptr}), nil
}

// GlobalAllocate emits a named zero-initialized module global.
func (c *CompiledContext) GlobalAllocate(scope GlobalScope, name string, k value.Kind, layout memlayout.MemoryLayout) (value.Value, error) {
	qualified, err := c.scopeName(scope, name)
	if err != nil {
		return value.Value{}, err
	}
	if _, ok := c.globals[qualified]; ok {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "global %q is already defined", qualified)
	}
	h := c.mod.GlobalZero(qualified, value.NewType(k), layout.MemorySize())
	c.globals[qualified] = struct{}{}
	return value.FromEmittable(h.Type, layout, value.Emittable{Handle: h}), nil
}

// GlobalAllocateData emits a named module global initialized from buf.
func (c *CompiledContext) GlobalAllocateData(scope GlobalScope, name string, buf *value.ConstantBuffer, layout memlayout.MemoryLayout) (value.Value, error) {
	qualified, err := c.scopeName(scope, name)
	if err != nil {
		return value.Value{}, err
	}
	if _, ok := c.globals[qualified]; ok {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "global %q is already defined", qualified)
	}
	if buf.Len() < layout.MemorySize() {
		return value.Value{}, value.Errf(value.CodeSizeMismatch, "constant data holds %d entries, layout needs %d", buf.Len(), layout.MemorySize())
	}
	h := c.mod.GlobalData(qualified, buf)
	c.globals[qualified] = struct{}{}
	return value.FromEmittable(h.Type, layout, value.Emittable{Handle: h}), nil
}

// StoreConstantData keeps host data constant; it reaches the module only if
// an emitted operation later consumes it.
func (c *CompiledContext) StoreConstantData(buf *value.ConstantBuffer, layout memlayout.MemoryLayout) (value.Value, error) {
	return c.fold.StoreConstantData(buf, layout)
}

// HasBeenPromoted reports whether v's constant buffer was already
// materialized in the current scope.
func (c *CompiledContext) HasBeenPromoted(v value.Value) bool {
	buf, _ := v.Constant()
	if buf == nil {
		return false
	}
	frame := c.promoted[len(c.promoted)-1]
	for i := range frame {
		if frame[i].buf == buf {
			return true
		}
	}
	return false
}

// PromoteConstantData materializes v's constant buffer into the module and
// returns the base pointer handle. At module scope the data becomes a named
// global; inside a function it additionally copies into a local so emitted
// stores cannot alias other uses of the same buffer. Repeated promotion of
// one buffer within a scope reuses the first materialization.
func (c *CompiledContext) PromoteConstantData(v value.Value) (ir.Value, error) {
	buf, _ := v.Constant()
	if buf == nil {
		return ir.Value{}, value.Errf(value.CodeInvalidArgument, "promotion requires constant data")
	}
	frame := c.promoted[len(c.promoted)-1]
	for i := range frame {
		if frame[i].buf == buf {
			return frame[i].realized, nil
		}
	}
	name := c.mod.Name() + "_c" + strconv.Itoa(c.constID)
	if c.inFunction() {
		f := c.fnStack[len(c.fnStack)-1]
		name = c.mod.Name() + "_" + f.Name() + "_c" + strconv.Itoa(c.constID)
	}
	c.constID++
	g := c.mod.GlobalData(name, buf)
	realized := g
	if c.inFunction() {
		f := c.fnStack[len(c.fnStack)-1]
		local := f.Alloca(value.NewType(buf.Kind), buf.Len())
		f.MemCopy(local, g, buf.Len())
		realized = local
	}
	c.promoted[len(c.promoted)-1] = append(frame, promotedConst{buf: buf, realized: realized})
	return realized, nil
}

// realize returns the IR pointer behind v, promoting constant data first.
// A nonzero view offset applies as pointer arithmetic, which needs an open
// function.
func (c *CompiledContext) realize(v value.Value) (ir.Value, error) {
	if e, ok := v.Emittable(); ok {
		h, ok := e.Handle.(ir.Value)
		if !ok {
			return ir.Value{}, value.Errf(value.CodeIllegalState, "value carries a foreign backend handle %T", e.Handle)
		}
		return h, nil
	}
	buf, off := v.Constant()
	if buf == nil {
		return ir.Value{}, value.Errf(value.CodeInvalidArgument, "cannot realize an undefined value")
	}
	base, err := c.PromoteConstantData(v)
	if err != nil {
		return ir.Value{}, err
	}
	if off == 0 {
		return base, nil
	}
	f, err := c.currentFunc()
	if err != nil {
		return ir.Value{}, value.Errf(value.CodeIllegalState, "offset constant data cannot be realized at module scope")
	}
	return f.PointerOffset(base, f.LitIndex(off)), nil
}

// EnsureEmittable rebinds v to its materialized form, promoting constant
// data into the module.
func (c *CompiledContext) EnsureEmittable(v *value.Value) error {
	if _, ok := v.Emittable(); ok {
		return nil
	}
	h, err := c.realize(*v)
	if err != nil {
		return err
	}
	v.SetData(value.Emittable{Handle: h}, h.Type)
	return nil
}

// GetType recovers the type of a value, preferring the type recorded on the
// IR handle for emitted values so round-trips through opaque handles can be
// validated.
func (c *CompiledContext) GetType(v value.Value) value.Type {
	if e, ok := v.Emittable(); ok {
		if h, ok := e.Handle.(ir.Value); ok {
			return h.Type
		}
	}
	return v.Type()
}

// DebugDump prints constant data through the folding context and emitted
// values by their IR handle.
func (c *CompiledContext) DebugDump(w io.Writer, tag string, v value.Value) {
	if v.IsConstant() {
		c.fold.DebugDump(w, tag, v)
		return
	}
	e, _ := v.Emittable()
	if h, ok := e.Handle.(ir.Value); ok {
		fmt.Fprintf(w, "%s: %s %s\n  <emitted %s>\n", tag, v.Type(), v.Layout(), h.Name)
		return
	}
	fmt.Fprintf(w, "%s: %s %s\n  <emitted>\n", tag, v.Type(), v.Layout())
}
