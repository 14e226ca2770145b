package emit

import (
	"io"

	"loom/internal/compute"
	"loom/internal/memlayout"
	"loom/internal/value"
)

// HostContext adapts the host-evaluation backend to the Context interface.
// Every operation runs immediately; conditionals execute exactly the first
// arm whose test holds.
type HostContext struct {
	c *compute.Context
}

// NewHostContext creates an immediate-evaluation context for the named
// module.
func NewHostContext(moduleName string) *HostContext {
	return &HostContext{c: compute.NewContext(moduleName)}
}

// Compute exposes the underlying host backend.
func (h *HostContext) Compute() *compute.Context { return h.c }

func (h *HostContext) Allocate(k value.Kind, layout memlayout.MemoryLayout) (value.Value, error) {
	return h.c.Allocate(k, layout)
}

func (h *HostContext) GlobalAllocate(scope GlobalScope, name string, k value.Kind, layout memlayout.MemoryLayout) (value.Value, error) {
	return h.c.GlobalAllocate(scope, name, k, layout)
}

func (h *HostContext) GlobalAllocateData(scope GlobalScope, name string, buf *value.ConstantBuffer, layout memlayout.MemoryLayout) (value.Value, error) {
	return h.c.GlobalAllocateData(scope, name, buf, layout)
}

func (h *HostContext) StoreConstantData(buf *value.ConstantBuffer, layout memlayout.MemoryLayout) (value.Value, error) {
	return h.c.StoreConstantData(buf, layout)
}

func (h *HostContext) CreateFunction(decl value.FunctionDeclaration, body FunctionBody) (DefinedFunction, error) {
	fn, err := h.c.CreateFunction(decl, func(args []value.Value) (value.Value, error) {
		return body(h, args)
	})
	if err != nil {
		return nil, err
	}
	return DefinedFunction(fn), nil
}

func (h *HostContext) IsFunctionDefined(decl value.FunctionDeclaration) bool {
	return h.c.IsFunctionDefined(decl)
}

func (h *HostContext) Call(decl value.FunctionDeclaration, args []value.Value) (value.Value, error) {
	return h.c.Call(decl, args)
}

func (h *HostContext) For(layout memlayout.MemoryLayout, fn func(coords []int) error) error {
	return h.c.For(layout, fn)
}

func (h *HostContext) CopyData(src, dst value.Value) error { return h.c.CopyData(src, dst) }

func (h *HostContext) MoveData(src *value.Value, dst value.Value) error {
	return h.c.MoveData(src, dst)
}

func (h *HostContext) Offset(base value.Value, index int64) (value.Value, error) {
	return h.c.Offset(base, index)
}

func (h *HostContext) UnaryOperation(op value.UnaryOperation, v value.Value) (value.Value, error) {
	return h.c.UnaryOperation(op, v)
}

func (h *HostContext) BinaryOperation(op value.BinaryOperation, dst, src value.Value) (value.Value, error) {
	return h.c.BinaryOperation(op, dst, src)
}

func (h *HostContext) LogicalOperation(op value.LogicalOperation, a, b value.Value) (value.Value, error) {
	return h.c.LogicalOperation(op, a, b)
}

func (h *HostContext) Cast(v value.Value, k value.Kind) (value.Value, error) {
	return h.c.Cast(v, k)
}

// GetType reads the type straight off the value; the host backend never
// rebinds a value to a handle of a different type.
func (h *HostContext) GetType(v value.Value) value.Type { return v.Type() }

func (h *HostContext) DebugDump(w io.Writer, tag string, v value.Value) {
	h.c.DebugDump(w, tag, v)
}

// constantTest reads a boolean scalar test value.
func constantTest(test value.Value) (bool, error) {
	if test.BaseType() != value.KindBool {
		return false, value.Errf(value.CodeTypeMismatch, "conditional test must be boolean, got %s", test.Type())
	}
	if test.Layout().NumElements() != 1 {
		return false, value.Errf(value.CodeInvalidArgument, "conditional test must be scalar, got %d entries", test.Layout().NumElements())
	}
	buf, off := test.Constant()
	if buf == nil {
		return false, value.Errf(value.CodeIllegalState, "conditional test has non-constant data")
	}
	return buf.Int64At(off) != 0, nil
}

type hostIf struct {
	taken bool
}

func (h *HostContext) If(test value.Value, then func() error) (IfContext, error) {
	t, err := constantTest(test)
	if err != nil {
		return nil, err
	}
	b := &hostIf{}
	if t {
		b.taken = true
		if err := then(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *hostIf) ElseIf(test value.Value, then func() error) error {
	if b.taken {
		return nil
	}
	t, err := constantTest(test)
	if err != nil {
		return err
	}
	if t {
		b.taken = true
		return then()
	}
	return nil
}

func (b *hostIf) Else(then func() error) error {
	if b.taken {
		return nil
	}
	b.taken = true
	return then()
}

func (b *hostIf) End() error { return nil }
