// Package emit defines the backend-independent emitter context: one
// interface with two implementations. HostContext evaluates every operation
// immediately over host memory; CompiledContext lowers the same operations
// to an IR module, folding constants through a private host context. Code
// written against Context behaves identically on both.
package emit

import (
	"io"

	"loom/internal/compute"
	"loom/internal/memlayout"
	"loom/internal/value"
)

// GlobalScope selects how named allocations are qualified.
type GlobalScope = compute.GlobalScope

// Scope constants shared with the host backend.
const (
	GlobalScopeModule   = compute.GlobalScopeModule
	GlobalScopeFunction = compute.GlobalScopeFunction
)

// FunctionBody defines a function in terms of the active context, so one
// body definition serves both backends.
type FunctionBody func(ctx Context, args []value.Value) (value.Value, error)

// DefinedFunction invokes a previously created function: immediately on the
// host backend, as an emitted call on the compiled backend.
type DefinedFunction func(args []value.Value) (value.Value, error)

// IfContext extends a conditional started with Context.If. Arms chain in
// program order; End closes the chain and must always be called.
type IfContext interface {
	ElseIf(test value.Value, then func() error) error
	Else(then func() error) error
	End() error
}

// Context is the emitter abstraction every backend implements.
type Context interface {
	// Allocate reserves zero-initialized storage shaped by layout.
	Allocate(k value.Kind, layout memlayout.MemoryLayout) (value.Value, error)
	// GlobalAllocate reserves named zero-initialized storage. Reusing a
	// scope-qualified name is an error.
	GlobalAllocate(scope GlobalScope, name string, k value.Kind, layout memlayout.MemoryLayout) (value.Value, error)
	// GlobalAllocateData reserves named storage initialized from buf.
	GlobalAllocateData(scope GlobalScope, name string, buf *value.ConstantBuffer, layout memlayout.MemoryLayout) (value.Value, error)
	// StoreConstantData wraps host data as a value without materializing it.
	StoreConstantData(buf *value.ConstantBuffer, layout memlayout.MemoryLayout) (value.Value, error)

	// CreateFunction registers a function definition and returns a callable.
	// Registration is idempotent on the declaration's structural identity.
	CreateFunction(decl value.FunctionDeclaration, body FunctionBody) (DefinedFunction, error)
	// IsFunctionDefined reports whether a definition exists for decl.
	IsFunctionDefined(decl value.FunctionDeclaration) bool
	// Call dispatches a call: intrinsics first, then defined functions,
	// then whatever external linkage the backend supports.
	Call(decl value.FunctionDeclaration, args []value.Value) (value.Value, error)

	// For visits every active coordinate of layout in deterministic order,
	// last dimension fastest.
	For(layout memlayout.MemoryLayout, fn func(coords []int) error) error
	// CopyData copies src's active entries into dst.
	CopyData(src, dst value.Value) error
	// MoveData copies src into dst and consumes src.
	MoveData(src *value.Value, dst value.Value) error
	// Offset returns an unconstrained view into base shifted by index entries.
	Offset(base value.Value, index int64) (value.Value, error)

	UnaryOperation(op value.UnaryOperation, v value.Value) (value.Value, error)
	// BinaryOperation applies dst = dst op src elementwise; an undefined dst
	// is allocated from src's shape first.
	BinaryOperation(op value.BinaryOperation, dst, src value.Value) (value.Value, error)
	// LogicalOperation compares elementwise and AND-reduces to a boolean
	// scalar.
	LogicalOperation(op value.LogicalOperation, a, b value.Value) (value.Value, error)
	// Cast converts elementwise to kind k, preserving the layout.
	Cast(v value.Value, k value.Kind) (value.Value, error)
	// GetType recovers the type of a value as the backend sees it, including
	// values bound to opaque handles.
	GetType(v value.Value) value.Type

	// If opens a conditional on a boolean scalar test and runs then as its
	// first arm.
	If(test value.Value, then func() error) (IfContext, error)

	// DebugDump writes a human-readable rendering of v.
	DebugDump(w io.Writer, tag string, v value.Value)
}
