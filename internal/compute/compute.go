// Package compute evaluates emitter operations immediately over host memory.
// It is the constant-only backend: every value flowing through it must carry
// host-resident data, and the compiled backend delegates here whenever all
// operands of an operation are constant.
package compute

import (
	"loom/internal/memlayout"
	"loom/internal/value"
)

// FunctionBody is a function definition executed directly when called.
type FunctionBody func(args []value.Value) (value.Value, error)

// DefinedFunction invokes a previously created function.
type DefinedFunction func(args []value.Value) (value.Value, error)

type definedEntry struct {
	decl value.FunctionDeclaration
	fn   DefinedFunction
}

// Context is the host-evaluation backend. One Context owns its global table
// and defined-function table; nothing is shared across contexts.
type Context struct {
	moduleName string
	fnStack    []string
	globals    map[string]value.Value
	defined    map[string]definedEntry
}

// NewContext creates a host-evaluation context for the named module.
func NewContext(moduleName string) *Context {
	return &Context{
		moduleName: moduleName,
		globals:    make(map[string]value.Value),
		defined:    make(map[string]definedEntry),
	}
}

// ModuleName returns the name used to qualify global allocations.
func (c *Context) ModuleName() string { return c.moduleName }

// Allocate reserves a zero-initialized host buffer shaped by layout.
func (c *Context) Allocate(k value.Kind, layout memlayout.MemoryLayout) (value.Value, error) {
	buf, err := value.NewConstantBuffer(k, layout.MemorySize())
	if err != nil {
		return value.Value{}, err
	}
	return value.FromConstant(buf, layout), nil
}

// GlobalScope selects how a named allocation is qualified.
type GlobalScope uint8

const (
	// GlobalScopeModule qualifies by module name only.
	GlobalScopeModule GlobalScope = iota
	// GlobalScopeFunction additionally qualifies by the current function.
	GlobalScopeFunction
)

// ScopeAdjustedName qualifies name by the requested scope.
func (c *Context) ScopeAdjustedName(scope GlobalScope, name string) (string, error) {
	switch scope {
	case GlobalScopeModule:
		return c.moduleName + "_" + name, nil
	case GlobalScopeFunction:
		if len(c.fnStack) == 0 {
			return "", value.Errf(value.CodeIllegalState, "function-scoped name %q requested outside any function", name)
		}
		return c.moduleName + "_" + c.fnStack[len(c.fnStack)-1] + "_" + name, nil
	default:
		return "", value.Errf(value.CodeIllegalState, "unknown allocation scope %d", scope)
	}
}

// GlobalAllocate registers a named zero-initialized value. A collision on
// the scope-qualified name is a hard error.
func (c *Context) GlobalAllocate(scope GlobalScope, name string, k value.Kind, layout memlayout.MemoryLayout) (value.Value, error) {
	qualified, err := c.ScopeAdjustedName(scope, name)
	if err != nil {
		return value.Value{}, err
	}
	if _, ok := c.globals[qualified]; ok {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "global %q is already defined", qualified)
	}
	v, err := c.Allocate(k, layout)
	if err != nil {
		return value.Value{}, err
	}
	c.globals[qualified] = v
	return v, nil
}

// GlobalAllocateData registers a named value initialized from buf.
func (c *Context) GlobalAllocateData(scope GlobalScope, name string, buf *value.ConstantBuffer, layout memlayout.MemoryLayout) (value.Value, error) {
	qualified, err := c.ScopeAdjustedName(scope, name)
	if err != nil {
		return value.Value{}, err
	}
	if _, ok := c.globals[qualified]; ok {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "global %q is already defined", qualified)
	}
	v := value.FromConstant(buf, layout)
	c.globals[qualified] = v
	return v, nil
}

// GlobalValue looks up a previously registered global.
func (c *Context) GlobalValue(scope GlobalScope, name string) (value.Value, bool) {
	qualified, err := c.ScopeAdjustedName(scope, name)
	if err != nil {
		return value.Value{}, false
	}
	v, ok := c.globals[qualified]
	return v, ok
}

// StoreConstantData wraps host data as a value without further allocation.
func (c *Context) StoreConstantData(buf *value.ConstantBuffer, layout memlayout.MemoryLayout) (value.Value, error) {
	if buf == nil || buf.Len() == 0 {
		return value.Value{}, value.Errf(value.CodeInvalidArgument, "empty constant data")
	}
	if buf.Len() < layout.MemorySize() {
		return value.Value{}, value.Errf(value.CodeSizeMismatch, "constant data holds %d entries, layout needs %d", buf.Len(), layout.MemorySize())
	}
	return value.FromConstant(buf, layout), nil
}

// ConstantData returns the buffer view behind a constant value.
func (c *Context) ConstantData(v value.Value) (*value.ConstantBuffer, int, error) {
	buf, off := v.Constant()
	if buf == nil {
		return nil, 0, value.Errf(value.CodeIllegalState, "value is not backed by constant data")
	}
	return buf, off, nil
}

// For invokes fn once per logical coordinate in deterministic order, last
// dimension fastest.
func (c *Context) For(layout memlayout.MemoryLayout, fn func(coords []int) error) error {
	it := layout.Coordinates()
	for coords, ok := it.Next(); ok; coords, ok = it.Next() {
		if err := fn(coords); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) pushFunction(name string) { c.fnStack = append(c.fnStack, name) }

func (c *Context) popFunction() {
	if len(c.fnStack) > 0 {
		c.fnStack = c.fnStack[:len(c.fnStack)-1]
	}
}
