package compute

import (
	"loom/internal/value"
)

// CreateFunction registers a function definition and returns a callable that
// executes body immediately. Registration is idempotent on the declaration's
// structural identity.
func (c *Context) CreateFunction(decl value.FunctionDeclaration, body FunctionBody) (DefinedFunction, error) {
	if value.IsIntrinsicName(decl.Name()) {
		return nil, value.Errf(value.CodeInvalidArgument, "%q is reserved for an intrinsic function", decl.Name())
	}
	key := decl.Key()
	if entry, ok := c.defined[key]; ok {
		return entry.fn, nil
	}
	params := decl.ParameterTypes()
	fn := func(args []value.Value) (value.Value, error) {
		if len(args) != len(params) {
			return value.Value{}, value.Errf(value.CodeSizeMismatch, "%s takes %d arguments, got %d", decl.Name(), len(params), len(args))
		}
		for i := range args {
			if args[i].BaseType() != params[i].BaseType() {
				return value.Value{}, value.Errf(value.CodeTypeMismatch, "argument %d of %s is %s, want %s", i, decl.Name(), args[i].Type(), params[i].Type())
			}
		}
		c.pushFunction(decl.Name())
		defer c.popFunction()
		return body(args)
	}
	c.defined[key] = definedEntry{decl: decl, fn: fn}
	return fn, nil
}

// IsFunctionDefined reports whether a definition exists for decl.
func (c *Context) IsFunctionDefined(decl value.FunctionDeclaration) bool {
	_, ok := c.defined[decl.Key()]
	return ok
}

// Call dispatches a call on decl: intrinsics evaluate in-process, defined
// functions run immediately, and anything else is an error since the host
// backend has no external linkage.
func (c *Context) Call(decl value.FunctionDeclaration, args []value.Value) (value.Value, error) {
	for i := range args {
		if !args[i].IsDefined() {
			return value.Value{}, value.Errf(value.CodeInvalidArgument, "argument %d of %s is undefined", i, decl.Name())
		}
		if !args[i].IsConstant() {
			return value.Value{}, value.Errf(value.CodeIllegalState, "argument %d of %s has non-constant data", i, decl.Name())
		}
	}
	if value.IsIntrinsicName(decl.Name()) {
		return c.evalIntrinsic(decl.Name(), args)
	}
	if entry, ok := c.defined[decl.Key()]; ok {
		return entry.fn(args)
	}
	return value.Value{}, value.Errf(value.CodeInvalidArgument, "%s is not defined; external calls need a compiled module", decl.Name())
}
