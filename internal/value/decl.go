package value

import "strings"

// FunctionDeclaration is the structural identity of a function: name,
// ordered parameter prototypes and optional return prototype. Two
// declarations are equal iff name, parameter types and return type match;
// the identity deduplicates definitions and dispatches calls.
type FunctionDeclaration struct {
	name   string
	params []Value
	ret    Value
	hasRet bool
}

// NewFunctionDeclaration starts a declaration for the given function name.
func NewFunctionDeclaration(name string) FunctionDeclaration {
	return FunctionDeclaration{name: name}
}

// Parameters sets the ordered parameter prototypes.
func (d FunctionDeclaration) Parameters(params ...Value) FunctionDeclaration {
	d.params = params
	return d
}

// Returns sets the return prototype.
func (d FunctionDeclaration) Returns(ret Value) FunctionDeclaration {
	d.ret = ret
	d.hasRet = true
	return d
}

// Name returns the function name.
func (d FunctionDeclaration) Name() string { return d.name }

// ParameterTypes returns the ordered parameter prototypes.
func (d FunctionDeclaration) ParameterTypes() []Value { return d.params }

// ReturnType returns the return prototype; ok is false for void functions.
func (d FunctionDeclaration) ReturnType() (Value, bool) { return d.ret, d.hasRet }

// Key returns a canonical string identity for map lookups, covering name,
// parameter types and return type.
func (d FunctionDeclaration) Key() string {
	var sb strings.Builder
	sb.WriteString(d.name)
	sb.WriteString("(")
	for i, p := range d.params {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(p.Type().String())
	}
	sb.WriteString(")")
	if d.hasRet {
		sb.WriteString("->")
		sb.WriteString(d.ret.Type().String())
	}
	return sb.String()
}

// Equal reports structural equality of two declarations.
func (d FunctionDeclaration) Equal(other FunctionDeclaration) bool {
	return d.Key() == other.Key()
}
