package value

// Intrinsic function names are reserved: a FunctionDeclaration carrying one
// of these names can never be user-defined, and calls on them dispatch to
// the backend's builtin lowering.
var intrinsicNames = map[string]struct{}{
	"abs":  {},
	"cos":  {},
	"exp":  {},
	"log":  {},
	"max":  {},
	"min":  {},
	"pow":  {},
	"sin":  {},
	"sqrt": {},
	"tanh": {},
}

// IsIntrinsicName reports whether name is reserved for a builtin numeric
// function.
func IsIntrinsicName(name string) bool {
	_, ok := intrinsicNames[name]
	return ok
}

// IntrinsicNames returns the reserved names in no particular order.
func IntrinsicNames() []string {
	out := make([]string, 0, len(intrinsicNames))
	for name := range intrinsicNames {
		out = append(out, name)
	}
	return out
}
