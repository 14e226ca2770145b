// Package value defines the typed value abstraction shared by every emitter
// backend: element kinds, pointer-carrying types, constant buffers, the Value
// container and function declaration identities.
package value

import "fmt"

// Kind identifies the element kind of a value.
type Kind uint8

const (
	// KindUndefined marks an empty or unbound value.
	KindUndefined Kind = iota
	// KindBool is a boolean element.
	KindBool
	// KindInt8 is a signed 8-bit integer element.
	KindInt8
	// KindInt16 is a signed 16-bit integer element.
	KindInt16
	// KindInt32 is a signed 32-bit integer element.
	KindInt32
	// KindInt64 is a signed 64-bit integer element.
	KindInt64
	// KindFloat32 is a single-precision float element.
	KindFloat32
	// KindFloat64 is a double-precision float element.
	KindFloat64
	// KindVoid marks the absence of a value, used for function returns.
	KindVoid
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindBool:
		return "bool"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindVoid:
		return "void"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// IsFloating reports whether the kind is a floating-point element kind.
func (k Kind) IsFloating() bool {
	return k == KindFloat32 || k == KindFloat64
}

// IsIntegral reports whether the kind is a signed integer element kind.
func (k Kind) IsIntegral() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether arithmetic is defined for the kind.
func (k Kind) IsNumeric() bool {
	return k.IsIntegral() || k.IsFloating()
}

// Size returns the storage size of one element in bytes.
func (k Kind) Size() int {
	switch k {
	case KindBool, KindInt8:
		return 1
	case KindInt16:
		return 2
	case KindInt32, KindFloat32:
		return 4
	case KindInt64, KindFloat64:
		return 8
	default:
		return 0
	}
}

// Type pairs an element kind with a pointer indirection level: level 0 is a
// plain value, level 1 a pointer to value, and so on.
type Type struct {
	Base         Kind
	PointerLevel int
}

// NewType returns a value type with no indirection.
func NewType(k Kind) Type { return Type{Base: k} }

// PointerTo returns the type with one more level of indirection.
func (t Type) PointerTo() Type {
	return Type{Base: t.Base, PointerLevel: t.PointerLevel + 1}
}

// Dereference returns the type with one less level of indirection.
func (t Type) Dereference() Type {
	if t.PointerLevel == 0 {
		return t
	}
	return Type{Base: t.Base, PointerLevel: t.PointerLevel - 1}
}

// IsFloatingPoint reports a float value with no indirection.
func (t Type) IsFloatingPoint() bool {
	return t.PointerLevel == 0 && t.Base.IsFloating()
}

// IsFloatingPointPointer reports a single-level pointer to float.
func (t Type) IsFloatingPointPointer() bool {
	return t.PointerLevel == 1 && t.Base.IsFloating()
}

func (t Type) String() string {
	s := t.Base.String()
	for i := 0; i < t.PointerLevel; i++ {
		s += "*"
	}
	return s
}
