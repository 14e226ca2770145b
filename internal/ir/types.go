// Package ir builds compiled modules as textual LLVM-flavoured IR. It is the
// instruction-emission surface the compiled emitter context targets; nothing
// above this package inspects the text it produces.
package ir

import (
	"fmt"
	"strconv"

	"loom/internal/value"
)

// Value is a typed handle to an emitted IR entity: an SSA temporary, a
// global, a parameter, or an immediate literal.
type Value struct {
	Name string
	Type value.Type
}

// IsZero reports whether the handle is unset.
func (v Value) IsZero() bool { return v.Name == "" }

// valueType maps a type to its SSA value representation. Pointers are
// opaque; booleans are i1 in registers.
func valueType(t value.Type) string {
	if t.PointerLevel > 0 {
		return "ptr"
	}
	return kindValueType(t.Base)
}

func kindValueType(k value.Kind) string {
	switch k {
	case value.KindBool:
		return "i1"
	case value.KindInt8:
		return "i8"
	case value.KindInt16:
		return "i16"
	case value.KindInt32:
		return "i32"
	case value.KindInt64:
		return "i64"
	case value.KindFloat32:
		return "float"
	case value.KindFloat64:
		return "double"
	case value.KindVoid:
		return "void"
	default:
		return "void"
	}
}

// storageType maps a type to its in-memory element representation. Booleans
// are stored as i8 so buffers keep a byte-addressable memory model.
func storageType(t value.Type) string {
	if t.PointerLevel > 1 {
		return "ptr"
	}
	if t.Base == value.KindBool {
		return "i8"
	}
	return kindValueType(t.Base)
}

// storageSize returns the byte size of one stored element.
func storageSize(t value.Type) int {
	if t.PointerLevel > 1 {
		return 8
	}
	if t.Base == value.KindBool {
		return 1
	}
	return t.Base.Size()
}

// litInt renders an integer immediate of the given kind.
func litInt(k value.Kind, v int64) string {
	if k == value.KindBool {
		if v != 0 {
			return "true"
		}
		return "false"
	}
	return strconv.FormatInt(v, 10)
}

// litFloat renders a float immediate. LLVM accepts scientific notation for
// both float and double literals.
func litFloat(v float64) string {
	return fmt.Sprintf("%e", v)
}

// litElem renders one element of a constant buffer as an initializer entry.
func litElem(buf *value.ConstantBuffer, i int) string {
	switch buf.Kind {
	case value.KindBool:
		if buf.Bool[i] {
			return "1"
		}
		return "0"
	case value.KindFloat32, value.KindFloat64:
		return litFloat(buf.Float64At(i))
	default:
		return strconv.FormatInt(buf.Int64At(i), 10)
	}
}
