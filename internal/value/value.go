package value

import (
	"fmt"

	"loom/internal/memlayout"
)

// DataKind identifies which variant of the underlying data a Value carries.
type DataKind uint8

const (
	// DataUndefined marks an uninitialized or unbound value.
	DataUndefined DataKind = iota
	// DataConstant marks host-resident constant data.
	DataConstant
	// DataEmittable marks an opaque handle owned by the active backend.
	DataEmittable
)

// String returns a human-readable name for the data kind.
func (k DataKind) String() string {
	switch k {
	case DataUndefined:
		return "undefined"
	case DataConstant:
		return "constant"
	case DataEmittable:
		return "emittable"
	default:
		return fmt.Sprintf("DataKind(%d)", k)
	}
}

// Emittable is a backend-owned opaque handle. It carries no semantics beyond
// identity; the owning backend recovers its own representation from Handle.
type Emittable struct {
	Handle any
}

// Data is the tagged payload of a Value: exactly one of undefined, a view
// into a constant buffer, or an emittable handle.
type Data struct {
	Kind DataKind

	// DataConstant only: the owning buffer and the element offset of the
	// view's first entry. Offset is nonzero for values produced by pointer
	// arithmetic over constant data.
	Const  *ConstantBuffer
	Offset int

	// DataEmittable only.
	Emit Emittable
}

// Value is the central entity: a (type, layout, underlying-data) triple.
// Copies share the underlying buffer or handle; there is no deep copy of
// backend state.
type Value struct {
	typ         Type
	layout      memlayout.MemoryLayout
	constrained bool
	data        Data
}

// New returns a declared but unbound value of the given type and layout.
func New(t Type, layout memlayout.MemoryLayout) Value {
	return Value{typ: t, layout: layout, constrained: true}
}

// NewUnconstrained returns a declared value with no layout constraint, used
// for declaration prototypes whose shape the caller supplies later.
func NewUnconstrained(t Type) Value {
	return Value{typ: t}
}

// FromConstant wraps a constant buffer as a value. The value's type is a
// single-level pointer to the buffer's element kind.
func FromConstant(buf *ConstantBuffer, layout memlayout.MemoryLayout) Value {
	return Value{
		typ:         Type{Base: buf.Kind, PointerLevel: 1},
		layout:      layout,
		constrained: true,
		data:        Data{Kind: DataConstant, Const: buf},
	}
}

// FromEmittable wraps a backend handle as a value.
func FromEmittable(t Type, layout memlayout.MemoryLayout, e Emittable) Value {
	return Value{
		typ:         t,
		layout:      layout,
		constrained: true,
		data:        Data{Kind: DataEmittable, Emit: e},
	}
}

// FromEmittableUnconstrained wraps a backend handle with no layout, used for
// scalar operation results.
func FromEmittableUnconstrained(t Type, e Emittable) Value {
	return Value{
		typ:  t,
		data: Data{Kind: DataEmittable, Emit: e},
	}
}

// Type returns the value's type.
func (v Value) Type() Type { return v.typ }

// BaseType returns the element kind.
func (v Value) BaseType() Kind { return v.typ.Base }

// PointerLevel returns the indirection level.
func (v Value) PointerLevel() int { return v.typ.PointerLevel }

// IsFloatingPoint reports a float value with no indirection.
func (v Value) IsFloatingPoint() bool { return v.typ.IsFloatingPoint() }

// IsFloatingPointPointer reports a single-level pointer to float.
func (v Value) IsFloatingPointPointer() bool { return v.typ.IsFloatingPointPointer() }

// Layout returns the value's layout. Scalar and unconstrained values report
// the canonical single-entry layout.
func (v Value) Layout() memlayout.MemoryLayout {
	if !v.constrained {
		return memlayout.Scalar()
	}
	return v.layout
}

// IsConstrained reports whether the value carries an explicit layout.
func (v Value) IsConstrained() bool { return v.constrained }

// SetLayout constrains the value to the given layout.
func (v *Value) SetLayout(layout memlayout.MemoryLayout) {
	v.layout = layout
	v.constrained = true
}

// Data returns the underlying tagged payload.
func (v Value) Data() Data { return v.data }

// IsDefined reports whether the value is bound to data.
func (v Value) IsDefined() bool { return v.data.Kind != DataUndefined }

// IsEmpty reports whether the value was never declared: no type, no data.
func (v Value) IsEmpty() bool {
	return v.typ.Base == KindUndefined && v.data.Kind == DataUndefined
}

// IsConstant reports whether the value has never been materialized by a
// backend. Undefined values count as constant.
func (v Value) IsConstant() bool { return v.data.Kind != DataEmittable }

// Constant returns the constant buffer view, or nil for non-constant data.
func (v Value) Constant() (*ConstantBuffer, int) {
	if v.data.Kind != DataConstant {
		return nil, 0
	}
	return v.data.Const, v.data.Offset
}

// Emittable returns the backend handle; ok is false for non-emittable data.
func (v Value) Emittable() (Emittable, bool) {
	if v.data.Kind != DataEmittable {
		return Emittable{}, false
	}
	return v.data.Emit, true
}

// SetData rebinds the value to a backend handle, preserving type base kind
// recovery through the handle's owner.
func (v *Value) SetData(e Emittable, t Type) {
	v.data = Data{Kind: DataEmittable, Emit: e}
	v.typ = t
}

// SetConstant rebinds the value to a constant buffer view.
func (v *Value) SetConstant(buf *ConstantBuffer, offset int) {
	v.data = Data{Kind: DataConstant, Const: buf, Offset: offset}
	v.typ = Type{Base: buf.Kind, PointerLevel: 1}
}

// Reset clears the binding; the value becomes undefined. Used when a source
// is logically consumed by a move.
func (v *Value) Reset() {
	v.data = Data{}
}

// TypeCompatible reports whether two values agree on element kind. Pointer
// levels are checked separately per operation.
func TypeCompatible(a, b Value) bool {
	return a.BaseType() == b.BaseType()
}

func (v Value) String() string {
	return fmt.Sprintf("value{%s %s %s}", v.typ, v.Layout(), v.data.Kind)
}
