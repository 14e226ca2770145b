package value

import "fmt"

// ConstantBuffer owns an in-process buffer of one element kind. A Value
// backed by a ConstantBuffer has not been materialized into any backend;
// buffer identity (the pointer) is what constant promotion caches key on.
type ConstantBuffer struct {
	Kind Kind
	Bool []bool
	I8   []int8
	I16  []int16
	I32  []int32
	I64  []int64
	F32  []float32
	F64  []float64
}

// NewConstantBuffer allocates a zeroed buffer of n elements.
func NewConstantBuffer(k Kind, n int) (*ConstantBuffer, error) {
	b := &ConstantBuffer{Kind: k}
	switch k {
	case KindBool:
		b.Bool = make([]bool, n)
	case KindInt8:
		b.I8 = make([]int8, n)
	case KindInt16:
		b.I16 = make([]int16, n)
	case KindInt32:
		b.I32 = make([]int32, n)
	case KindInt64:
		b.I64 = make([]int64, n)
	case KindFloat32:
		b.F32 = make([]float32, n)
	case KindFloat64:
		b.F64 = make([]float64, n)
	default:
		return nil, Errf(CodeInvalidArgument, "cannot allocate a buffer of kind %s", k)
	}
	return b, nil
}

// ConstantBool wraps existing boolean data.
func ConstantBool(data []bool) *ConstantBuffer {
	return &ConstantBuffer{Kind: KindBool, Bool: data}
}

// ConstantInt8 wraps existing int8 data.
func ConstantInt8(data []int8) *ConstantBuffer {
	return &ConstantBuffer{Kind: KindInt8, I8: data}
}

// ConstantInt16 wraps existing int16 data.
func ConstantInt16(data []int16) *ConstantBuffer {
	return &ConstantBuffer{Kind: KindInt16, I16: data}
}

// ConstantInt32 wraps existing int32 data.
func ConstantInt32(data []int32) *ConstantBuffer {
	return &ConstantBuffer{Kind: KindInt32, I32: data}
}

// ConstantInt64 wraps existing int64 data.
func ConstantInt64(data []int64) *ConstantBuffer {
	return &ConstantBuffer{Kind: KindInt64, I64: data}
}

// ConstantFloat32 wraps existing float32 data.
func ConstantFloat32(data []float32) *ConstantBuffer {
	return &ConstantBuffer{Kind: KindFloat32, F32: data}
}

// ConstantFloat64 wraps existing float64 data.
func ConstantFloat64(data []float64) *ConstantBuffer {
	return &ConstantBuffer{Kind: KindFloat64, F64: data}
}

// Len returns the number of elements in the buffer.
func (b *ConstantBuffer) Len() int {
	switch b.Kind {
	case KindBool:
		return len(b.Bool)
	case KindInt8:
		return len(b.I8)
	case KindInt16:
		return len(b.I16)
	case KindInt32:
		return len(b.I32)
	case KindInt64:
		return len(b.I64)
	case KindFloat32:
		return len(b.F32)
	case KindFloat64:
		return len(b.F64)
	default:
		return 0
	}
}

// Float64At returns the element at i widened to float64. Booleans widen to
// 0 or 1.
func (b *ConstantBuffer) Float64At(i int) float64 {
	switch b.Kind {
	case KindBool:
		if b.Bool[i] {
			return 1
		}
		return 0
	case KindInt8:
		return float64(b.I8[i])
	case KindInt16:
		return float64(b.I16[i])
	case KindInt32:
		return float64(b.I32[i])
	case KindInt64:
		return float64(b.I64[i])
	case KindFloat32:
		return float64(b.F32[i])
	case KindFloat64:
		return b.F64[i]
	default:
		panic(fmt.Sprintf("value: Float64At on kind %s", b.Kind))
	}
}

// Int64At returns the element at i widened to int64; floats truncate.
func (b *ConstantBuffer) Int64At(i int) int64 {
	switch b.Kind {
	case KindBool:
		if b.Bool[i] {
			return 1
		}
		return 0
	case KindInt8:
		return int64(b.I8[i])
	case KindInt16:
		return int64(b.I16[i])
	case KindInt32:
		return int64(b.I32[i])
	case KindInt64:
		return b.I64[i]
	case KindFloat32:
		return int64(b.F32[i])
	case KindFloat64:
		return int64(b.F64[i])
	default:
		panic(fmt.Sprintf("value: Int64At on kind %s", b.Kind))
	}
}

// SetFromFloat64 stores v into the element at i, narrowing to the buffer's
// kind. Floats store to integer kinds by truncation; booleans store v != 0.
func (b *ConstantBuffer) SetFromFloat64(i int, v float64) {
	switch b.Kind {
	case KindBool:
		b.Bool[i] = v != 0
	case KindInt8:
		b.I8[i] = int8(v)
	case KindInt16:
		b.I16[i] = int16(v)
	case KindInt32:
		b.I32[i] = int32(v)
	case KindInt64:
		b.I64[i] = int64(v)
	case KindFloat32:
		b.F32[i] = float32(v)
	case KindFloat64:
		b.F64[i] = v
	default:
		panic(fmt.Sprintf("value: SetFromFloat64 on kind %s", b.Kind))
	}
}

// SetFromInt64 stores v into the element at i, narrowing to the buffer's kind.
func (b *ConstantBuffer) SetFromInt64(i int, v int64) {
	switch b.Kind {
	case KindBool:
		b.Bool[i] = v != 0
	case KindInt8:
		b.I8[i] = int8(v)
	case KindInt16:
		b.I16[i] = int16(v)
	case KindInt32:
		b.I32[i] = int32(v)
	case KindInt64:
		b.I64[i] = v
	case KindFloat32:
		b.F32[i] = float32(v)
	case KindFloat64:
		b.F64[i] = float64(v)
	default:
		panic(fmt.Sprintf("value: SetFromInt64 on kind %s", b.Kind))
	}
}

// Copy copies one element from src at srcIdx into b at dstIdx. Kinds must
// match.
func (b *ConstantBuffer) Copy(dstIdx int, src *ConstantBuffer, srcIdx int) error {
	if b.Kind != src.Kind {
		return Errf(CodeTypeMismatch, "copy between %s and %s buffers", src.Kind, b.Kind)
	}
	switch b.Kind {
	case KindBool:
		b.Bool[dstIdx] = src.Bool[srcIdx]
	case KindInt8:
		b.I8[dstIdx] = src.I8[srcIdx]
	case KindInt16:
		b.I16[dstIdx] = src.I16[srcIdx]
	case KindInt32:
		b.I32[dstIdx] = src.I32[srcIdx]
	case KindInt64:
		b.I64[dstIdx] = src.I64[srcIdx]
	case KindFloat32:
		b.F32[dstIdx] = src.F32[srcIdx]
	case KindFloat64:
		b.F64[dstIdx] = src.F64[srcIdx]
	default:
		return Errf(CodeIllegalState, "copy on kind %s", b.Kind)
	}
	return nil
}

// FormatAt renders the element at i for human-readable dumps.
func (b *ConstantBuffer) FormatAt(i int) string {
	switch b.Kind {
	case KindBool:
		return fmt.Sprintf("%t", b.Bool[i])
	case KindInt8:
		return fmt.Sprintf("%d", b.I8[i])
	case KindInt16:
		return fmt.Sprintf("%d", b.I16[i])
	case KindInt32:
		return fmt.Sprintf("%d", b.I32[i])
	case KindInt64:
		return fmt.Sprintf("%d", b.I64[i])
	case KindFloat32:
		return fmt.Sprintf("%g", b.F32[i])
	case KindFloat64:
		return fmt.Sprintf("%g", b.F64[i])
	default:
		return "?"
	}
}
