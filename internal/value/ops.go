package value

import "fmt"

// UnaryOperation enumerates unary arithmetic operations.
type UnaryOperation uint8

const (
	// UnaryNegate is arithmetic negation.
	UnaryNegate UnaryOperation = iota
)

// String returns a human-readable name for the operation.
func (op UnaryOperation) String() string {
	switch op {
	case UnaryNegate:
		return "negate"
	default:
		return fmt.Sprintf("UnaryOperation(%d)", op)
	}
}

// BinaryOperation enumerates elementwise binary arithmetic operations.
type BinaryOperation uint8

const (
	// BinaryAdd is elementwise addition.
	BinaryAdd BinaryOperation = iota
	// BinarySubtract is elementwise subtraction.
	BinarySubtract
	// BinaryMultiply is elementwise multiplication.
	BinaryMultiply
	// BinaryDivide is elementwise division.
	BinaryDivide
	// BinaryModulus is elementwise integer remainder; undefined on floats.
	BinaryModulus
)

// String returns a human-readable name for the operation.
func (op BinaryOperation) String() string {
	switch op {
	case BinaryAdd:
		return "add"
	case BinarySubtract:
		return "subtract"
	case BinaryMultiply:
		return "multiply"
	case BinaryDivide:
		return "divide"
	case BinaryModulus:
		return "modulus"
	default:
		return fmt.Sprintf("BinaryOperation(%d)", op)
	}
}

// LogicalOperation enumerates elementwise comparisons. A logical operation
// reduces the per-element results by AND into a single boolean scalar.
type LogicalOperation uint8

const (
	// LogicalEquality tests elementwise equality.
	LogicalEquality LogicalOperation = iota
	// LogicalInequality tests elementwise inequality.
	LogicalInequality
	// LogicalGreaterThan tests elementwise strict greater-than.
	LogicalGreaterThan
	// LogicalGreaterThanOrEqual tests elementwise greater-or-equal.
	LogicalGreaterThanOrEqual
	// LogicalLessThan tests elementwise strict less-than.
	LogicalLessThan
	// LogicalLessThanOrEqual tests elementwise less-or-equal.
	LogicalLessThanOrEqual
)

// String returns a human-readable name for the comparison.
func (op LogicalOperation) String() string {
	switch op {
	case LogicalEquality:
		return "equals"
	case LogicalInequality:
		return "notequals"
	case LogicalGreaterThan:
		return "greaterthan"
	case LogicalGreaterThanOrEqual:
		return "greaterthanorequal"
	case LogicalLessThan:
		return "lessthan"
	case LogicalLessThanOrEqual:
		return "lessthanorequal"
	default:
		return fmt.Sprintf("LogicalOperation(%d)", op)
	}
}
