// Package manifest reads TOML program manifests: a module header plus a
// list of programs, each an initial tensor and a pipeline of steps to apply
// to it.
package manifest

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"fortio.org/safecast"

	"loom/internal/value"
)

// Manifest is one module description.
type Manifest struct {
	Module   Module    `toml:"module"`
	Programs []Program `toml:"program"`
}

// Module is the manifest header.
type Module struct {
	Name   string `toml:"name"`
	Target string `toml:"target"`
}

// Program describes one function: an element kind, a shape, optional
// initial data and an ordered step pipeline.
type Program struct {
	Name  string    `toml:"name"`
	Kind  string    `toml:"kind"`
	Shape []int64   `toml:"shape"`
	Data  []float64 `toml:"data"`
	Steps []Step    `toml:"step"`
}

// Step is one pipeline stage. Op names either a binary operation taking an
// operand, an intrinsic, or "cast" with a target kind.
type Step struct {
	Op      string    `toml:"op"`
	Operand []float64 `toml:"operand"`
	To      string    `toml:"to"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates manifest source.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.Module.Name == "" {
		return fmt.Errorf("manifest: module.name is required")
	}
	if len(m.Programs) == 0 {
		return fmt.Errorf("manifest: at least one program is required")
	}
	seen := make(map[string]struct{}, len(m.Programs))
	for i := range m.Programs {
		p := &m.Programs[i]
		if p.Name == "" {
			return fmt.Errorf("manifest: program %d has no name", i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("manifest: duplicate program %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		if _, err := ParseKind(p.Kind); err != nil {
			return fmt.Errorf("manifest: program %q: %w", p.Name, err)
		}
		if len(p.Shape) == 0 {
			return fmt.Errorf("manifest: program %q has no shape", p.Name)
		}
		n := 1
		for _, s := range p.Shape {
			dim, err := safecast.Convert[int](s)
			if err != nil || dim <= 0 {
				return fmt.Errorf("manifest: program %q has invalid dimension %d", p.Name, s)
			}
			n *= dim
		}
		if len(p.Data) != 0 && len(p.Data) != n {
			return fmt.Errorf("manifest: program %q has %d data entries, shape needs %d", p.Name, len(p.Data), n)
		}
		for j, st := range p.Steps {
			if err := st.validate(); err != nil {
				return fmt.Errorf("manifest: program %q step %d: %w", p.Name, j, err)
			}
		}
	}
	return nil
}

func (s *Step) validate() error {
	switch s.Op {
	case "add", "subtract", "multiply", "divide", "modulus":
		if len(s.Operand) == 0 {
			return fmt.Errorf("%s needs an operand", s.Op)
		}
	case "negate":
	case "cast":
		if _, err := ParseKind(s.To); err != nil {
			return err
		}
	default:
		if !value.IsIntrinsicName(s.Op) {
			return fmt.Errorf("unknown op %q", s.Op)
		}
		if s.Op == "pow" && len(s.Operand) != 1 {
			return fmt.Errorf("pow needs a scalar operand")
		}
	}
	return nil
}

// IntShape converts the program's shape to host ints.
func (p *Program) IntShape() ([]int, error) {
	out := make([]int, len(p.Shape))
	for i, s := range p.Shape {
		dim, err := safecast.Convert[int](s)
		if err != nil {
			return nil, fmt.Errorf("manifest: dimension %d does not fit the host int", s)
		}
		out[i] = dim
	}
	return out, nil
}

// ElementKind parses the program's element kind.
func (p *Program) ElementKind() (value.Kind, error) {
	return ParseKind(p.Kind)
}

// ParseKind maps a manifest kind name to an element kind.
func ParseKind(name string) (value.Kind, error) {
	switch name {
	case "bool":
		return value.KindBool, nil
	case "int8":
		return value.KindInt8, nil
	case "int16":
		return value.KindInt16, nil
	case "int32":
		return value.KindInt32, nil
	case "int64":
		return value.KindInt64, nil
	case "float32":
		return value.KindFloat32, nil
	case "float64":
		return value.KindFloat64, nil
	default:
		return value.KindUndefined, fmt.Errorf("unknown element kind %q", name)
	}
}

// BinaryOp maps a manifest op name to a binary operation.
func BinaryOp(name string) (value.BinaryOperation, bool) {
	switch name {
	case "add":
		return value.BinaryAdd, true
	case "subtract":
		return value.BinarySubtract, true
	case "multiply":
		return value.BinaryMultiply, true
	case "divide":
		return value.BinaryDivide, true
	case "modulus":
		return value.BinaryModulus, true
	default:
		return 0, false
	}
}
