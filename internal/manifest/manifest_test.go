package manifest

import (
	"strings"
	"testing"

	"loom/internal/value"
)

const validManifest = `
[module]
name = "demo"
target = "x86_64-linux-gnu"

[[program]]
name = "scale"
kind = "float64"
shape = [2, 3]
data = [1.0, 2.0, 3.0, 4.0, 5.0, 6.0]

[[program.step]]
op = "multiply"
operand = [2.0]

[[program.step]]
op = "sqrt"

[[program.step]]
op = "cast"
to = "float32"
`

func TestParseValidManifest(t *testing.T) {
	m, err := Parse([]byte(validManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Module.Name != "demo" || m.Module.Target != "x86_64-linux-gnu" {
		t.Fatalf("module header = %+v", m.Module)
	}
	if len(m.Programs) != 1 {
		t.Fatalf("programs = %d, want 1", len(m.Programs))
	}
	p := &m.Programs[0]
	if len(p.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(p.Steps))
	}
	kind, err := p.ElementKind()
	if err != nil || kind != value.KindFloat64 {
		t.Fatalf("kind = %s, %v", kind, err)
	}
	shape, err := p.IntShape()
	if err != nil || len(shape) != 2 || shape[0] != 2 || shape[1] != 3 {
		t.Fatalf("shape = %v, %v", shape, err)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing module name",
			src:  "[[program]]\nname = \"p\"\nkind = \"float64\"\nshape = [1]\n",
			want: "module.name",
		},
		{
			name: "no programs",
			src:  "[module]\nname = \"demo\"\n",
			want: "at least one program",
		},
		{
			name: "bad kind",
			src:  "[module]\nname = \"demo\"\n[[program]]\nname = \"p\"\nkind = \"complex\"\nshape = [1]\n",
			want: "unknown element kind",
		},
		{
			name: "data length mismatch",
			src:  "[module]\nname = \"demo\"\n[[program]]\nname = \"p\"\nkind = \"float64\"\nshape = [3]\ndata = [1.0]\n",
			want: "data entries",
		},
		{
			name: "unknown op",
			src:  "[module]\nname = \"demo\"\n[[program]]\nname = \"p\"\nkind = \"float64\"\nshape = [1]\n[[program.step]]\nop = \"fold\"\n",
			want: "unknown op",
		},
		{
			name: "binary op without operand",
			src:  "[module]\nname = \"demo\"\n[[program]]\nname = \"p\"\nkind = \"float64\"\nshape = [1]\n[[program.step]]\nop = \"add\"\n",
			want: "needs an operand",
		},
		{
			name: "duplicate program",
			src:  "[module]\nname = \"demo\"\n[[program]]\nname = \"p\"\nkind = \"float64\"\nshape = [1]\n[[program]]\nname = \"p\"\nkind = \"float64\"\nshape = [1]\n",
			want: "duplicate program",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.src))
			if err == nil || !strings.Contains(err.Error(), c.want) {
				t.Fatalf("err = %v, want substring %q", err, c.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	for name, want := range map[string]value.Kind{
		"bool":    value.KindBool,
		"int32":   value.KindInt32,
		"float32": value.KindFloat32,
		"float64": value.KindFloat64,
	} {
		got, err := ParseKind(name)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %s, %v", name, got, err)
		}
	}
	if _, err := ParseKind("void"); err == nil {
		t.Fatalf("void must not be a manifest kind")
	}
}

func TestBinaryOpMapping(t *testing.T) {
	op, ok := BinaryOp("multiply")
	if !ok || op != value.BinaryMultiply {
		t.Fatalf("BinaryOp(multiply) = %v, %t", op, ok)
	}
	if _, ok := BinaryOp("sqrt"); ok {
		t.Fatalf("intrinsics must not map to binary ops")
	}
}
