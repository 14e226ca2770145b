package driver

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loom/internal/manifest"
	"loom/internal/modcache"
	"loom/internal/value"
)

const pipelineManifest = `
[module]
name = "demo"

[[program]]
name = "scale"
kind = "float64"
shape = [3]
data = [1.0, 2.0, 3.0]

[[program.step]]
op = "multiply"
operand = [2.0]
`

func outputFloats(t *testing.T, v value.Value) []float64 {
	t.Helper()
	buf, off := v.Constant()
	if buf == nil {
		t.Fatalf("output is not constant: %s", v)
	}
	layout := v.Layout()
	out := make([]float64, 0, layout.NumElements())
	it := layout.Coordinates()
	for coords, ok := it.Next(); ok; coords, ok = it.Next() {
		o, err := layout.LogicalEntryOffset(coords)
		if err != nil {
			t.Fatalf("LogicalEntryOffset: %v", err)
		}
		out = append(out, buf.Float64At(off+o))
	}
	return out
}

func TestEvaluateManifest(t *testing.T) {
	m, err := manifest.Parse([]byte(pipelineManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	evals, err := EvaluateManifest(m)
	if err != nil {
		t.Fatalf("EvaluateManifest: %v", err)
	}
	if len(evals) != 1 || evals[0].Program != "scale" {
		t.Fatalf("evaluations = %+v", evals)
	}
	got := outputFloats(t, evals[0].Output)
	want := []float64{2, 4, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("output = %v, want %v", got, want)
		}
	}
}

func TestEvaluateManifestIntrinsicAndCast(t *testing.T) {
	src := `
[module]
name = "demo"

[[program]]
name = "roots"
kind = "float64"
shape = [2]
data = [4.0, 9.0]

[[program.step]]
op = "sqrt"

[[program.step]]
op = "cast"
to = "int32"
`
	m, err := manifest.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	evals, err := EvaluateManifest(m)
	if err != nil {
		t.Fatalf("EvaluateManifest: %v", err)
	}
	out := evals[0].Output
	if out.BaseType() != value.KindInt32 {
		t.Fatalf("cast result kind = %s", out.BaseType())
	}
	got := outputFloats(t, out)
	if math.Abs(got[0]-2) > 1e-9 || math.Abs(got[1]-3) > 1e-9 {
		t.Fatalf("output = %v, want [2 3]", got)
	}
}

func TestLowerManifest(t *testing.T) {
	m, err := manifest.Parse([]byte(pipelineManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r, err := LowerManifest(m)
	if err != nil {
		t.Fatalf("LowerManifest: %v", err)
	}
	if r.Module != "demo" || len(r.Functions) != 1 || r.Functions[0] != "scale" {
		t.Fatalf("result = %+v", r)
	}
	if !strings.Contains(r.IR, "define ptr @scale(ptr %arg0)") {
		t.Fatalf("missing function definition:\n%s", r.IR)
	}
	if !strings.Contains(r.IR, "fmul double") {
		t.Fatalf("missing multiply instruction:\n%s", r.IR)
	}
}

func TestBuildAllUsesCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.toml")
	if err := os.WriteFile(path, []byte(pipelineManifest), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cache, err := modcache.OpenAt(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}

	first, err := BuildAll(context.Background(), []string{path}, cache)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if first[0].CacheHit {
		t.Fatalf("first build must not hit the cache")
	}

	second, err := BuildAll(context.Background(), []string{path}, cache)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if !second[0].CacheHit {
		t.Fatalf("second build should hit the cache")
	}
	if second[0].IR != first[0].IR {
		t.Fatalf("cached IR differs from built IR")
	}
}

func TestBuildAllWithoutCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.toml")
	if err := os.WriteFile(path, []byte(pipelineManifest), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	results, err := BuildAll(context.Background(), []string{path}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if results[0].CacheHit || results[0].Module != "demo" {
		t.Fatalf("result = %+v", results[0])
	}
}

func TestBuildAllReportsBadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("[module]\nname = \"x\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := BuildAll(context.Background(), []string{path}, nil); err == nil {
		t.Fatalf("invalid manifest should fail the build")
	}
}
