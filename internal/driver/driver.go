// Package driver turns program manifests into results: lowered IR modules
// through the compiled backend, or evaluated tensors through the host
// backend. Both paths share one program body written against the emitter
// interface.
package driver

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"loom/internal/emit"
	"loom/internal/manifest"
	"loom/internal/memlayout"
	"loom/internal/modcache"
	"loom/internal/value"
)

// Result is one lowered module.
type Result struct {
	Path      string
	Module    string
	Triple    string
	IR        string
	Functions []string
	CacheHit  bool
}

// Evaluation is one program executed on the host backend.
type Evaluation struct {
	Program string
	Output  value.Value
}

// programFunction builds the declaration and backend-independent body for
// one program. The same body lowers to IR under a compiled context and
// executes immediately under a host context.
func programFunction(p *manifest.Program) (value.FunctionDeclaration, emit.FunctionBody, error) {
	kind, err := p.ElementKind()
	if err != nil {
		return value.FunctionDeclaration{}, nil, err
	}
	shape, err := p.IntShape()
	if err != nil {
		return value.FunctionDeclaration{}, nil, err
	}
	layout := memlayout.New(shape...)

	// Casts are the only steps that change the element kind.
	retKind := kind
	for _, st := range p.Steps {
		if st.Op == "cast" {
			retKind, _ = manifest.ParseKind(st.To)
		}
	}
	decl := value.NewFunctionDeclaration(p.Name).
		Parameters(value.New(value.Type{Base: kind, PointerLevel: 1}, layout)).
		Returns(value.New(value.Type{Base: retKind, PointerLevel: 1}, layout))

	steps := p.Steps
	body := func(ctx emit.Context, args []value.Value) (value.Value, error) {
		work, err := ctx.Allocate(kind, layout)
		if err != nil {
			return value.Value{}, err
		}
		if err := ctx.CopyData(args[0], work); err != nil {
			return value.Value{}, err
		}
		cur := work
		for i := range steps {
			cur, err = applyStep(ctx, &steps[i], cur)
			if err != nil {
				return value.Value{}, fmt.Errorf("step %d (%s): %w", i, steps[i].Op, err)
			}
		}
		return cur, nil
	}
	return decl, body, nil
}

// operandValue shapes a step operand like cur: a single entry replicates
// across the shape, otherwise lengths must agree.
func operandValue(ctx emit.Context, cur value.Value, operand []float64) (value.Value, error) {
	layout := cur.Layout()
	n := layout.MemorySize()
	if len(operand) != 1 && len(operand) != n {
		return value.Value{}, fmt.Errorf("operand has %d entries, shape needs %d", len(operand), n)
	}
	buf, err := value.NewConstantBuffer(cur.BaseType(), n)
	if err != nil {
		return value.Value{}, err
	}
	for i := 0; i < n; i++ {
		buf.SetFromFloat64(i, operand[i%len(operand)])
	}
	return ctx.StoreConstantData(buf, layout)
}

func applyStep(ctx emit.Context, st *manifest.Step, cur value.Value) (value.Value, error) {
	if op, ok := manifest.BinaryOp(st.Op); ok {
		operand, err := operandValue(ctx, cur, st.Operand)
		if err != nil {
			return value.Value{}, err
		}
		return ctx.BinaryOperation(op, cur, operand)
	}
	switch st.Op {
	case "negate":
		return ctx.UnaryOperation(value.UnaryNegate, cur)
	case "cast":
		to, err := manifest.ParseKind(st.To)
		if err != nil {
			return value.Value{}, err
		}
		return ctx.Cast(cur, to)
	case "pow":
		exp, err := value.NewConstantBuffer(cur.BaseType(), 1)
		if err != nil {
			return value.Value{}, err
		}
		exp.SetFromFloat64(0, st.Operand[0])
		e, err := ctx.StoreConstantData(exp, memlayout.Scalar())
		if err != nil {
			return value.Value{}, err
		}
		return ctx.Call(value.NewFunctionDeclaration("pow"), []value.Value{cur, e})
	default:
		return ctx.Call(value.NewFunctionDeclaration(st.Op), []value.Value{cur})
	}
}

// LowerManifest lowers every program of m into one IR module.
func LowerManifest(m *manifest.Manifest) (*Result, error) {
	ctx := emit.NewCompiledContext(m.Module.Name, m.Module.Target)
	functions := make([]string, 0, len(m.Programs))
	for i := range m.Programs {
		p := &m.Programs[i]
		decl, body, err := programFunction(p)
		if err != nil {
			return nil, fmt.Errorf("program %q: %w", p.Name, err)
		}
		if _, err := ctx.CreateFunction(decl, body); err != nil {
			return nil, fmt.Errorf("program %q: %w", p.Name, err)
		}
		functions = append(functions, p.Name)
	}
	return &Result{
		Module:    m.Module.Name,
		Triple:    m.Module.Target,
		IR:        ctx.Render(),
		Functions: functions,
	}, nil
}

// EvaluateManifest runs every program of m immediately on its initial data.
func EvaluateManifest(m *manifest.Manifest) ([]Evaluation, error) {
	ctx := emit.NewHostContext(m.Module.Name)
	out := make([]Evaluation, 0, len(m.Programs))
	for i := range m.Programs {
		p := &m.Programs[i]
		decl, body, err := programFunction(p)
		if err != nil {
			return nil, fmt.Errorf("program %q: %w", p.Name, err)
		}
		fn, err := ctx.CreateFunction(decl, body)
		if err != nil {
			return nil, fmt.Errorf("program %q: %w", p.Name, err)
		}
		in, err := initialValue(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("program %q: %w", p.Name, err)
		}
		result, err := fn([]value.Value{in})
		if err != nil {
			return nil, fmt.Errorf("program %q: %w", p.Name, err)
		}
		out = append(out, Evaluation{Program: p.Name, Output: result})
	}
	return out, nil
}

func initialValue(ctx emit.Context, p *manifest.Program) (value.Value, error) {
	kind, err := p.ElementKind()
	if err != nil {
		return value.Value{}, err
	}
	shape, err := p.IntShape()
	if err != nil {
		return value.Value{}, err
	}
	layout := memlayout.New(shape...)
	buf, err := value.NewConstantBuffer(kind, layout.MemorySize())
	if err != nil {
		return value.Value{}, err
	}
	for i, x := range p.Data {
		buf.SetFromFloat64(i, x)
	}
	return ctx.StoreConstantData(buf, layout)
}

// BuildAll lowers the manifests at paths in parallel, one compiled context
// per module, consulting cache by manifest digest.
func BuildAll(ctx context.Context, paths []string, cache *modcache.Cache) ([]*Result, error) {
	results := make([]*Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			key := modcache.DigestBytes(data)
			var payload modcache.Payload
			if hit, err := cache.Get(key, &payload); err == nil && hit {
				results[i] = &Result{
					Path:      path,
					Module:    payload.Module,
					Triple:    payload.Triple,
					IR:        payload.IR,
					Functions: payload.Functions,
					CacheHit:  true,
				}
				return nil
			}
			m, err := manifest.Parse(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			r, err := LowerManifest(m)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			r.Path = path
			if err := cache.Put(key, &modcache.Payload{
				Module:    r.Module,
				Triple:    r.Triple,
				IR:        r.IR,
				Functions: r.Functions,
			}); err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
