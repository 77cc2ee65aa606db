// Package lowerpipeline drives one lowering run: load a machine module,
// configure the target machine, run the pass pipeline and emit the result.
package lowerpipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mcgen/internal/codegen"
	"mcgen/internal/mc"
	"mcgen/internal/mirfile"
	"mcgen/internal/observ"
	"mcgen/internal/target"
	"mcgen/internal/trace"
)

// Request configures a lowering run.
type Request struct {
	// Input is the path of the machine module. Data, when set, is used
	// instead of reading Input.
	Input string
	Data  []byte

	Target   string // registered target name; "" selects the triple's architecture
	Triple   string // overrides the module's triple
	CPU      string
	Features string
	Options  target.Options

	Emit   EmitFormat
	Output io.Writer // nil skips the emit stage

	Progress ProgressSink
	Timer    *observ.Timer // per-pass timings, optional
	Cache    *DiskCache    // optional
}

// Result captures the outcome of a run.
type Result struct {
	Module   *mc.Module
	Machine  *target.Machine
	Passes   codegen.Result
	Timings  Timings
	CacheHit bool
	Ignored  []string // feature tokens that had no effect
}

// ErrNoTriple is returned when neither the request nor the module names a triple.
var ErrNoTriple = errors.New("no target triple: pass one explicitly or set triple in the module")

// IsBinaryInput reports whether path names a binary machine module.
func IsBinaryInput(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".mcb" || ext == ".msgpack"
}

type loaded struct {
	data   []byte
	text   *mirfile.File
	binary *mc.Module
	triple string
	funcs  []string
}

// Lower runs the four stages for req using targets from reg.
func Lower(ctx context.Context, reg *target.Registry, req *Request) (Result, error) {
	var res Result
	if req == nil {
		return res, fmt.Errorf("missing lowering request")
	}
	emitFmt, ok := ParseEmitFormat(string(req.Emit))
	if !ok {
		return res, fmt.Errorf("unsupported emit format %q (supported: text, toml, msgpack)", req.Emit)
	}
	tracer := trace.FromContext(ctx)
	root := trace.Begin(tracer, trace.ScopeDriver, "lower", trace.CurrentSpan(ctx).SpanID)
	defer root.End("")

	stage := func(s Stage, fn func(context.Context) error) error {
		span := trace.Begin(tracer, trace.ScopeDriver, string(s), root.ID())
		sctx := trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})
		emit(req.Progress, Event{Stage: s, Status: StatusWorking})
		started := time.Now()
		err := fn(sctx)
		elapsed := time.Since(started)
		res.Timings.Set(s, elapsed)
		if err != nil {
			span.End("error")
			emit(req.Progress, Event{Stage: s, Status: StatusError, Err: err, Elapsed: elapsed})
			return err
		}
		span.End("")
		emit(req.Progress, Event{Stage: s, Status: StatusDone, Elapsed: elapsed})
		return nil
	}

	var in loaded
	if err := stage(StageLoad, func(context.Context) error {
		var err error
		in, err = load(req)
		return err
	}); err != nil {
		return res, err
	}
	emitFunctions(req.Progress, in.funcs, StageLoad, StatusQueued, nil)

	if err := stage(StageConfigure, func(sctx context.Context) error {
		m, err := configure(reg, req, in)
		if err != nil {
			return err
		}
		res.Machine = m
		res.Ignored = m.Subtarget().Ignored()
		for _, tok := range res.Ignored {
			trace.Point(tracer, trace.ScopeDriver, "ignored-feature", tok, trace.CurrentSpan(sctx).SpanID)
		}
		if in.binary != nil {
			res.Module = in.binary
		} else {
			res.Module, err = in.text.Module(m.Instrs(), m.Registers())
			if err != nil {
				return err
			}
		}
		if res.Module.Triple == "" {
			res.Module.Triple = m.Triple().String()
		}
		return nil
	}); err != nil {
		emitFunctions(req.Progress, in.funcs, StageConfigure, StatusError, err)
		return res, err
	}

	m := res.Machine
	sub := m.Subtarget()
	key := cacheKey(in.data, m.Family(), m.Triple().String(), sub.CPU(), sub.String(),
		m.Options().SmallDataThreshold, m.Options().VerifyEach)

	if err := stage(StageLower, func(sctx context.Context) error {
		if cached, ok := req.Cache.Get(key); ok {
			res.Module, res.CacheHit = cached, true
			return nil
		}
		opts := codegen.RunOptions{
			Jobs:       m.Options().Jobs,
			VerifyEach: m.Options().VerifyEach,
			Timer:      req.Timer,
			Progress: func(ev codegen.PassEvent) {
				emit(req.Progress, Event{Function: ev.Function, Stage: StageLower, Status: StatusWorking, Pass: ev.Pass})
			},
		}
		passes, err := codegen.Run(sctx, m.NewPipeline(), res.Module, opts)
		res.Passes = passes
		if err != nil {
			return err
		}
		return req.Cache.Put(key, res.Module)
	}); err != nil {
		emitFunctions(req.Progress, in.funcs, StageLower, StatusError, err)
		return res, err
	}
	emitFunctions(req.Progress, in.funcs, StageLower, StatusDone, nil)

	if req.Output == nil {
		return res, nil
	}
	err := stage(StageEmit, func(context.Context) error {
		return write(req.Output, emitFmt, res.Module, m)
	})
	return res, err
}

// Plan loads req's input and configures its machine without lowering.
// It returns the function names and the pipeline's pass names in order.
func Plan(reg *target.Registry, req *Request) (funcs, passes []string, err error) {
	in, err := load(req)
	if err != nil {
		return nil, nil, err
	}
	m, err := configure(reg, req, in)
	if err != nil {
		return nil, nil, err
	}
	return in.funcs, m.NewPipeline().Names(), nil
}

func configure(reg *target.Registry, req *Request, in loaded) (*target.Machine, error) {
	tripleStr := strings.TrimSpace(req.Triple)
	if tripleStr == "" {
		tripleStr = in.triple
	}
	if tripleStr == "" {
		return nil, &target.ConfigError{Kind: target.ErrMalformedTriple, Target: req.Target, Err: ErrNoTriple}
	}
	return reg.Construct(req.Target, tripleStr, req.CPU, req.Features, req.Options)
}

func load(req *Request) (loaded, error) {
	data := req.Data
	if data == nil {
		if req.Input == "" {
			return loaded{}, fmt.Errorf("missing input")
		}
		var err error
		if data, err = os.ReadFile(req.Input); err != nil {
			return loaded{}, err
		}
	}
	in := loaded{data: data}
	if IsBinaryInput(req.Input) {
		m, err := mirfile.DecodeBinary(bytes.NewReader(data))
		if err != nil {
			return loaded{}, fmt.Errorf("%s: %w", req.Input, err)
		}
		in.binary, in.triple = m, m.Triple
		for _, f := range m.Funcs {
			in.funcs = append(in.funcs, f.Name)
		}
		return in, nil
	}
	f, err := mirfile.Load(req.Input, data)
	if err != nil {
		return loaded{}, err
	}
	in.text, in.triple = f, f.Triple()
	in.funcs = f.FunctionNames()
	return in, nil
}

func write(w io.Writer, format EmitFormat, mod *mc.Module, m *target.Machine) error {
	switch format {
	case EmitTOML:
		return mirfile.Encode(w, mod, m.Instrs(), m.Registers())
	case EmitMsgpack:
		return mirfile.EncodeBinary(w, mod)
	default:
		return mc.PrintModule(w, mod, m.Instrs(), m.Registers())
	}
}
