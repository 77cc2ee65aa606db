package codegen

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mcgen/internal/mc"
	"mcgen/internal/observ"
	"mcgen/internal/trace"
)

// RunOptions controls a pipeline run.
type RunOptions struct {
	// Jobs bounds how many functions of one pass run at once. Values <= 0
	// mean GOMAXPROCS.
	Jobs int
	// VerifyEach runs the pipeline's verifier after every pass.
	VerifyEach bool
	// Progress, if set, is called as functions finish each pass. Calls are
	// serialized.
	Progress func(PassEvent)
	// Timer, if set, records one phase per pass.
	Timer *observ.Timer
}

// PassEvent reports that Function finished Pass.
type PassEvent struct {
	Pass     string
	Function string
	Index    int // position of the pass in the run
	Total    int // number of passes in the run
	Changed  bool
}

// PassStat summarizes one pass over the module.
type PassStat struct {
	Name     string
	Changed  int // functions modified by the pass
	Duration time.Duration
}

// Result collects the statistics of a run.
type Result struct {
	Passes []PassStat
}

// Changed reports the number of functions the named pass modified.
func (r Result) Changed(name string) int {
	for _, s := range r.Passes {
		if s.Name == name {
			return s.Changed
		}
	}
	return 0
}

// Run applies every enabled pass of p to every function of m. A pass has
// finished with all functions before the next one starts. The first error
// aborts the run; m may then be partially transformed.
func Run(ctx context.Context, p *Pipeline, m *mc.Module, opts RunOptions) (Result, error) {
	passes := p.Passes()
	res := Result{Passes: make([]PassStat, 0, len(passes))}
	if m == nil {
		return res, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	jobs = max(1, min(jobs, len(m.Funcs)))

	tracer := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID

	var progressMu sync.Mutex
	report := func(ev PassEvent) {
		if opts.Progress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		opts.Progress(ev)
	}

	for idx, pass := range passes {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		name := pass.Name()
		span := trace.Begin(tracer, trace.ScopePass, name, parent)
		phase := -1
		if opts.Timer != nil {
			phase = opts.Timer.Begin(name, len(m.Funcs))
		}
		started := time.Now()

		changed := make([]bool, len(m.Funcs))
		err := runPass(ctx, pass, m.Funcs, jobs, changed, func(i int) error {
			f := m.Funcs[i]
			if opts.VerifyEach && p.verifier != nil {
				if _, verr := p.verifier.Run(ctx, f); verr != nil {
					return fmt.Errorf("after %s: %w", name, verr)
				}
			}
			report(PassEvent{Pass: name, Function: f.Name, Index: idx, Total: len(passes), Changed: changed[i]})
			return nil
		}, span.ID())

		stat := PassStat{Name: name, Duration: time.Since(started)}
		for _, c := range changed {
			if c {
				stat.Changed++
			}
		}
		res.Passes = append(res.Passes, stat)
		span.WithExtra("changed", strconv.Itoa(stat.Changed)).End("")
		if opts.Timer != nil {
			opts.Timer.End(phase, stat.Changed)
		}
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func runPass(ctx context.Context, pass Pass, funcs []*mc.Function, jobs int, changed []bool, after func(int) error, parent uint64) error {
	tracer := trace.FromContext(ctx)
	errs := make([]error, len(funcs))
	one := func(gctx context.Context, i int) error {
		// Functions skipped after a failure elsewhere leave errs[i] unset.
		if err := gctx.Err(); err != nil {
			return err
		}
		f := funcs[i]
		span := trace.Begin(tracer, trace.ScopeFunction, f.Name, parent)
		c, err := pass.Run(gctx, f)
		changed[i] = c
		if err == nil {
			err = after(i)
		}
		if err != nil {
			span.End("error")
			errs[i] = err
			return err
		}
		span.End("")
		return nil
	}

	if jobs == 1 {
		for i := range funcs {
			if err := one(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i := range funcs {
		g.Go(func() error { return one(gctx, i) })
	}
	werr := g.Wait()
	// The earliest failing function wins.
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return werr
}
