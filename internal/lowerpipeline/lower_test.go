package lowerpipeline_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"mcgen/internal/lowerpipeline"
	"mcgen/internal/observ"
	"mcgen/internal/target"
	"mcgen/internal/targets"
)

const module = `
name = "kernel"
triple = "hexagon-unknown-elf"

[[function]]
name = "main"

  [[function.block]]
  name = "entry"
  instrs = [
    "CONST32_Int_Real R1, 0x12345678",
    "JMPret R31",
  ]

[[function]]
name = "aux"

  [[function.block]]
  name = "entry"
  instrs = ["CONST64_Int_Real D1, 0x100000002", "JMPret R31"]
`

const lowered = "function main\nbb.0.entry:\n  A2_tfrsi R1, 305419896\n  JMPret R31\n" +
	"\nfunction aux\nbb.0.entry:\n  A2_tfrsi R2, 2\n  A2_tfrsi R3, 1\n  JMPret R31\n"

type recorder struct {
	mu     sync.Mutex
	events []lowerpipeline.Event
}

func (r *recorder) OnEvent(evt lowerpipeline.Event) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

func (r *recorder) has(fn string, stage lowerpipeline.Stage, status lowerpipeline.Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.ContainsFunc(r.events, func(e lowerpipeline.Event) bool {
		return e.Function == fn && e.Stage == stage && e.Status == status
	})
}

func request(out *bytes.Buffer) *lowerpipeline.Request {
	return &lowerpipeline.Request{
		Input:   "kernel.toml",
		Data:    []byte(module),
		Options: target.DefaultOptions(),
		Output:  out,
	}
}

func TestLowerText(t *testing.T) {
	var out bytes.Buffer
	rec := &recorder{}
	req := request(&out)
	req.Progress = rec
	req.Timer = observ.NewTimer()
	res, err := lowerpipeline.Lower(context.Background(), targets.NewRegistry(), req)
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != lowered {
		t.Fatalf("got:\n%s\nwant:\n%s", out.String(), lowered)
	}
	if res.Machine.Family() != "hexagon" || res.CacheHit {
		t.Fatalf("machine %s, cache hit %v", res.Machine.Family(), res.CacheHit)
	}
	if res.Passes.Changed("hexagon-split-const") != 2 {
		t.Fatalf("split pass changed %d functions", res.Passes.Changed("hexagon-split-const"))
	}
	for _, s := range lowerpipeline.Stages {
		if !res.Timings.Has(s) {
			t.Fatalf("no timing for stage %s", s)
		}
	}
	for _, fn := range []string{"main", "aux"} {
		if !rec.has(fn, lowerpipeline.StageLoad, lowerpipeline.StatusQueued) ||
			!rec.has(fn, lowerpipeline.StageLower, lowerpipeline.StatusWorking) ||
			!rec.has(fn, lowerpipeline.StageLower, lowerpipeline.StatusDone) {
			t.Fatalf("missing progress for %s: %+v", fn, rec.events)
		}
	}
	if len(req.Timer.Passes()) == 0 {
		t.Fatal("pass timings not recorded")
	}
}

func TestLowerNoEmit(t *testing.T) {
	req := request(nil)
	req.Output = nil
	res, err := lowerpipeline.Lower(context.Background(), targets.NewRegistry(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Timings.Has(lowerpipeline.StageEmit) {
		t.Fatal("emit stage ran without an output")
	}
	if len(res.Module.Funcs) != 2 {
		t.Fatalf("module has %d functions", len(res.Module.Funcs))
	}
}

func TestLowerTripleResolution(t *testing.T) {
	noTriple := strings.Replace(module, `triple = "hexagon-unknown-elf"`, "", 1)
	tests := []struct {
		name   string
		data   string
		target string
		triple string
		kind   target.ConfigErrorKind
		ok     bool
	}{
		{name: "from module", data: module, ok: true},
		{name: "explicit", data: noTriple, triple: "hexagon", ok: true},
		{name: "missing", data: noTriple, kind: target.ErrMalformedTriple},
		{name: "mismatch", data: module, target: "bpfel", kind: target.ErrTripleMismatch},
		{name: "unknown", data: module, target: "z80", kind: target.ErrUnknownTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			req := request(&out)
			req.Data = []byte(tt.data)
			req.Target, req.Triple = tt.target, tt.triple
			_, err := lowerpipeline.Lower(context.Background(), targets.NewRegistry(), req)
			if tt.ok {
				if err != nil {
					t.Fatal(err)
				}
				return
			}
			if !target.IsKind(err, tt.kind) {
				t.Fatalf("err = %v, want kind %v", err, tt.kind)
			}
		})
	}
}

func TestLowerMissingTripleWrapsSentinel(t *testing.T) {
	req := request(&bytes.Buffer{})
	req.Data = []byte(strings.Replace(module, `triple = "hexagon-unknown-elf"`, "", 1))
	_, err := lowerpipeline.Lower(context.Background(), targets.NewRegistry(), req)
	if !errors.Is(err, lowerpipeline.ErrNoTriple) {
		t.Fatalf("err = %v", err)
	}
}

func TestLowerIgnoredFeatures(t *testing.T) {
	req := request(&bytes.Buffer{})
	req.Features = "+small-data,+bogus"
	res, err := lowerpipeline.Lower(context.Background(), targets.NewRegistry(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(res.Ignored, []string{"+bogus"}) {
		t.Fatalf("ignored = %v", res.Ignored)
	}
	if !res.Machine.Subtarget().Has("small-data") {
		t.Fatal("small-data not enabled")
	}
}

func TestLowerCache(t *testing.T) {
	cache, err := lowerpipeline.OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	run := func() (lowerpipeline.Result, string) {
		var out bytes.Buffer
		req := request(&out)
		req.Cache = cache
		res, err := lowerpipeline.Lower(context.Background(), targets.NewRegistry(), req)
		if err != nil {
			t.Fatal(err)
		}
		return res, out.String()
	}
	first, out1 := run()
	second, out2 := run()
	if first.CacheHit || !second.CacheHit {
		t.Fatalf("cache hits = %v, %v", first.CacheHit, second.CacheHit)
	}
	if out1 != out2 || out2 != lowered {
		t.Fatalf("cached output differs:\n%s", out2)
	}
	if err := cache.DropAll(); err != nil {
		t.Fatal(err)
	}
	if third, _ := run(); third.CacheHit {
		t.Fatal("hit after DropAll")
	}
}

func TestLowerBinaryRoundTrip(t *testing.T) {
	var bin bytes.Buffer
	req := request(&bin)
	req.Emit = lowerpipeline.EmitMsgpack
	if _, err := lowerpipeline.Lower(context.Background(), targets.NewRegistry(), req); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	again := &lowerpipeline.Request{
		Input:   filepath.Join(t.TempDir(), "kernel.mcb"),
		Data:    bin.Bytes(),
		Options: target.DefaultOptions(),
		Output:  &out,
	}
	res, err := lowerpipeline.Lower(context.Background(), targets.NewRegistry(), again)
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != lowered {
		t.Fatalf("got:\n%s", out.String())
	}
	if res.Passes.Changed("hexagon-split-const") != 0 {
		t.Fatal("already lowered module changed again")
	}
}

func TestLowerErrors(t *testing.T) {
	tests := []struct {
		name string
		edit func(*lowerpipeline.Request)
		msg  string
	}{
		{"emit format", func(r *lowerpipeline.Request) { r.Emit = "asm" }, "unsupported emit format"},
		{"no input", func(r *lowerpipeline.Request) { r.Data, r.Input = nil, "" }, "missing input"},
		{"bad instr", func(r *lowerpipeline.Request) {
			r.Data = []byte(strings.Replace(module, "JMPret R31", "JMPret R99", 1))
		}, "R99"},
		{"bad options", func(r *lowerpipeline.Request) { r.Options.Jobs = -1 }, "jobs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(&bytes.Buffer{})
			tt.edit(req)
			rec := &recorder{}
			req.Progress = rec
			_, err := lowerpipeline.Lower(context.Background(), targets.NewRegistry(), req)
			if err == nil || !strings.Contains(err.Error(), tt.msg) {
				t.Fatalf("err = %v, want it to mention %q", err, tt.msg)
			}
		})
	}
}

func TestIsBinaryInput(t *testing.T) {
	for path, want := range map[string]bool{"a.mcb": true, "a.MSGPACK": true, "a.toml": false, "a": false} {
		if got := lowerpipeline.IsBinaryInput(path); got != want {
			t.Fatalf("IsBinaryInput(%q) = %v", path, got)
		}
	}
}

func TestPlan(t *testing.T) {
	funcs, passes, err := lowerpipeline.Plan(targets.NewRegistry(), request(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(funcs, []string{"main", "aux"}) {
		t.Fatalf("funcs = %v", funcs)
	}
	if len(passes) == 0 || passes[0] != "verify-input" || !slices.Contains(passes, "hexagon-split-const") {
		t.Fatalf("passes = %v", passes)
	}
}
