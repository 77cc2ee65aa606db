// Package trace records what a lowering run did and when: driver stages,
// passes, per-function pass runs and individual rewrites, as nested spans
// and instant points.
//
// Levels choose how deep events go:
//
//   - off: nothing
//   - error: only spans that ended in failure
//   - phase: driver stages and whole-module passes
//   - detail: plus one span per function per pass
//   - debug: everything, including instruction rewrites
//
// Events go to a stream (written as they happen) or to a ring that keeps
// the newest events and writes them out on Close. Text and NDJSON
// renderings are available for both.
//
// A Tracer travels in a context.Context (WithTracer, FromContext) together
// with the current span (WithSpanContext, CurrentSpan). Code with no tracer
// in its context gets Nop; spans begun on Nop cost a single allocation.
package trace
