// Package observ records wall-clock timings of codegen passes.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

// PassTiming is one completed pass.
type PassTiming struct {
	Name    string        `json:"name"`
	Elapsed time.Duration `json:"elapsed_ns"`
	Changed int           `json:"changed"` // functions the pass modified
	Funcs   int           `json:"funcs"`   // functions the pass visited
}

// Millis returns Elapsed in fractional milliseconds.
func (p PassTiming) Millis() float64 {
	return float64(p.Elapsed) / float64(time.Millisecond)
}

// Timer collects PassTimings in pipeline order.
type Timer struct {
	mu     sync.Mutex
	passes []PassTiming
	open   map[int]time.Time
}

func NewTimer() *Timer { return &Timer{open: make(map[int]time.Time)} }

// Begin starts timing pass name over funcs functions and returns a handle
// for End.
func (t *Timer) Begin(name string, funcs int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.passes = append(t.passes, PassTiming{Name: name, Funcs: funcs})
	h := len(t.passes) - 1
	t.open[h] = time.Now()
	return h
}

// End closes the pass behind h. Unknown or already closed handles are
// ignored.
func (t *Timer) End(h, changed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	started, ok := t.open[h]
	if !ok {
		return
	}
	delete(t.open, h)
	t.passes[h].Elapsed = time.Since(started)
	t.passes[h].Changed = changed
}

// Passes returns a copy of the recorded timings.
func (t *Timer) Passes() []PassTiming {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]PassTiming(nil), t.passes...)
}

// Total sums every recorded pass.
func (t *Timer) Total() time.Duration {
	var total time.Duration
	for _, p := range t.Passes() {
		total += p.Elapsed
	}
	return total
}

// Slowest returns the pass that took longest; ok is false when nothing
// was recorded.
func (t *Timer) Slowest() (slowest PassTiming, ok bool) {
	for _, p := range t.Passes() {
		if !ok || p.Elapsed > slowest.Elapsed {
			slowest, ok = p, true
		}
	}
	return slowest, ok
}

// Summary renders the timings as an aligned table:
//
//	passes:
//	  legalize             0.01 ms    0/2
//	  hexagon-split-const  0.03 ms    2/2
//	  total                0.04 ms
func (t *Timer) Summary() string {
	passes := t.Passes()
	width := len("total")
	for _, p := range passes {
		width = max(width, runewidth.StringWidth(p.Name))
	}
	var sb strings.Builder
	sb.WriteString("passes:\n")
	for _, p := range passes {
		fmt.Fprintf(&sb, "  %s %8.2f ms  %3d/%d\n", runewidth.FillRight(p.Name, width), p.Millis(), p.Changed, p.Funcs)
	}
	total := float64(t.Total()) / float64(time.Millisecond)
	fmt.Fprintf(&sb, "  %s %8.2f ms\n", runewidth.FillRight("total", width), total)
	return sb.String()
}
