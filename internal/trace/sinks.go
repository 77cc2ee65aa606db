package trace

import (
	"errors"
	"io"
	"sync"
)

type flusher interface{ Flush() error }

// StreamTracer writes events to w as they arrive.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
	err    error // first write error
}

// NewStreamTracer returns a tracer writing to w.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{w: w, level: level, format: format}
}

// Emit writes ev. Write errors do not interrupt the traced work; the first
// one is returned by Flush.
func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.Allows(ev) {
		return
	}
	data := FormatEvent(ev, t.format)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.w.Write(data); err != nil && t.err == nil {
		t.err = err
	}
}

// Flush flushes w when it buffers and reports the first write error.
func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	return t.err
}

// Close flushes and closes w.
func (t *StreamTracer) Close() error {
	return errors.Join(t.Flush(), closeOutput(t.w))
}

// Level returns the tracer's level.
func (t *StreamTracer) Level() Level { return t.level }

// RingTracer keeps the newest events in memory.
type RingTracer struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
	level  Level
	out    io.Writer // receives the buffer on Close, may be nil
	format Format
}

// NewRingTracer returns a ring holding capacity events (4096 when <= 0).
// If out is non-nil, Close writes the buffered events there.
func NewRingTracer(capacity int, level Level, out io.Writer, format Format) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{events: make([]Event, capacity), level: level, out: out, format: format}
}

// Emit stores a copy of ev, overwriting the oldest event when full.
func (t *RingTracer) Emit(ev *Event) {
	if !t.level.Allows(ev) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events[t.next] = *ev
	t.next++
	if t.next == len(t.events) {
		t.next, t.full = 0, true
	}
}

// Snapshot returns the stored events oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		return append([]Event(nil), t.events[:t.next]...)
	}
	out := make([]Event, 0, len(t.events))
	out = append(out, t.events[t.next:]...)
	return append(out, t.events[:t.next]...)
}

// Dump writes the stored events to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

// Flush is a no-op; events stay in memory until Close.
func (t *RingTracer) Flush() error { return nil }

// Close writes the buffer to the configured output.
func (t *RingTracer) Close() error {
	if t.out == nil {
		return nil
	}
	return errors.Join(t.Dump(t.out, t.format), closeOutput(t.out))
}

// Level returns the tracer's level.
func (t *RingTracer) Level() Level { return t.level }
