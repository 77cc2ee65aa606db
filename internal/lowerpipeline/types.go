package lowerpipeline

import "time"

// Stage describes a high-level driver phase.
type Stage string

const (
	// StageLoad reads and decodes the input module.
	StageLoad Stage = "load"
	// StageConfigure builds the target machine and binds the module to it.
	StageConfigure Stage = "configure"
	// StageLower runs the pass pipeline.
	StageLower Stage = "lower"
	// StageEmit writes the lowered module.
	StageEmit Stage = "emit"
)

// Stages lists the stages in execution order.
var Stages = stageOrder[:]

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the function is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the function is being lowered.
	StatusWorking Status = "working"
	// StatusDone indicates the work finished.
	StatusDone Status = "done"
	// StatusError indicates the work failed.
	StatusError Status = "error"
)

// Event reports progress for a function (or for the whole run when Function is empty).
type Event struct {
	Function string
	Stage    Stage
	Status   Status
	Pass     string // last finished pass, for StageLower
	Err      error
	Elapsed  time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// EmitFormat selects the output encoding.
type EmitFormat string

const (
	// EmitText writes the printer listing.
	EmitText EmitFormat = "text"
	// EmitTOML writes the TOML machine-module form.
	EmitTOML EmitFormat = "toml"
	// EmitMsgpack writes the binary machine-module form.
	EmitMsgpack EmitFormat = "msgpack"
)

// ParseEmitFormat validates a format name; "" selects text.
func ParseEmitFormat(s string) (EmitFormat, bool) {
	switch EmitFormat(s) {
	case "", EmitText:
		return EmitText, true
	case EmitTOML, EmitMsgpack:
		return EmitFormat(s), true
	}
	return "", false
}

// Timings records how long each stage of one Lower call took. Stages that
// did not run are absent.
type Timings struct {
	dur [len(stageOrder)]time.Duration
	ran [len(stageOrder)]bool
}

var stageOrder = [...]Stage{StageLoad, StageConfigure, StageLower, StageEmit}

func stageIndex(s Stage) int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

func (t *Timings) Set(stage Stage, dur time.Duration) {
	if i := stageIndex(stage); t != nil && i >= 0 {
		t.dur[i], t.ran[i] = dur, true
	}
}

func (t Timings) Has(stage Stage) bool {
	i := stageIndex(stage)
	return i >= 0 && t.ran[i]
}

func (t Timings) Duration(stage Stage) time.Duration {
	if i := stageIndex(stage); i >= 0 {
		return t.dur[i]
	}
	return 0
}

// Total sums the stages that ran.
func (t Timings) Total() time.Duration {
	var total time.Duration
	for _, d := range t.dur {
		total += d
	}
	return total
}
