package codegen

import (
	"fmt"
	"strings"

	"mcgen/internal/mc"
)

// InvariantError reports machine code that violates the input contract of a
// pass. It aborts the pipeline run.
type InvariantError struct {
	Pass     string
	Function string
	Block    string // bb.N.name, empty when not tied to a block
	Instr    string // printed instruction, empty when not tied to one
	Msg      string
}

func (e *InvariantError) Error() string {
	var sb strings.Builder
	sb.WriteString("invariant violation")
	if e.Pass != "" {
		sb.WriteString(" in ")
		sb.WriteString(e.Pass)
	}
	if e.Function != "" {
		sb.WriteString(": function ")
		sb.WriteString(e.Function)
	}
	if e.Block != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Block)
	}
	if e.Instr != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Instr)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	return sb.String()
}

// Invariantf builds an InvariantError located at in. The instruction must
// still be linked into its block.
func Invariantf(pass string, in *mc.Instr, ii *mc.InstrInfo, regs *mc.RegisterInfo, format string, args ...any) *InvariantError {
	e := &InvariantError{Pass: pass, Msg: fmt.Sprintf(format, args...)}
	if in == nil {
		return e
	}
	e.Instr = mc.FormatInstr(in, ii, regs)
	if b := in.Parent(); b != nil {
		e.Block = fmt.Sprintf("bb.%d.%s", b.ID, b.Name)
		e.Function = b.Func().Name
	}
	return e
}
