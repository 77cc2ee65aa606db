package mirfile

import (
	"fmt"
	"strings"
)

// ParseError reports a problem in a machine-module file.
type ParseError struct {
	File     string
	Function string
	Block    string
	Index    int // instruction index within Block, -1 when not applicable
	Msg      string
	Err      error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Function != "" {
		fmt.Fprintf(&sb, "function '%s': ", e.Function)
	}
	if e.Block != "" {
		fmt.Fprintf(&sb, "block '%s': ", e.Block)
	}
	if e.Index >= 0 && e.Block != "" {
		fmt.Fprintf(&sb, "instr %d: ", e.Index)
	}
	sb.WriteString(e.Msg)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ParseError) Unwrap() error { return e.Err }
