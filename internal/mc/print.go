package mc

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FormatOperand renders op in the textual machine-instruction syntax.
func FormatOperand(op Operand, regs *RegisterInfo) string {
	switch op.Kind {
	case KindReg:
		return regs.Name(op.Reg)
	case KindImm:
		return strconv.FormatInt(op.Imm, 10)
	case KindFPImm:
		if op.FPWidth() == 32 {
			return fmt.Sprintf("f32bits(0x%08x)", op.FPBits())
		}
		return fmt.Sprintf("f64bits(0x%016x)", op.FPBits())
	case KindSymbol:
		if op.Sym.Kind == SymBlockAddress {
			return fmt.Sprintf("blockaddress(%s, %s)", op.Sym.Func, op.Sym.Label)
		}
		return "@" + op.Sym.Name
	case KindSubRegIndex:
		return op.SubReg.String()
	}
	return "<invalid>"
}

// FormatInstr renders in as one line, e.g. "A2_tfrsi R1, 42 ; a.c:3:1".
func FormatInstr(in *Instr, ii *InstrInfo, regs *RegisterInfo) string {
	var sb strings.Builder
	sb.WriteString(ii.Name(in.Opcode))
	for i, op := range in.Operands {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(FormatOperand(op, regs))
	}
	if !in.Loc.IsZero() {
		sb.WriteString(" ; ")
		sb.WriteString(in.Loc.String())
	}
	return sb.String()
}

// Print writes a deterministic listing of f.
func Print(w io.Writer, f *Function, ii *InstrInfo, regs *RegisterInfo) error {
	if _, err := fmt.Fprintf(w, "function %s\n", f.Name); err != nil {
		return err
	}
	for _, b := range f.Blocks {
		if _, err := fmt.Fprintf(w, "bb.%d.%s:\n", b.ID, b.Name); err != nil {
			return err
		}
		for _, in := range b.Instrs() {
			if _, err := fmt.Fprintf(w, "  %s\n", FormatInstr(in, ii, regs)); err != nil {
				return err
			}
		}
	}
	return nil
}

// PrintModule prints every function of m separated by blank lines.
func PrintModule(w io.Writer, m *Module, ii *InstrInfo, regs *RegisterInfo) error {
	for i, f := range m.Funcs {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := Print(w, f, ii, regs); err != nil {
			return err
		}
	}
	return nil
}

// Sprint returns the listing of f as a string.
func Sprint(f *Function, ii *InstrInfo, regs *RegisterInfo) string {
	var sb strings.Builder
	_ = Print(&sb, f, ii, regs)
	return sb.String()
}
