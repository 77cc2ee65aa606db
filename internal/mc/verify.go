package mc

import (
	"errors"
	"fmt"
)

// Verify checks every instruction of f against its opcode description:
// the opcode exists, arity matches, each operand kind is accepted by its
// slot and every physical register belongs to regs.
func Verify(f *Function, ii *InstrInfo, regs *RegisterInfo) error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, b := range f.Blocks {
		for _, in := range b.Instrs() {
			if err := VerifyInstr(in, ii, regs); err != nil {
				errs = append(errs, fmt.Errorf("bb.%d.%s: %s: %w", b.ID, b.Name, FormatInstr(in, ii, regs), err))
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("function %s: %w", f.Name, errors.Join(errs...))
}

// VerifyInstr checks a single instruction.
func VerifyInstr(in *Instr, ii *InstrInfo, regs *RegisterInfo) error {
	desc, ok := ii.Desc(in.Opcode)
	if !ok {
		return fmt.Errorf("unknown opcode %d", in.Opcode)
	}
	if len(in.Operands) != len(desc.Operands) {
		return fmt.Errorf("%s expects %d operands, got %d", desc.Name, len(desc.Operands), len(in.Operands))
	}
	var errs []error
	for i, op := range in.Operands {
		if !desc.Operands[i].Has(op.Kind) {
			errs = append(errs, fmt.Errorf("operand %d: %s not accepted (want %s)", i, op.Kind, desc.Operands[i]))
			continue
		}
		switch op.Kind {
		case KindReg:
			if op.Reg == NoReg {
				errs = append(errs, fmt.Errorf("operand %d: missing register", i))
			} else if op.Reg.IsPhysical() && !regs.Valid(op.Reg) {
				errs = append(errs, fmt.Errorf("operand %d: unknown register %d", i, op.Reg))
			}
		case KindFPImm:
			if op.FPWidth() != 32 && op.FPWidth() != 64 {
				errs = append(errs, fmt.Errorf("operand %d: float immediate of width %d", i, op.FPWidth()))
			}
		case KindSymbol:
			if op.Sym.Kind != SymBlockAddress && op.Sym.Kind != SymGlobal {
				errs = append(errs, fmt.Errorf("operand %d: malformed symbol", i))
			}
		}
	}
	return errors.Join(errs...)
}
