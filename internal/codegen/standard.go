package codegen

import (
	"context"

	"mcgen/internal/mc"
)

// Names of the backbone passes.
const (
	PassVerifyInput   = "verify-input"
	PassLegalize      = "legalize"
	PassISel          = "isel"
	PassSchedule      = "schedule"
	PassRegAlloc      = "regalloc"
	PassExpandPseudos = "expand-post-ra-pseudos"
	PassVerifyOutput  = "verify-output"
	// PassVerify names the verifier run between passes with VerifyEach.
	PassVerify = "verify"
)

// Hooks are the target's contributions to the standard backbone.
type Hooks struct {
	// InstSelector replaces the default isel pass, which only accepts input
	// that is already expressed in the target's opcodes.
	InstSelector Pass
	// PreRegAlloc passes run between scheduling and register allocation.
	PreRegAlloc []Pass
	// PostRegAlloc passes run after allocation, before pseudo expansion.
	PostRegAlloc []Pass
}

// NewStandard builds the standard backbone for a target described by ii and regs:
// verify-input, legalize, isel, schedule, pre-RA hooks, regalloc, post-RA
// hooks, expand-post-ra-pseudos, verify-output.
func NewStandard(ii *mc.InstrInfo, regs *mc.RegisterInfo, hooks Hooks) *Pipeline {
	isel := hooks.InstSelector
	if isel == nil {
		isel = PreselectedISel(ii, regs)
	}
	p := NewPipeline(
		Verifier(PassVerifyInput, ii, regs),
		Legalize(),
		isel,
		InOrderSchedule(),
	)
	for _, h := range hooks.PreRegAlloc {
		p.Add(h)
	}
	p.Add(RegAllocGate(ii, regs))
	for _, h := range hooks.PostRegAlloc {
		p.Add(h)
	}
	p.Add(ExpandPostRAPseudos(ii, regs))
	p.Add(OutputVerifier(ii, regs))
	p.SetVerifier(Verifier(PassVerify, ii, regs))
	return p
}

// Verifier checks every instruction against its opcode description and
// fails on the first malformed one.
func Verifier(name string, ii *mc.InstrInfo, regs *mc.RegisterInfo) Pass {
	return PassFunc(name, func(_ context.Context, f *mc.Function) (bool, error) {
		return false, verifyFunction(name, f, ii, regs)
	})
}

func verifyFunction(name string, f *mc.Function, ii *mc.InstrInfo, regs *mc.RegisterInfo) error {
	for _, b := range f.Blocks {
		for _, in := range b.Instrs() {
			if err := mc.VerifyInstr(in, ii, regs); err != nil {
				return Invariantf(name, in, ii, regs, "%v", err)
			}
		}
	}
	return nil
}

// Legalize drops KILL liveness markers, which carry nothing the encoder needs.
func Legalize() Pass {
	return PassFunc(PassLegalize, func(_ context.Context, f *mc.Function) (bool, error) {
		changed := false
		for _, b := range f.Blocks {
			for id := b.First(); id != mc.NoInstr; {
				if f.Instr(id).Opcode == mc.OpKill {
					id = b.Erase(id)
					changed = true
					continue
				}
				id = b.Next(id)
			}
		}
		return changed, nil
	})
}

// PreselectedISel accepts functions already written in target opcodes. The
// only generic opcodes allowed through are COPY and IMPLICIT_DEF.
func PreselectedISel(ii *mc.InstrInfo, regs *mc.RegisterInfo) Pass {
	return PassFunc(PassISel, func(_ context.Context, f *mc.Function) (bool, error) {
		for _, b := range f.Blocks {
			for _, in := range b.Instrs() {
				switch {
				case in.Opcode == mc.OpCopy, in.Opcode == mc.OpImplicitDef:
				case in.Opcode < mc.FirstTargetOpcode:
					return false, Invariantf(PassISel, in, ii, regs, "generic opcode %s has no selection", ii.Name(in.Opcode))
				default:
					if _, ok := ii.Desc(in.Opcode); !ok {
						return false, Invariantf(PassISel, in, ii, regs, "opcode %d is not defined by the target", in.Opcode)
					}
				}
			}
		}
		return false, nil
	})
}

// InOrderSchedule keeps the selected order.
func InOrderSchedule() Pass {
	return PassFunc(PassSchedule, func(context.Context, *mc.Function) (bool, error) {
		return false, nil
	})
}

// RegAllocGate requires every register operand to be physical already.
func RegAllocGate(ii *mc.InstrInfo, regs *mc.RegisterInfo) Pass {
	return PassFunc(PassRegAlloc, func(_ context.Context, f *mc.Function) (bool, error) {
		for _, b := range f.Blocks {
			for _, in := range b.Instrs() {
				for _, op := range in.Operands {
					if op.IsReg() && op.Reg.IsVirtual() {
						return false, Invariantf(PassRegAlloc, in, ii, regs,
							"virtual register %s reaches register allocation; only physical registers are supported", regs.Name(op.Reg))
					}
				}
			}
		}
		return false, nil
	})
}

// ExpandPostRAPseudos lowers COPY to the class's copy opcode, deletes
// identity copies and removes IMPLICIT_DEF.
func ExpandPostRAPseudos(ii *mc.InstrInfo, regs *mc.RegisterInfo) Pass {
	return PassFunc(PassExpandPseudos, func(_ context.Context, f *mc.Function) (bool, error) {
		changed := false
		for _, b := range f.Blocks {
			for id := b.First(); id != mc.NoInstr; {
				in := f.Instr(id)
				switch in.Opcode {
				case mc.OpImplicitDef:
					id = b.Erase(id)
					changed = true
					continue
				case mc.OpCopy:
					dst, src := in.Operand(0).Reg, in.Operand(1).Reg
					if dst == src {
						id = b.Erase(id)
						changed = true
						continue
					}
					dc, ok := regs.Class(dst)
					if !ok {
						return changed, Invariantf(PassExpandPseudos, in, ii, regs, "copy destination is not a physical register")
					}
					sc, ok := regs.Class(src)
					if !ok || sc.ID != dc.ID {
						return changed, Invariantf(PassExpandPseudos, in, ii, regs, "copy between register classes")
					}
					op, ok := ii.CopyOpcode(dc.ID)
					if !ok {
						return changed, Invariantf(PassExpandPseudos, in, ii, regs, "no copy instruction for class %s", dc.Name)
					}
					b.Replace(id, op, in.Operands...)
					changed = true
				}
				id = b.Next(id)
			}
		}
		return changed, nil
	})
}

// OutputVerifier runs the machine verifier and rejects any remaining pseudo.
func OutputVerifier(ii *mc.InstrInfo, regs *mc.RegisterInfo) Pass {
	return PassFunc(PassVerifyOutput, func(_ context.Context, f *mc.Function) (bool, error) {
		if err := verifyFunction(PassVerifyOutput, f, ii, regs); err != nil {
			return false, err
		}
		for _, b := range f.Blocks {
			for _, in := range b.Instrs() {
				if ii.IsPseudo(in.Opcode) {
					return false, Invariantf(PassVerifyOutput, in, ii, regs, "pseudo instruction survived lowering")
				}
			}
		}
		return false, nil
	})
}
