package hexagon

import (
	"context"

	"fortio.org/safecast"

	"mcgen/internal/codegen"
	"mcgen/internal/mc"
	"mcgen/internal/target"
)

// SplitConstName is the pipeline name of the constant-splitting pass.
const SplitConstName = "hexagon-split-const"

type splitConst struct {
	tlof target.ObjectFileLowering
	ii   *mc.InstrInfo
	regs *mc.RegisterInfo
}

// NewSplitConst returns the pass that rewrites the CONST32 and CONST64
// loads into real instructions:
//
//	CONST32_Int_Real Rd, blockaddress(f, l)  ->  LO Rd, sym; HI Rd, sym
//	CONST32_Int_Real Rd, imm                 ->  A2_tfrsi Rd, imm
//	CONST32_Float_Real Rd, fp32              ->  A2_tfrsi Rd, bits(fp32)
//	CONST64_{Int,Float}_Real Dd, v           ->  A2_tfrsi Dd.sub_lo, lo(v); A2_tfrsi Dd.sub_hi, hi(v)
//
// When the object-file lowering uses small data the loads are left for the
// small-data lowering and the pass does nothing.
func NewSplitConst(tlof target.ObjectFileLowering, ii *mc.InstrInfo, regs *mc.RegisterInfo) codegen.Pass {
	return &splitConst{tlof: tlof, ii: ii, regs: regs}
}

func (p *splitConst) Name() string { return SplitConstName }

func (p *splitConst) Run(_ context.Context, f *mc.Function) (bool, error) {
	if p.tlof.SmallDataEnabled() {
		return false, nil
	}
	changed := false
	for _, b := range f.Blocks {
		for id := b.First(); id != mc.NoInstr; {
			in := f.Instr(id)
			if !IsConstLoad(in.Opcode) {
				id = b.Next(id)
				continue
			}
			if err := p.expand(b, in); err != nil {
				return changed, err
			}
			id = b.Erase(id)
			changed = true
		}
	}
	return changed, nil
}

func (p *splitConst) violation(in *mc.Instr, format string, args ...any) error {
	return codegen.Invariantf(SplitConstName, in, p.ii, p.regs, format, args...)
}

// expand inserts the replacement of in ahead of it.
func (p *splitConst) expand(b *mc.Block, in *mc.Instr) error {
	if in.NumOperands() != 2 || !in.Operand(0).IsReg() || !in.Operand(0).Reg.IsPhysical() {
		return p.violation(in, "expected a physical destination register and one source")
	}
	dst, src := in.Operand(0), in.Operand(1)
	at := in.ID()
	emit := func(op mc.Opcode, ops ...mc.Operand) {
		b.InsertBefore(at, mc.NewInstr(op, in.Loc, ops...))
	}

	switch in.Opcode {
	case Const32Int:
		switch {
		case src.IsBlockAddress():
			emit(LO, dst, src)
			emit(HI, dst, src)
		case src.IsImm():
			word, ok := fit32(src.Imm)
			if !ok {
				return p.violation(in, "immediate %d does not fit in 32 bits", src.Imm)
			}
			emit(TfrSI, dst, mc.ImmOp(tfrsiImm(word)))
		default:
			return p.violation(in, "unexpected %s source", src.Kind)
		}
	case Const32Float:
		if !src.IsFPImm() || src.FPWidth() != 32 {
			return p.violation(in, "expected a 32-bit float source")
		}
		emit(TfrSI, dst, mc.ImmOp(tfrsiImm(uint32(src.FPBits()))))
	case Const64Int, Const64Float:
		var bits uint64
		switch {
		case in.Opcode == Const64Int && src.IsImm():
			bits = uint64(src.Imm)
		case in.Opcode == Const64Float && src.IsFPImm() && src.FPWidth() == 64:
			bits = src.FPBits()
		default:
			return p.violation(in, "unexpected source for a 64-bit constant")
		}
		lo, okLo := p.regs.SubReg(dst.Reg, mc.SubLo)
		hi, okHi := p.regs.SubReg(dst.Reg, mc.SubHi)
		if !okLo || !okHi {
			return p.violation(in, "register %s is not a register pair", p.regs.Name(dst.Reg))
		}
		loWord, hiWord := SplitImm64(bits)
		emit(TfrSI, mc.RegOp(lo), mc.ImmOp(tfrsiImm(loWord)))
		emit(TfrSI, mc.RegOp(hi), mc.ImmOp(tfrsiImm(hiWord)))
	}
	return nil
}

// fit32 accepts values representable as either int32 or uint32.
func fit32(v int64) (uint32, bool) {
	if s, err := safecast.Conv[int32](v); err == nil {
		return uint32(s), true
	}
	u, err := safecast.Conv[uint32](v)
	return u, err == nil
}
