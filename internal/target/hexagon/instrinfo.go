package hexagon

import (
	"fmt"

	"mcgen/internal/mc"
)

// Hexagon opcodes.
const (
	// Const32Int loads a 32-bit integer or block address (dst, imm|sym).
	Const32Int mc.Opcode = mc.FirstTargetOpcode + iota
	// Const32Float loads a 32-bit float (dst, fpimm).
	Const32Float
	// Const64Int loads a 64-bit integer into a register pair (dst, imm).
	Const64Int
	// Const64Float loads a 64-bit float into a register pair (dst, fpimm).
	Const64Float
	// LO sets the low half of dst to the low half of a symbol address.
	LO
	// HI sets the high half of dst to the high half of a symbol address.
	HI
	// TfrSI transfers a signed 32-bit immediate (A2_tfrsi).
	TfrSI
	Tfr
	TfrP
	Add
	AddI
	Sub
	And
	Or
	LoadRIIO
	StoreRIIO
	Jump
	JumpR
	Nop
)

// Register classes.
const (
	IntRegs mc.RegClass = iota
	DoubleRegs
)

var (
	regInfo   = newRegisterInfo()
	instrInfo = newInstrInfo()
)

// R returns general register Rn.
func R(n int) mc.Reg {
	r, ok := regInfo.Lookup(fmt.Sprintf("R%d", n))
	if !ok {
		panic(fmt.Sprintf("hexagon: no register R%d", n))
	}
	return r
}

// D returns register pair Dn.
func D(n int) mc.Reg {
	r, ok := regInfo.Lookup(fmt.Sprintf("D%d", n))
	if !ok {
		panic(fmt.Sprintf("hexagon: no register D%d", n))
	}
	return r
}

func newRegisterInfo() *mc.RegisterInfo {
	ri := mc.NewRegisterInfo()
	if ri.AddClass("IntRegs", 32) != IntRegs || ri.AddClass("DoubleRegs", 64) != DoubleRegs {
		panic("hexagon: register class numbering changed")
	}
	gprs := make([]mc.Reg, 32)
	for i := range gprs {
		gprs[i] = ri.Add(fmt.Sprintf("R%d", i), IntRegs)
	}
	for i := range 16 {
		d := ri.Add(fmt.Sprintf("D%d", i), DoubleRegs)
		ri.DefinePair(d, gprs[2*i], gprs[2*i+1])
	}
	return ri
}

func newInstrInfo() *mc.InstrInfo {
	ii := mc.NewInstrInfo()
	reg := mc.Mask(mc.KindReg)
	imm := mc.Mask(mc.KindImm)
	sym := mc.Mask(mc.KindSymbol)
	// Constant loads accept any immediate form; the split pass checks the shape.
	konst := mc.Mask(mc.KindImm, mc.KindFPImm, mc.KindSymbol)

	defs := []struct {
		op   mc.Opcode
		name string
		ops  []mc.OperandMask
	}{
		{Const32Int, "CONST32_Int_Real", []mc.OperandMask{reg, konst}},
		{Const32Float, "CONST32_Float_Real", []mc.OperandMask{reg, konst}},
		{Const64Int, "CONST64_Int_Real", []mc.OperandMask{reg, konst}},
		{Const64Float, "CONST64_Float_Real", []mc.OperandMask{reg, konst}},
		{LO, "LO", []mc.OperandMask{reg, sym}},
		{HI, "HI", []mc.OperandMask{reg, sym}},
		{TfrSI, "A2_tfrsi", []mc.OperandMask{reg, imm}},
		{Tfr, "A2_tfr", []mc.OperandMask{reg, reg}},
		{TfrP, "A2_tfrp", []mc.OperandMask{reg, reg}},
		{Add, "A2_add", []mc.OperandMask{reg, reg, reg}},
		{AddI, "A2_addi", []mc.OperandMask{reg, reg, imm}},
		{Sub, "A2_sub", []mc.OperandMask{reg, reg, reg}},
		{And, "A2_and", []mc.OperandMask{reg, reg, reg}},
		{Or, "A2_or", []mc.OperandMask{reg, reg, reg}},
		{LoadRIIO, "L2_loadri_io", []mc.OperandMask{reg, reg, imm}},
		{StoreRIIO, "S2_storeri_io", []mc.OperandMask{reg, imm, reg}},
		{Jump, "J2_jump", []mc.OperandMask{sym}},
		{JumpR, "JMPret", []mc.OperandMask{reg}},
		{Nop, "A2_nop", nil},
	}
	for _, d := range defs {
		ii.Define(d.op, mc.InstrDesc{Name: d.name, Operands: d.ops})
	}
	ii.SetCopyOpcode(IntRegs, Tfr)
	ii.SetCopyOpcode(DoubleRegs, TfrP)
	return ii
}

// Registers returns the Hexagon register file: R0..R31 in IntRegs and the
// pairs D0..D15 in DoubleRegs, where Dn is R(2n+1):R(2n).
func Registers() *mc.RegisterInfo { return regInfo }

// Instrs returns the Hexagon opcode table.
func Instrs() *mc.InstrInfo { return instrInfo }

// IsConstLoad reports whether op is one of the constant-load opcodes.
func IsConstLoad(op mc.Opcode) bool {
	return op >= Const32Int && op <= Const64Float
}
