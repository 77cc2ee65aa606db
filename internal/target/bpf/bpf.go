// Package bpf is the BPF target in its little-endian, big-endian and
// host-endian variants.
package bpf

import (
	"fmt"

	"mcgen/internal/codegen"
	"mcgen/internal/mc"
	"mcgen/internal/target"
	"mcgen/internal/triple"
)

// BPF opcodes.
const (
	MovRI mc.Opcode = mc.FirstTargetOpcode + iota
	MovRR
	LdImm64
	AddRI
	AddRR
	SubRR
	Jmp
	Exit
	Nop
)

// GPR is the only BPF register class.
const GPR mc.RegClass = 0

var (
	regInfo   = newRegisterInfo()
	instrInfo = newInstrInfo()
)

func newRegisterInfo() *mc.RegisterInfo {
	ri := mc.NewRegisterInfo()
	if ri.AddClass("GPR", 64) != GPR {
		panic("bpf: register class numbering changed")
	}
	for i := range 12 {
		ri.Add(fmt.Sprintf("R%d", i), GPR)
	}
	return ri
}

func newInstrInfo() *mc.InstrInfo {
	ii := mc.NewInstrInfo()
	reg := mc.Mask(mc.KindReg)
	imm := mc.Mask(mc.KindImm)
	defs := []struct {
		op   mc.Opcode
		name string
		ops  []mc.OperandMask
	}{
		{MovRI, "MOV_ri", []mc.OperandMask{reg, imm}},
		{MovRR, "MOV_rr", []mc.OperandMask{reg, reg}},
		{LdImm64, "LD_imm64", []mc.OperandMask{reg, mc.Mask(mc.KindImm, mc.KindSymbol)}},
		{AddRI, "ADD_ri", []mc.OperandMask{reg, reg, imm}},
		{AddRR, "ADD_rr", []mc.OperandMask{reg, reg, reg}},
		{SubRR, "SUB_rr", []mc.OperandMask{reg, reg, reg}},
		{Jmp, "JMP", []mc.OperandMask{mc.Mask(mc.KindSymbol)}},
		{Exit, "EXIT", nil},
		{Nop, "NOP", []mc.OperandMask{imm}},
	}
	for _, d := range defs {
		ii.Define(d.op, mc.InstrDesc{Name: d.name, Operands: d.ops})
	}
	ii.SetCopyOpcode(GPR, MovRR)
	return ii
}

// R returns register Rn.
func R(n int) mc.Reg {
	r, ok := regInfo.Lookup(fmt.Sprintf("R%d", n))
	if !ok {
		panic(fmt.Sprintf("bpf: no register R%d", n))
	}
	return r
}

// Registers returns the BPF register file R0..R11.
func Registers() *mc.RegisterInfo { return regInfo }

// Instrs returns the BPF opcode table.
func Instrs() *mc.InstrInfo { return instrInfo }

// Feature names.
const (
	FeatureALU32    = "alu32"
	FeatureDwarfRIS = "dwarfris"
)

// Features is the BPF feature and CPU table.
var Features = target.FeatureTable{
	Features: []target.FeatureInfo{
		{Name: FeatureALU32, Desc: "Enable ALU32 instructions"},
		{Name: FeatureDwarfRIS, Desc: "Disable MCAsmInfo DwarfUsesRelocationsAcrossSections"},
	},
	CPUs: []target.CPUInfo{
		{Name: "generic"},
		{Name: "v1"},
		{Name: "v2"},
		{Name: "probe"},
	},
	DefaultCPU: "generic",
}

// Layout returns the BPF data layout. Only the byte order follows the triple.
func Layout(t triple.Triple) target.DataLayout {
	dl := target.DataLayout{
		Endian:          triple.EndianLittle,
		Mangling:        'e',
		PointerBits:     64,
		PointerABIAlign: 64,
		Int64Align:      64,
		AggregateAlign:  -1,
		NativeIntWidths: []int{32, 64},
		StackAlignBits:  128,
	}
	if t.IsBigEndian() {
		dl.Endian = triple.EndianBig
	}
	return dl
}

// AsmInfo returns the BPF assembly properties.
func AsmInfo(t triple.Triple) target.AsmInfo {
	ai := target.DefaultAsmInfo()
	ai.IsLittleEndian = !t.IsBigEndian()
	ai.PrivateGlobalPrefix = ".L"
	ai.WeakRefDirective = "\t.weak\t"
	ai.UsesELFSectionDirectiveForBSS = true
	ai.HasSingleParameterDotFile = false
	ai.HasDotTypeDotSizeDirective = false
	return ai
}

// Capabilities is the BPF capability set.
var Capabilities = &target.Capabilities{
	Family:    "bpf",
	Layout:    Layout,
	Features:  Features,
	Registers: regInfo,
	Instrs:    instrInfo,
	ObjectLowering: func(*target.Subtarget, target.Options) target.ObjectFileLowering {
		return target.ELFLowering{}
	},
	AsmInfo: AsmInfo,
	InstSelector: func(*target.Machine) codegen.Pass {
		return codegen.PreselectedISel(instrInfo, regInfo)
	},
}

// variant builds a constructor that binds endian into the triple. A triple
// naming the opposite byte order is rejected; EndianDefault keeps the
// triple's own order, or the host's when it has none.
func variant(name string, endian triple.Endian) target.Constructor {
	return func(t triple.Triple, cpu, fs string, opts target.Options) (*target.Machine, error) {
		if t.Arch != triple.ArchBPF {
			return nil, &target.ConfigError{Kind: target.ErrTripleMismatch, Target: name, Triple: t.Raw, Msg: "not a bpf triple"}
		}
		e := endian
		if e == triple.EndianDefault {
			e = t.Endian
			if e == triple.EndianDefault {
				e = hostEndian
			}
		}
		if t.Endian != triple.EndianDefault && t.Endian != e {
			return nil, &target.ConfigError{Kind: target.ErrTripleMismatch, Target: name, Triple: t.Raw,
				Msg: fmt.Sprintf("triple is %s endian", t.Endian)}
		}
		return target.NewMachine(Capabilities, t.WithEndian(e), cpu, fs, opts)
	}
}

// Register adds bpfel, bpfeb and bpf to r.
func Register(r *target.Registry) {
	r.Register("bpfel", "BPF (little endian)", variant("bpfel", triple.EndianLittle))
	r.Register("bpfeb", "BPF (big endian)", variant("bpfeb", triple.EndianBig))
	r.Register("bpf", "BPF (host endian)", variant("bpf", triple.EndianDefault))
}
