// Package hexagon is the Hexagon DSP target.
package hexagon

import (
	"mcgen/internal/codegen"
	"mcgen/internal/target"
	"mcgen/internal/triple"
)

// Feature names.
const (
	FeatureSmallData = "small-data"
	FeatureV5        = "v5"
	FeatureDuplex    = "duplex"
)

// Features is the Hexagon feature and CPU table.
var Features = target.FeatureTable{
	Features: []target.FeatureInfo{
		{Name: FeatureSmallData, Desc: "Place small objects in the small-data section"},
		{Name: FeatureV5, Desc: "Hexagon V5 instructions"},
		{Name: FeatureDuplex, Desc: "Duplex sub-instruction packing"},
	},
	CPUs: []target.CPUInfo{
		{Name: "hexagonv4"},
		{Name: "hexagonv5", Features: []string{FeatureV5}},
		{Name: "hexagonv55", Features: []string{FeatureV5, FeatureDuplex}},
	},
	DefaultCPU: "hexagonv4",
}

// Layout returns the Hexagon data layout. It does not depend on the triple.
func Layout(triple.Triple) target.DataLayout {
	return target.DataLayout{
		Endian:          triple.EndianLittle,
		Mangling:        'e',
		PointerBits:     32,
		PointerABIAlign: 32,
		Int1Align:       32,
		Int64Align:      64,
		AggregateAlign:  0,
		NativeIntWidths: []int{32},
	}
}

// AsmInfo returns the Hexagon assembly properties.
func AsmInfo(triple.Triple) target.AsmInfo {
	ai := target.DefaultAsmInfo()
	ai.PrivateGlobalPrefix = ".L"
	ai.WeakRefDirective = "\t.weak\t"
	ai.UsesELFSectionDirectiveForBSS = true
	ai.CommentString = "//"
	return ai
}

// ObjectLowering enables small data only when the subtarget asks for it and
// the threshold is positive.
func ObjectLowering(sub *target.Subtarget, opts target.Options) target.ObjectFileLowering {
	threshold := 0
	if sub.Has(FeatureSmallData) {
		threshold = opts.SmallDataThreshold
	}
	return target.ELFLowering{Flavor: "hexagon-elf", SmallDataThreshold: threshold}
}

// Capabilities is the Hexagon capability set.
var Capabilities = &target.Capabilities{
	Family:         "hexagon",
	Layout:         Layout,
	Features:       Features,
	Registers:      regInfo,
	Instrs:         instrInfo,
	ObjectLowering: ObjectLowering,
	AsmInfo:        AsmInfo,
	PostRegAlloc: func(m *target.Machine) []codegen.Pass {
		return []codegen.Pass{NewSplitConst(m.ObjectLowering(), m.Instrs(), m.Registers())}
	},
}

// New builds a Hexagon machine for t.
func New(t triple.Triple, cpu, fs string, opts target.Options) (*target.Machine, error) {
	if t.Arch != triple.ArchHexagon {
		return nil, &target.ConfigError{Kind: target.ErrTripleMismatch, Target: "hexagon", Triple: t.Raw, Msg: "not a hexagon triple"}
	}
	if t.Endian == triple.EndianBig {
		return nil, &target.ConfigError{Kind: target.ErrTripleMismatch, Target: "hexagon", Triple: t.Raw, Msg: "hexagon is little-endian only"}
	}
	return target.NewMachine(Capabilities, t, cpu, fs, opts)
}

// Register adds the hexagon target to r.
func Register(r *target.Registry) {
	r.Register("hexagon", "Hexagon", New)
}
