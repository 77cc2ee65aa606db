package mc

import "math"

// OperandKind distinguishes operand types.
type OperandKind uint8

const (
	// KindReg is a register operand.
	KindReg OperandKind = iota + 1
	// KindImm is an integer immediate.
	KindImm
	// KindFPImm is a floating-point immediate of width 32 or 64.
	KindFPImm
	// KindSymbol is a symbolic address.
	KindSymbol
	// KindSubRegIndex is a sub-register index.
	KindSubRegIndex
)

func (k OperandKind) String() string {
	switch k {
	case KindReg:
		return "reg"
	case KindImm:
		return "imm"
	case KindFPImm:
		return "fpimm"
	case KindSymbol:
		return "symbol"
	case KindSubRegIndex:
		return "subreg"
	default:
		return "invalid"
	}
}

// SymbolKind distinguishes symbolic operands.
type SymbolKind uint8

const (
	// SymBlockAddress is the address of a labelled block.
	SymBlockAddress SymbolKind = iota + 1
	// SymGlobal is the address of a global symbol.
	SymGlobal
)

// Symbol is a symbolic address operand.
type Symbol struct {
	Kind  SymbolKind
	Func  string // SymBlockAddress
	Label string // SymBlockAddress
	Name  string // SymGlobal
}

// Operand is one typed argument of an instruction.
//
// Floating-point immediates are held as their IEEE-754 bit pattern at their
// native width so that NaN payloads and signed zeros survive every copy.
type Operand struct {
	Kind   OperandKind
	Reg    Reg
	Imm    int64
	Sym    Symbol
	SubReg SubRegIndex

	fpWidth uint8
	fpBits  uint64
}

// RegOp returns a register operand.
func RegOp(r Reg) Operand { return Operand{Kind: KindReg, Reg: r} }

// ImmOp returns an integer immediate.
func ImmOp(v int64) Operand { return Operand{Kind: KindImm, Imm: v} }

// FPImm32Op returns a single-precision immediate.
func FPImm32Op(f float32) Operand {
	return Operand{Kind: KindFPImm, fpWidth: 32, fpBits: uint64(math.Float32bits(f))}
}

// FPImm64Op returns a double-precision immediate.
func FPImm64Op(f float64) Operand {
	return Operand{Kind: KindFPImm, fpWidth: 64, fpBits: math.Float64bits(f)}
}

// FPImmBitsOp returns a floating immediate from its raw bit pattern.
// Width must be 32 or 64; bits above the width are discarded.
func FPImmBitsOp(width int, bits uint64) Operand {
	if width == 32 {
		return Operand{Kind: KindFPImm, fpWidth: 32, fpBits: bits & 0xFFFFFFFF}
	}
	return Operand{Kind: KindFPImm, fpWidth: 64, fpBits: bits}
}

// BlockAddrOp returns the address of block label in function fn.
func BlockAddrOp(fn, label string) Operand {
	return Operand{Kind: KindSymbol, Sym: Symbol{Kind: SymBlockAddress, Func: fn, Label: label}}
}

// GlobalOp returns the address of a global symbol.
func GlobalOp(name string) Operand {
	return Operand{Kind: KindSymbol, Sym: Symbol{Kind: SymGlobal, Name: name}}
}

// SubRegOp returns a sub-register index operand.
func SubRegOp(idx SubRegIndex) Operand { return Operand{Kind: KindSubRegIndex, SubReg: idx} }

// IsReg reports whether the operand is a register.
func (o Operand) IsReg() bool { return o.Kind == KindReg }

// IsImm reports whether the operand is an integer immediate.
func (o Operand) IsImm() bool { return o.Kind == KindImm }

// IsFPImm reports whether the operand is a floating immediate.
func (o Operand) IsFPImm() bool { return o.Kind == KindFPImm }

// IsBlockAddress reports whether the operand is a block address.
func (o Operand) IsBlockAddress() bool {
	return o.Kind == KindSymbol && o.Sym.Kind == SymBlockAddress
}

// IsSymbol reports whether the operand is any symbolic address.
func (o Operand) IsSymbol() bool { return o.Kind == KindSymbol }

// FPWidth returns 32 or 64 for floating immediates and 0 otherwise.
func (o Operand) FPWidth() int { return int(o.fpWidth) }

// FPBits reinterprets the floating immediate as an unsigned integer of the
// same width. No numeric conversion takes place.
func (o Operand) FPBits() uint64 { return o.fpBits }

// Float32 returns the single-precision value.
func (o Operand) Float32() float32 { return math.Float32frombits(uint32(o.fpBits)) }

// Float64 returns the double-precision value.
func (o Operand) Float64() float64 { return math.Float64frombits(o.fpBits) }

// Equal compares operands field by field; floating immediates compare by bits.
func (o Operand) Equal(p Operand) bool {
	if o.Kind != p.Kind {
		return false
	}
	switch o.Kind {
	case KindReg:
		return o.Reg == p.Reg
	case KindImm:
		return o.Imm == p.Imm
	case KindFPImm:
		return o.fpWidth == p.fpWidth && o.fpBits == p.fpBits
	case KindSymbol:
		return o.Sym == p.Sym
	case KindSubRegIndex:
		return o.SubReg == p.SubReg
	}
	return true
}
