package mc

import (
	"fmt"
	"strings"
)

// Reg names a register. Physical registers are small integers handed out by
// a RegisterInfo; the high bit marks a virtual register.
type Reg uint32

const (
	// NoReg is the zero register value; it never names a real register.
	NoReg Reg = 0

	virtualRegBit Reg = 1 << 31
)

// VirtualReg returns the n-th virtual register.
func VirtualReg(n uint32) Reg {
	return virtualRegBit | Reg(n&^uint32(virtualRegBit))
}

// IsVirtual reports whether r is a virtual register.
func (r Reg) IsVirtual() bool { return r&virtualRegBit != 0 }

// IsPhysical reports whether r is a physical register.
func (r Reg) IsPhysical() bool { return r != NoReg && !r.IsVirtual() }

// VirtualIndex returns n for VirtualReg(n).
func (r Reg) VirtualIndex() uint32 { return uint32(r &^ virtualRegBit) }

// SubRegIndex selects one half of a double-width register.
type SubRegIndex uint8

const (
	// SubRegNone is the zero index.
	SubRegNone SubRegIndex = iota
	// SubLo selects bits 0..31 of a register pair.
	SubLo
	// SubHi selects bits 32..63 of a register pair.
	SubHi
)

func (s SubRegIndex) String() string {
	switch s {
	case SubLo:
		return "sub_lo"
	case SubHi:
		return "sub_hi"
	default:
		return "sub_none"
	}
}

// ParseSubRegIndex is the inverse of SubRegIndex.String.
func ParseSubRegIndex(s string) (SubRegIndex, bool) {
	switch s {
	case "sub_lo":
		return SubLo, true
	case "sub_hi":
		return SubHi, true
	}
	return SubRegNone, false
}

// RegClass identifies a register class within one RegisterInfo.
type RegClass uint8

// RegClassInfo describes a register class.
type RegClassInfo struct {
	ID    RegClass
	Name  string
	Width int // bits
}

type regEntry struct {
	name  string
	class RegClass
	lo    Reg
	hi    Reg
}

// RegisterInfo is the register file of one target. It is populated once when
// the target package builds it and only read afterwards.
type RegisterInfo struct {
	regs    []regEntry // index 0 is NoReg
	byName  map[string]Reg
	classes []RegClassInfo
}

// NewRegisterInfo creates an empty register file.
func NewRegisterInfo() *RegisterInfo {
	return &RegisterInfo{
		regs:   []regEntry{{name: "$noreg"}},
		byName: make(map[string]Reg, 64),
	}
}

// AddClass declares a register class.
func (ri *RegisterInfo) AddClass(name string, width int) RegClass {
	id := RegClass(len(ri.classes))
	ri.classes = append(ri.classes, RegClassInfo{ID: id, Name: name, Width: width})
	return id
}

// Add declares a physical register of class c and returns it.
func (ri *RegisterInfo) Add(name string, c RegClass) Reg {
	if _, dup := ri.byName[name]; dup {
		panic(fmt.Sprintf("mc: register %s defined twice", name))
	}
	if int(c) >= len(ri.classes) {
		panic(fmt.Sprintf("mc: register %s uses undeclared class %d", name, c))
	}
	r := Reg(len(ri.regs))
	ri.regs = append(ri.regs, regEntry{name: name, class: c})
	ri.byName[name] = r
	ri.byName[strings.ToLower(name)] = r
	return r
}

// DefinePair records that wide decomposes into lo (sub_lo) and hi (sub_hi).
func (ri *RegisterInfo) DefinePair(wide, lo, hi Reg) {
	if !ri.Valid(wide) || !ri.Valid(lo) || !ri.Valid(hi) {
		panic("mc: DefinePair on unknown register")
	}
	ri.regs[wide].lo = lo
	ri.regs[wide].hi = hi
}

// Valid reports whether r is a physical register of this file.
func (ri *RegisterInfo) Valid(r Reg) bool {
	return r.IsPhysical() && int(r) < len(ri.regs)
}

// NumRegs returns the number of physical registers.
func (ri *RegisterInfo) NumRegs() int { return len(ri.regs) - 1 }

// SubReg resolves a half of a double-width register.
func (ri *RegisterInfo) SubReg(r Reg, idx SubRegIndex) (Reg, bool) {
	if !ri.Valid(r) {
		return NoReg, false
	}
	e := ri.regs[r]
	switch idx {
	case SubLo:
		return e.lo, e.lo != NoReg
	case SubHi:
		return e.hi, e.hi != NoReg
	}
	return NoReg, false
}

// Lookup finds a physical register by name (exact or lower-case).
func (ri *RegisterInfo) Lookup(name string) (Reg, bool) {
	if r, ok := ri.byName[name]; ok {
		return r, true
	}
	r, ok := ri.byName[strings.ToLower(name)]
	return r, ok
}

// Name returns the printable name of r.
func (ri *RegisterInfo) Name(r Reg) string {
	switch {
	case r == NoReg:
		return "$noreg"
	case r.IsVirtual():
		return fmt.Sprintf("%%v%d", r.VirtualIndex())
	case ri != nil && int(r) < len(ri.regs):
		return ri.regs[r].name
	}
	return fmt.Sprintf("%%phys%d", uint32(r))
}

// Class returns the class of a physical register.
func (ri *RegisterInfo) Class(r Reg) (RegClassInfo, bool) {
	if !ri.Valid(r) {
		return RegClassInfo{}, false
	}
	return ri.classes[ri.regs[r].class], true
}

// Classes lists the declared classes.
func (ri *RegisterInfo) Classes() []RegClassInfo {
	return append([]RegClassInfo(nil), ri.classes...)
}
