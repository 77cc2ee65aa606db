package mc

import (
	"fmt"
	"slices"
)

// Opcode identifies an instruction's operation. Values below
// FirstTargetOpcode are shared by every target.
type Opcode uint16

const (
	OpInvalid Opcode = iota
	// OpCopy is the generic register-to-register copy (dst, src).
	OpCopy
	// OpKill marks the end of a register's live range (reg).
	OpKill
	// OpImplicitDef defines a register with an undefined value (reg).
	OpImplicitDef

	// FirstTargetOpcode is the first opcode a target may define.
	FirstTargetOpcode Opcode = 16
)

// OperandMask is the set of kinds accepted by one operand slot.
type OperandMask uint8

// Mask builds an OperandMask.
func Mask(kinds ...OperandKind) OperandMask {
	var m OperandMask
	for _, k := range kinds {
		m |= 1 << k
	}
	return m
}

// Has reports whether k is accepted.
func (m OperandMask) Has(k OperandKind) bool { return m&(1<<k) != 0 }

// String lists the accepted kinds joined by '|'.
func (m OperandMask) String() string {
	out := ""
	for k := KindReg; k <= KindSubRegIndex; k++ {
		if !m.Has(k) {
			continue
		}
		if out != "" {
			out += "|"
		}
		out += k.String()
	}
	if out == "" {
		return "none"
	}
	return out
}

// InstrDesc is the static description of an opcode.
type InstrDesc struct {
	Name     string
	Operands []OperandMask // fixed arity = len(Operands)
	// Pseudo marks opcodes that must be lowered before encoding.
	Pseudo bool
}

// InstrInfo is the opcode table of one target.
type InstrInfo struct {
	descs   map[Opcode]*InstrDesc
	byName  map[string]Opcode
	copyOps map[RegClass]Opcode
}

// NewInstrInfo returns a table holding the generic opcodes.
func NewInstrInfo() *InstrInfo {
	ii := &InstrInfo{
		descs:   make(map[Opcode]*InstrDesc, 32),
		byName:  make(map[string]Opcode, 32),
		copyOps: make(map[RegClass]Opcode, 4),
	}
	reg := Mask(KindReg)
	ii.define(OpCopy, InstrDesc{Name: "COPY", Operands: []OperandMask{reg, reg}, Pseudo: true})
	ii.define(OpKill, InstrDesc{Name: "KILL", Operands: []OperandMask{reg}, Pseudo: true})
	ii.define(OpImplicitDef, InstrDesc{Name: "IMPLICIT_DEF", Operands: []OperandMask{reg}, Pseudo: true})
	return ii
}

// Define adds a target opcode.
func (ii *InstrInfo) Define(op Opcode, d InstrDesc) {
	if op < FirstTargetOpcode {
		panic(fmt.Sprintf("mc: opcode %d (%s) is in the generic range", op, d.Name))
	}
	ii.define(op, d)
}

func (ii *InstrInfo) define(op Opcode, d InstrDesc) {
	if _, dup := ii.descs[op]; dup {
		panic(fmt.Sprintf("mc: opcode %d defined twice", op))
	}
	if _, dup := ii.byName[d.Name]; dup {
		panic(fmt.Sprintf("mc: opcode name %s defined twice", d.Name))
	}
	desc := d
	desc.Operands = append([]OperandMask(nil), d.Operands...)
	ii.descs[op] = &desc
	ii.byName[d.Name] = op
}

// Desc returns the description of op.
func (ii *InstrInfo) Desc(op Opcode) (*InstrDesc, bool) {
	d, ok := ii.descs[op]
	return d, ok
}

// Lookup finds an opcode by name.
func (ii *InstrInfo) Lookup(name string) (Opcode, bool) {
	op, ok := ii.byName[name]
	return op, ok
}

// Name returns the opcode's mnemonic.
func (ii *InstrInfo) Name(op Opcode) string {
	if ii != nil {
		if d, ok := ii.descs[op]; ok {
			return d.Name
		}
	}
	return fmt.Sprintf("OP%d", op)
}

// IsPseudo reports whether op must be lowered before encoding.
func (ii *InstrInfo) IsPseudo(op Opcode) bool {
	d, ok := ii.descs[op]
	return ok && d.Pseudo
}

// SetCopyOpcode records the real opcode used to copy registers of class c.
func (ii *InstrInfo) SetCopyOpcode(c RegClass, op Opcode) {
	ii.copyOps[c] = op
}

// CopyOpcode returns the copy opcode for class c.
func (ii *InstrInfo) CopyOpcode(c RegClass) (Opcode, bool) {
	op, ok := ii.copyOps[c]
	return op, ok
}

// Opcodes returns every defined opcode in ascending order.
func (ii *InstrInfo) Opcodes() []Opcode {
	out := make([]Opcode, 0, len(ii.descs))
	for op := range ii.descs {
		out = append(out, op)
	}
	slices.Sort(out)
	return out
}
