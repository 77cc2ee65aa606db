package mc

import (
	"fmt"
	"slices"
)

// InstrID is a stable handle to an instruction inside its Function's arena.
// Handles are never reused; an erased instruction's handle resolves to nil.
type InstrID int32

// NoInstr is the handle returned past the end of a block.
const NoInstr InstrID = -1

// DebugLoc is the source location an instruction was produced from.
type DebugLoc struct {
	File string
	Line int
	Col  int
}

// IsZero reports whether the location is unset.
func (l DebugLoc) IsZero() bool { return l.File == "" && l.Line == 0 && l.Col == 0 }

func (l DebugLoc) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Instr is a machine instruction: an opcode and its operands.
type Instr struct {
	Opcode   Opcode
	Operands []Operand
	Loc      DebugLoc

	id    InstrID
	prev  InstrID
	next  InstrID
	block *Block
}

// NewInstr builds a detached instruction for insertion into a block.
func NewInstr(op Opcode, loc DebugLoc, ops ...Operand) Instr {
	return Instr{Opcode: op, Operands: ops, Loc: loc, id: NoInstr, prev: NoInstr, next: NoInstr}
}

// ID returns the instruction's handle, or NoInstr when detached.
func (in *Instr) ID() InstrID { return in.id }

// Parent returns the block holding the instruction.
func (in *Instr) Parent() *Block { return in.block }

// Operand returns operand i.
func (in *Instr) Operand(i int) Operand { return in.Operands[i] }

// NumOperands returns the operand count.
func (in *Instr) NumOperands() int { return len(in.Operands) }

// Equal compares opcode, operands and location.
func (in *Instr) Equal(other *Instr) bool {
	if in.Opcode != other.Opcode || in.Loc != other.Loc {
		return false
	}
	return slices.EqualFunc(in.Operands, other.Operands, Operand.Equal)
}
