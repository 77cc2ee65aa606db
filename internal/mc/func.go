package mc

import (
	"fmt"

	"fortio.org/safecast"
)

// BlockID is the position of a block in its function.
type BlockID int32

// Function is the unit of compilation: an ordered list of blocks whose
// instructions live in one arena owned by the function.
type Function struct {
	Name   string
	Blocks []*Block
	Attrs  FuncAttrs

	arena []*Instr
	live  int
}

// FuncAttrs are function-level properties carried through lowering.
type FuncAttrs struct {
	Alignment           uint32 // log2 bytes, 0 = default
	ExposesReturnsTwice bool
	HasInlineAsm        bool
}

// BlockAttrs are block-level properties carried through lowering.
type BlockAttrs struct {
	Alignment    uint32 // log2 bytes, 0 = default
	AddressTaken bool
	IsLandingPad bool
}

// NewFunction creates an empty function.
func NewFunction(name string) *Function {
	return &Function{Name: name}
}

// NewBlock appends an empty block.
func (f *Function) NewBlock(name string) *Block {
	id, err := safecast.Conv[int32](len(f.Blocks))
	if err != nil {
		panic(fmt.Sprintf("mc: too many blocks in %s: %v", f.Name, err))
	}
	b := &Block{ID: BlockID(id), Name: name, fn: f, head: NoInstr, tail: NoInstr}
	f.Blocks = append(f.Blocks, b)
	return b
}

// BlockByName returns the block labelled name.
func (f *Function) BlockByName(name string) (*Block, bool) {
	for _, b := range f.Blocks {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// Instr resolves a handle. It returns nil for erased or unknown handles.
func (f *Function) Instr(id InstrID) *Instr {
	if id < 0 || int(id) >= len(f.arena) {
		return nil
	}
	return f.arena[id]
}

// NumInstrs returns the number of live instructions.
func (f *Function) NumInstrs() int { return f.live }

// ArenaSize returns the number of handles ever allocated.
func (f *Function) ArenaSize() int { return len(f.arena) }

func (f *Function) alloc(in Instr, b *Block) *Instr {
	id, err := safecast.Conv[int32](len(f.arena))
	if err != nil {
		panic(fmt.Sprintf("mc: instruction arena of %s overflowed: %v", f.Name, err))
	}
	node := in
	node.Operands = append([]Operand(nil), in.Operands...)
	node.id = InstrID(id)
	node.prev, node.next = NoInstr, NoInstr
	node.block = b
	f.arena = append(f.arena, &node)
	f.live++
	return &node
}

// Clone returns a deep copy. Handles in the copy equal those in f.
func (f *Function) Clone() *Function {
	c := &Function{Name: f.Name, Attrs: f.Attrs, live: f.live, arena: make([]*Instr, len(f.arena))}
	c.Blocks = make([]*Block, len(f.Blocks))
	for i, b := range f.Blocks {
		c.Blocks[i] = &Block{ID: b.ID, Name: b.Name, Attrs: b.Attrs, fn: c, head: b.head, tail: b.tail, n: b.n}
	}
	for i, in := range f.arena {
		if in == nil {
			continue
		}
		node := *in
		node.Operands = append([]Operand(nil), in.Operands...)
		node.block = c.Blocks[in.block.ID]
		c.arena[i] = &node
	}
	return c
}

// Block is an ordered sequence of instructions. Instructions link to their
// neighbours through handles, so insertion and removal never move others.
type Block struct {
	ID    BlockID
	Name  string
	Attrs BlockAttrs

	fn   *Function
	head InstrID
	tail InstrID
	n    int
}

// Func returns the owning function.
func (b *Block) Func() *Function { return b.fn }

// Len returns the number of instructions.
func (b *Block) Len() int { return b.n }

// First returns the first instruction or NoInstr.
func (b *Block) First() InstrID { return b.head }

// Last returns the last instruction or NoInstr.
func (b *Block) Last() InstrID { return b.tail }

// Next returns the successor of id or NoInstr at the end.
func (b *Block) Next(id InstrID) InstrID { return b.own(id).next }

// Prev returns the predecessor of id or NoInstr at the start.
func (b *Block) Prev(id InstrID) InstrID { return b.own(id).prev }

// Append adds in at the end of the block and returns its handle.
func (b *Block) Append(in Instr) InstrID {
	return b.InsertBefore(NoInstr, in)
}

// InsertBefore inserts in ahead of pos; pos == NoInstr appends.
func (b *Block) InsertBefore(pos InstrID, in Instr) InstrID {
	var at *Instr
	if pos != NoInstr {
		at = b.own(pos)
	}
	node := b.fn.alloc(in, b)
	if at == nil {
		node.prev = b.tail
		if b.tail != NoInstr {
			b.fn.arena[b.tail].next = node.id
		} else {
			b.head = node.id
		}
		b.tail = node.id
	} else {
		node.prev = at.prev
		node.next = at.id
		if at.prev != NoInstr {
			b.fn.arena[at.prev].next = node.id
		} else {
			b.head = node.id
		}
		at.prev = node.id
	}
	b.n++
	return node.id
}

// Erase removes id from the block and returns the handle of the instruction
// that followed it, so a traversal can resume exactly there.
func (b *Block) Erase(id InstrID) InstrID {
	node := b.own(id)
	next := node.next
	if node.prev != NoInstr {
		b.fn.arena[node.prev].next = node.next
	} else {
		b.head = node.next
	}
	if node.next != NoInstr {
		b.fn.arena[node.next].prev = node.prev
	} else {
		b.tail = node.prev
	}
	node.block = nil
	node.prev, node.next = NoInstr, NoInstr
	b.fn.arena[id] = nil
	b.fn.live--
	b.n--
	return next
}

// Replace substitutes the opcode and operands of id in place.
func (b *Block) Replace(id InstrID, op Opcode, ops ...Operand) {
	node := b.own(id)
	node.Opcode = op
	node.Operands = append(node.Operands[:0:0], ops...)
}

// IDs returns a snapshot of the block's handles in order.
func (b *Block) IDs() []InstrID {
	out := make([]InstrID, 0, b.n)
	for id := b.head; id != NoInstr; id = b.fn.arena[id].next {
		out = append(out, id)
	}
	return out
}

// Instrs returns the block's instructions in order.
func (b *Block) Instrs() []*Instr {
	out := make([]*Instr, 0, b.n)
	for id := b.head; id != NoInstr; id = b.fn.arena[id].next {
		out = append(out, b.fn.arena[id])
	}
	return out
}

func (b *Block) own(id InstrID) *Instr {
	in := b.fn.Instr(id)
	if in == nil || in.block != b {
		panic(fmt.Sprintf("mc: instruction %d is not in block bb.%d.%s of %s", id, b.ID, b.Name, b.fn.Name))
	}
	return in
}

// Module is a set of functions compiled for one target.
type Module struct {
	Name   string
	Triple string
	Funcs  []*Function
}

// Func returns the function called name.
func (m *Module) Func(name string) (*Function, bool) {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Clone deep-copies every function.
func (m *Module) Clone() *Module {
	c := &Module{Name: m.Name, Triple: m.Triple, Funcs: make([]*Function, len(m.Funcs))}
	for i, f := range m.Funcs {
		c.Funcs[i] = f.Clone()
	}
	return c
}
