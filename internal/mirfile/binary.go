package mirfile

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"mcgen/internal/mc"
)

// SchemaVersion identifies the binary layout written by EncodeBinary.
const SchemaVersion = 1

type binModule struct {
	Schema int       `msgpack:"schema"`
	Name   string    `msgpack:"name"`
	Triple string    `msgpack:"triple"`
	Funcs  []binFunc `msgpack:"funcs"`
}

type binFunc struct {
	Name   string       `msgpack:"name"`
	Attrs  mc.FuncAttrs `msgpack:"attrs"`
	Blocks []binBlock   `msgpack:"blocks"`
}

type binBlock struct {
	Name   string        `msgpack:"name"`
	Attrs  mc.BlockAttrs `msgpack:"attrs"`
	Instrs []binInstr    `msgpack:"instrs"`
}

type binInstr struct {
	Op   uint16       `msgpack:"op"`
	Ops  []binOperand `msgpack:"ops"`
	File string       `msgpack:"file,omitempty"`
	Line int          `msgpack:"line,omitempty"`
	Col  int          `msgpack:"col,omitempty"`
}

type binOperand struct {
	Kind    uint8  `msgpack:"k"`
	Reg     uint32 `msgpack:"r,omitempty"`
	Imm     int64  `msgpack:"i,omitempty"`
	FPWidth uint8  `msgpack:"w,omitempty"`
	FPBits  uint64 `msgpack:"b,omitempty"`
	SymKind uint8  `msgpack:"sk,omitempty"`
	Func    string `msgpack:"sf,omitempty"`
	Label   string `msgpack:"sl,omitempty"`
	Name    string `msgpack:"sn,omitempty"`
	SubReg  uint8  `msgpack:"s,omitempty"`
}

// EncodeBinary writes m in the msgpack form. Opcodes and registers are
// stored by number, so the reader must use the same target tables.
func EncodeBinary(w io.Writer, m *mc.Module) error {
	out := binModule{Schema: SchemaVersion, Name: m.Name, Triple: m.Triple, Funcs: make([]binFunc, 0, len(m.Funcs))}
	for _, fn := range m.Funcs {
		bf := binFunc{Name: fn.Name, Attrs: fn.Attrs, Blocks: make([]binBlock, 0, len(fn.Blocks))}
		for _, b := range fn.Blocks {
			bb := binBlock{Name: b.Name, Attrs: b.Attrs, Instrs: make([]binInstr, 0, b.Len())}
			for _, in := range b.Instrs() {
				bi := binInstr{Op: uint16(in.Opcode), File: in.Loc.File, Line: in.Loc.Line, Col: in.Loc.Col}
				for _, op := range in.Operands {
					bi.Ops = append(bi.Ops, packOperand(op))
				}
				bb.Instrs = append(bb.Instrs, bi)
			}
			bf.Blocks = append(bf.Blocks, bb)
		}
		out.Funcs = append(out.Funcs, bf)
	}
	return msgpack.NewEncoder(w).Encode(&out)
}

func packOperand(op mc.Operand) binOperand {
	bo := binOperand{Kind: uint8(op.Kind)}
	switch op.Kind {
	case mc.KindReg:
		bo.Reg = uint32(op.Reg)
	case mc.KindImm:
		bo.Imm = op.Imm
	case mc.KindFPImm:
		bo.FPWidth = uint8(op.FPWidth())
		bo.FPBits = op.FPBits()
	case mc.KindSymbol:
		bo.SymKind = uint8(op.Sym.Kind)
		bo.Func, bo.Label, bo.Name = op.Sym.Func, op.Sym.Label, op.Sym.Name
	case mc.KindSubRegIndex:
		bo.SubReg = uint8(op.SubReg)
	}
	return bo
}

// DecodeBinary reads a module written by EncodeBinary.
func DecodeBinary(r io.Reader) (*mc.Module, error) {
	var in binModule
	if err := msgpack.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("mirfile: decode: %w", err)
	}
	if in.Schema != SchemaVersion {
		return nil, fmt.Errorf("mirfile: schema version %d, want %d", in.Schema, SchemaVersion)
	}
	m := &mc.Module{Name: in.Name, Triple: in.Triple, Funcs: make([]*mc.Function, 0, len(in.Funcs))}
	for _, bf := range in.Funcs {
		fn := mc.NewFunction(bf.Name)
		fn.Attrs = bf.Attrs
		for _, bb := range bf.Blocks {
			b := fn.NewBlock(bb.Name)
			b.Attrs = bb.Attrs
			for _, bi := range bb.Instrs {
				ops := make([]mc.Operand, 0, len(bi.Ops))
				for _, bo := range bi.Ops {
					op, err := unpackOperand(bo)
					if err != nil {
						return nil, fmt.Errorf("mirfile: function %s: block %s: %w", bf.Name, bb.Name, err)
					}
					ops = append(ops, op)
				}
				loc := mc.DebugLoc{File: bi.File, Line: bi.Line, Col: bi.Col}
				b.Append(mc.NewInstr(mc.Opcode(bi.Op), loc, ops...))
			}
		}
		m.Funcs = append(m.Funcs, fn)
	}
	return m, nil
}

func unpackOperand(bo binOperand) (mc.Operand, error) {
	switch mc.OperandKind(bo.Kind) {
	case mc.KindReg:
		return mc.RegOp(mc.Reg(bo.Reg)), nil
	case mc.KindImm:
		return mc.ImmOp(bo.Imm), nil
	case mc.KindFPImm:
		if bo.FPWidth != 32 && bo.FPWidth != 64 {
			return mc.Operand{}, fmt.Errorf("float immediate of width %d", bo.FPWidth)
		}
		return mc.FPImmBitsOp(int(bo.FPWidth), bo.FPBits), nil
	case mc.KindSymbol:
		switch mc.SymbolKind(bo.SymKind) {
		case mc.SymBlockAddress:
			return mc.BlockAddrOp(bo.Func, bo.Label), nil
		case mc.SymGlobal:
			return mc.GlobalOp(bo.Name), nil
		}
		return mc.Operand{}, fmt.Errorf("unknown symbol kind %d", bo.SymKind)
	case mc.KindSubRegIndex:
		return mc.SubRegOp(mc.SubRegIndex(bo.SubReg)), nil
	}
	return mc.Operand{}, fmt.Errorf("unknown operand kind %d", bo.Kind)
}
