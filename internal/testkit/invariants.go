// Package testkit holds structural invariant checks shared by tests.
package testkit

import (
	"fmt"

	"mcgen/internal/mc"
)

// CheckBlockLinks verifies the handle chains of every block of f:
// 1) forward and backward walks visit the same instructions in mirror order
// 2) every visited handle resolves and reports the block as its parent
// 3) the walk length equals Block.Len and the sum equals Function.NumInstrs
func CheckBlockLinks(f *mc.Function) error {
	if f == nil {
		return fmt.Errorf("nil function")
	}
	total := 0
	for _, b := range f.Blocks {
		var fwd []mc.InstrID
		seen := make(map[mc.InstrID]bool, b.Len())
		for id := b.First(); id != mc.NoInstr; id = b.Next(id) {
			if seen[id] {
				return fmt.Errorf("bb.%d.%s: cycle at instr %d", b.ID, b.Name, id)
			}
			seen[id] = true
			in := f.Instr(id)
			if in == nil {
				return fmt.Errorf("bb.%d.%s: dangling handle %d", b.ID, b.Name, id)
			}
			if in.Parent() != b {
				return fmt.Errorf("bb.%d.%s: instr %d has wrong parent", b.ID, b.Name, id)
			}
			fwd = append(fwd, id)
		}
		var back []mc.InstrID
		for id := b.Last(); id != mc.NoInstr; id = b.Prev(id) {
			back = append(back, id)
		}
		if len(fwd) != len(back) {
			return fmt.Errorf("bb.%d.%s: forward walk %d != backward walk %d", b.ID, b.Name, len(fwd), len(back))
		}
		for i := range fwd {
			if fwd[i] != back[len(back)-1-i] {
				return fmt.Errorf("bb.%d.%s: walks disagree at position %d", b.ID, b.Name, i)
			}
		}
		if len(fwd) != b.Len() {
			return fmt.Errorf("bb.%d.%s: Len() = %d, walked %d", b.ID, b.Name, b.Len(), len(fwd))
		}
		total += len(fwd)
	}
	if total != f.NumInstrs() {
		return fmt.Errorf("function %s: NumInstrs() = %d, blocks hold %d", f.Name, f.NumInstrs(), total)
	}
	return nil
}

// CheckNoOpcodes reports any instruction of m whose opcode satisfies banned.
func CheckNoOpcodes(m *mc.Module, banned func(mc.Opcode) bool) error {
	for _, f := range m.Funcs {
		for _, b := range f.Blocks {
			for _, in := range b.Instrs() {
				if banned(in.Opcode) {
					return fmt.Errorf("%s: bb.%d.%s: instr %d has opcode %d", f.Name, b.ID, b.Name, in.ID(), in.Opcode)
				}
			}
		}
	}
	return nil
}
