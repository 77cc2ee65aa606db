// Package mc is the machine-level instruction representation shared by all
// targets: functions, blocks, instructions, operands, and the per-target
// opcode and register tables.
//
// Instructions of a function live in an arena and are addressed by stable
// InstrID handles. Blocks chain their instructions through those handles, so
// a pass can insert before, or erase, the instruction it is looking at and
// continue its traversal from the handle that Erase returns:
//
//	for id := b.First(); id != mc.NoInstr; {
//		if dead(f.Instr(id)) {
//			id = b.Erase(id)
//			continue
//		}
//		id = b.Next(id)
//	}
package mc
