package hexagon

// SplitImm64 returns bits 0..31 and bits 32..63 of v.
func SplitImm64(v uint64) (lo, hi uint32) {
	return uint32(v), uint32(v >> 32)
}

// JoinImm64 is the inverse of SplitImm64.
func JoinImm64(lo, hi uint32) uint64 {
	return uint64(lo) | uint64(hi)<<32
}

// tfrsiImm is the A2_tfrsi operand encoding a 32-bit word: the #s32 field
// holds it sign-extended.
func tfrsiImm(word uint32) int64 {
	return int64(int32(word))
}
