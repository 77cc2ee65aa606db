package mirfile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"

	"mcgen/internal/mc"
)

// ParseInstr parses one instruction in the printer's syntax:
//
//	OPCODE op, op, ... [; file:line:col]
//
// Operands are register names, %vN, integers, f32(x), f64(x), f32bits(0x..),
// f64bits(0x..), blockaddress(fn, label), @global, sub_lo and sub_hi.
func ParseInstr(s string, ii *mc.InstrInfo, regs *mc.RegisterInfo) (mc.Instr, error) {
	body, locText, hasLoc := strings.Cut(s, ";")
	var loc mc.DebugLoc
	if hasLoc {
		var err error
		if loc, err = parseLoc(strings.TrimSpace(locText)); err != nil {
			return mc.Instr{}, err
		}
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return mc.Instr{}, errors.New("empty instruction")
	}
	name, rest, _ := strings.Cut(body, " ")
	op, ok := ii.Lookup(name)
	if !ok {
		return mc.Instr{}, fmt.Errorf("unknown opcode %q", name)
	}
	fields, err := splitOperands(rest)
	if err != nil {
		return mc.Instr{}, err
	}
	ops := make([]mc.Operand, 0, len(fields))
	for i, f := range fields {
		o, err := parseOperand(f, regs)
		if err != nil {
			return mc.Instr{}, fmt.Errorf("operand %d: %w", i, err)
		}
		ops = append(ops, o)
	}
	return mc.NewInstr(op, loc, ops...), nil
}

// splitOperands splits on top-level commas.
func splitOperands(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, errors.New("unbalanced ')'")
			}
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, errors.New("unbalanced '('")
	}
	out = append(out, strings.TrimSpace(s[start:]))
	for i, f := range out {
		if f == "" {
			return nil, fmt.Errorf("operand %d is empty", i)
		}
	}
	return out, nil
}

func call(s, fn string) (string, bool) {
	if !strings.HasPrefix(s, fn+"(") || !strings.HasSuffix(s, ")") {
		return "", false
	}
	return strings.TrimSpace(s[len(fn)+1 : len(s)-1]), true
}

func parseOperand(s string, regs *mc.RegisterInfo) (mc.Operand, error) {
	if idx, ok := mc.ParseSubRegIndex(s); ok {
		return mc.SubRegOp(idx), nil
	}
	if arg, ok := call(s, "blockaddress"); ok {
		fn, label, ok := strings.Cut(arg, ",")
		fn, label = strings.TrimSpace(fn), strings.TrimSpace(label)
		if !ok || fn == "" || label == "" {
			return mc.Operand{}, fmt.Errorf("malformed %q", s)
		}
		return mc.BlockAddrOp(norm.NFC.String(fn), norm.NFC.String(label)), nil
	}
	if arg, ok := call(s, "f32"); ok {
		v, err := strconv.ParseFloat(arg, 32)
		if err != nil {
			return mc.Operand{}, err
		}
		return mc.FPImm32Op(float32(v)), nil
	}
	if arg, ok := call(s, "f64"); ok {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return mc.Operand{}, err
		}
		return mc.FPImm64Op(v), nil
	}
	if arg, ok := call(s, "f32bits"); ok {
		v, err := strconv.ParseUint(arg, 0, 32)
		if err != nil {
			return mc.Operand{}, err
		}
		return mc.FPImmBitsOp(32, v), nil
	}
	if arg, ok := call(s, "f64bits"); ok {
		v, err := strconv.ParseUint(arg, 0, 64)
		if err != nil {
			return mc.Operand{}, err
		}
		return mc.FPImmBitsOp(64, v), nil
	}
	if name, ok := strings.CutPrefix(s, "@"); ok {
		if name == "" {
			return mc.Operand{}, errors.New("empty global name")
		}
		return mc.GlobalOp(norm.NFC.String(name)), nil
	}
	if n, ok := strings.CutPrefix(s, "%v"); ok {
		v, err := strconv.ParseUint(n, 10, 64)
		if err != nil {
			return mc.Operand{}, fmt.Errorf("bad virtual register %q", s)
		}
		idx, err := safecast.Conv[uint32](v)
		if err != nil || mc.VirtualReg(idx).VirtualIndex() != idx {
			return mc.Operand{}, fmt.Errorf("virtual register %q out of range", s)
		}
		return mc.RegOp(mc.VirtualReg(idx)), nil
	}
	if c := s[0]; c == '-' || c == '+' || (c >= '0' && c <= '9') {
		return parseImm(s)
	}
	r, ok := regs.Lookup(s)
	if !ok {
		return mc.Operand{}, fmt.Errorf("unknown register %q", s)
	}
	return mc.RegOp(r), nil
}

// parseImm accepts any int64, and unsigned hex up to 64 bits as its bit pattern.
func parseImm(s string) (mc.Operand, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err == nil {
		return mc.ImmOp(v), nil
	}
	u, uerr := strconv.ParseUint(s, 0, 64)
	if uerr != nil {
		return mc.Operand{}, fmt.Errorf("bad immediate %q", s)
	}
	return mc.ImmOp(int64(u)), nil
}

func parseLoc(s string) (mc.DebugLoc, error) {
	bad := fmt.Errorf("bad debug location %q, want file:line:col", s)
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return mc.DebugLoc{}, bad
	}
	j := strings.LastIndexByte(s[:i], ':')
	if j <= 0 {
		return mc.DebugLoc{}, bad
	}
	line, err1 := strconv.Atoi(s[j+1 : i])
	col, err2 := strconv.Atoi(s[i+1:])
	if err1 != nil || err2 != nil || line < 0 || col < 0 {
		return mc.DebugLoc{}, bad
	}
	return mc.DebugLoc{File: s[:j], Line: line, Col: col}, nil
}
