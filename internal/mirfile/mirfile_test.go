package mirfile_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"mcgen/internal/mc"
	"mcgen/internal/mirfile"
	"mcgen/internal/target/hexagon"
)

const sample = `
name = "kernel"
triple = "hexagon-unknown-elf"

[[function]]
name = "main"
alignment = 4

  [[function.block]]
  name = "entry"
  instrs = [
    "CONST32_Int_Real R1, 0x12345678 ; k.c:3:5",
    "CONST64_Float_Real D1, f64(-0.0)",
    "CONST32_Float_Real R0, f32bits(0x7fc00001)",
    "CONST32_Int_Real R2, blockaddress(main, exit)",
    "A2_addi R1, R1, -4",
    "J2_jump @tail",
  ]

  [[function.block]]
  name = "exit"
  address-taken = true
  instrs = ["JMPret R31"]
`

func parseSample(t *testing.T) *mc.Module {
	t.Helper()
	m, err := mirfile.Parse("k.toml", []byte(sample), hexagon.Instrs(), hexagon.Registers())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestParse(t *testing.T) {
	m := parseSample(t)
	if m.Name != "kernel" || m.Triple != "hexagon-unknown-elf" || len(m.Funcs) != 1 {
		t.Fatalf("module = %s %s %d funcs", m.Name, m.Triple, len(m.Funcs))
	}
	f := m.Funcs[0]
	if f.Attrs.Alignment != 4 || len(f.Blocks) != 2 || !f.Blocks[1].Attrs.AddressTaken {
		t.Fatalf("attributes lost: %+v %+v", f.Attrs, f.Blocks[1].Attrs)
	}
	ins := f.Blocks[0].Instrs()
	if ins[0].Loc != (mc.DebugLoc{File: "k.c", Line: 3, Col: 5}) {
		t.Fatalf("loc = %v", ins[0].Loc)
	}
	if op := ins[1].Operand(1); op.FPWidth() != 64 || op.FPBits() != math.Float64bits(math.Copysign(0, -1)) {
		t.Fatalf("-0.0 parsed as %#x", op.FPBits())
	}
	if op := ins[2].Operand(1); op.FPWidth() != 32 || op.FPBits() != 0x7fc00001 {
		t.Fatalf("NaN payload lost: %#x", op.FPBits())
	}
	if sym := ins[3].Operand(1).Sym; sym.Func != "main" || sym.Label != "exit" {
		t.Fatalf("blockaddress = %+v", sym)
	}
	if ins[4].Operand(2).Imm != -4 || ins[5].Operand(0).Sym.Name != "tail" {
		t.Fatalf("operands = %+v / %+v", ins[4].Operands, ins[5].Operands)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	m := parseSample(t)
	ii, regs := hexagon.Instrs(), hexagon.Registers()
	var buf bytes.Buffer
	if err := mirfile.Encode(&buf, m, ii, regs); err != nil {
		t.Fatal(err)
	}
	again, err := mirfile.Parse("k.toml", buf.Bytes(), ii, regs)
	if err != nil {
		t.Fatalf("re-parse: %v\n%s", err, buf.String())
	}
	var a, b strings.Builder
	_ = mc.PrintModule(&a, m, ii, regs)
	_ = mc.PrintModule(&b, again, ii, regs)
	if a.String() != b.String() {
		t.Fatalf("round trip differs:\n%s\nvs\n%s", a.String(), b.String())
	}
	if again.Funcs[0].Attrs != m.Funcs[0].Attrs || again.Funcs[0].Blocks[1].Attrs != m.Funcs[0].Blocks[1].Attrs {
		t.Fatal("attributes lost in round trip")
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	m := parseSample(t)
	var buf bytes.Buffer
	if err := mirfile.EncodeBinary(&buf, m); err != nil {
		t.Fatal(err)
	}
	got, err := mirfile.DecodeBinary(&buf)
	if err != nil {
		t.Fatal(err)
	}
	ii, regs := hexagon.Instrs(), hexagon.Registers()
	var a, b strings.Builder
	_ = mc.PrintModule(&a, m, ii, regs)
	_ = mc.PrintModule(&b, got, ii, regs)
	if a.String() != b.String() || got.Triple != m.Triple {
		t.Fatalf("binary round trip differs:\n%s\nvs\n%s", a.String(), b.String())
	}
}

func TestEmptyDocument(t *testing.T) {
	m, err := mirfile.Parse("dir/empty.toml", []byte("  \n"), hexagon.Instrs(), hexagon.Registers())
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "empty" || len(m.Funcs) != 0 {
		t.Fatalf("module = %+v", m)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{"redefinition", "[[function]]\nname = \"f\"\n[[function]]\nname = \"f\"\n", "redefinition of machine function 'f'"},
		{"block redefinition", "[[function]]\nname = \"f\"\n[[function.block]]\nname = \"a\"\ninstrs = []\n[[function.block]]\nname = \"a\"\ninstrs = []\n", "redefinition of block 'a'"},
		{"unknown opcode", "[[function]]\nname = \"f\"\n[[function.block]]\nname = \"a\"\ninstrs = [\"FROB R1\"]\n", `unknown opcode "FROB"`},
		{"unknown register", "[[function]]\nname = \"f\"\n[[function.block]]\nname = \"a\"\ninstrs = [\"A2_tfr R1, Q9\"]\n", `unknown register "Q9"`},
		{"bad block address", "[[function]]\nname = \"f\"\n[[function.block]]\nname = \"a\"\ninstrs = [\"LO R1, blockaddress(f, nowhere)\"]\n", "undefined block 'nowhere'"},
		{"unknown key", "name = \"x\"\nflavour = 1\n", `unknown key "flavour"`},
		{"bad toml", "name = ", "invalid TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mirfile.Parse("bad.toml", []byte(tt.doc), hexagon.Instrs(), hexagon.Registers())
			var pe *mirfile.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want ParseError", err)
			}
			if !strings.Contains(err.Error(), tt.msg) || !strings.HasPrefix(err.Error(), "bad.toml: ") {
				t.Fatalf("err = %q, want it to contain %q", err, tt.msg)
			}
		})
	}
}

func TestParseInstr(t *testing.T) {
	ii, regs := hexagon.Instrs(), hexagon.Registers()
	tests := []struct {
		in, want string
	}{
		{"A2_tfrsi R1, 42", "A2_tfrsi R1, 42"},
		{"A2_tfrsi r1,0x10", "A2_tfrsi R1, 16"},
		{"CONST64_Int_Real D0, 0xffffffffffffffff", "CONST64_Int_Real D0, -1"},
		{"CONST32_Float_Real R0, f32(1.5)", "CONST32_Float_Real R0, f32bits(0x3fc00000)"},
		{"A2_tfr %v7, R2 ; a/b.c:10:2", "A2_tfr %v7, R2 ; a/b.c:10:2"},
		{"A2_nop", "A2_nop"},
	}
	for _, tt := range tests {
		in, err := mirfile.ParseInstr(tt.in, ii, regs)
		if err != nil {
			t.Fatalf("ParseInstr(%q): %v", tt.in, err)
		}
		if got := mc.FormatInstr(&in, ii, regs); got != tt.want {
			t.Fatalf("ParseInstr(%q) printed %q, want %q", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"", "A2_tfr R1,", "A2_tfr R1, (", "A2_tfrsi R1, 12abc", "A2_tfr R1, R2 ; nowhere", "A2_tfr %v99999999999, R1"} {
		if _, err := mirfile.ParseInstr(bad, ii, regs); err == nil {
			t.Fatalf("ParseInstr(%q) succeeded", bad)
		}
	}
}

func TestNamesAreNormalized(t *testing.T) {
	doc := "[[function]]\nname = \"cafe\u0301\"\n"
	m, err := mirfile.Parse("n.toml", []byte(doc), hexagon.Instrs(), hexagon.Registers())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Func("caf\u00e9"); !ok {
		t.Fatalf("function name %q not NFC-normalized", m.Funcs[0].Name)
	}
}

func TestDecodeBinaryRejectsOtherSchema(t *testing.T) {
	var buf bytes.Buffer
	if err := mirfile.EncodeBinary(&buf, &mc.Module{Name: "x"}); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	// The schema is the first field; flip its value.
	i := bytes.Index(data, []byte("schema"))
	if i < 0 {
		t.Fatal("schema key not found")
	}
	data[i+len("schema")] = 0x07
	if _, err := mirfile.DecodeBinary(bytes.NewReader(data)); err == nil || !strings.Contains(err.Error(), "schema version 7") {
		t.Fatalf("err = %v", err)
	}
}
