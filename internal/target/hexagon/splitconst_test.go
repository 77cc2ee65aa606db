package hexagon_test

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"mcgen/internal/codegen"
	"mcgen/internal/mc"
	"mcgen/internal/target"
	"mcgen/internal/target/hexagon"
	"mcgen/internal/testkit"
)

func newMachine(t *testing.T, fs string) *target.Machine {
	t.Helper()
	r := target.NewRegistry()
	hexagon.Register(r)
	r.Seal()
	m, err := r.Construct("hexagon", "hexagon-unknown-elf", "", fs, target.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func splitPass(m *target.Machine) codegen.Pass {
	return hexagon.NewSplitConst(m.ObjectLowering(), m.Instrs(), m.Registers())
}

var loc = mc.DebugLoc{File: "k.c", Line: 7, Col: 3}

func oneBlock(ins ...mc.Instr) *mc.Function {
	f := mc.NewFunction("fn")
	b := f.NewBlock("entry")
	for _, in := range ins {
		b.Append(in)
	}
	return f
}

func runSplit(t *testing.T, m *target.Machine, f *mc.Function) (bool, string) {
	t.Helper()
	changed, err := splitPass(m).Run(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	if err := testkit.CheckBlockLinks(f); err != nil {
		t.Fatal(err)
	}
	return changed, mc.Sprint(f, m.Instrs(), m.Registers())
}

func TestSplitConst(t *testing.T) {
	tests := []struct {
		name string
		in   mc.Instr
		want []string
	}{
		{
			name: "const32 immediate",
			in:   mc.NewInstr(hexagon.Const32Int, loc, mc.RegOp(hexagon.R(1)), mc.ImmOp(0x12345678)),
			want: []string{"A2_tfrsi R1, 305419896 ; k.c:7:3"},
		},
		{
			name: "const32 unsigned immediate is sign extended",
			in:   mc.NewInstr(hexagon.Const32Int, loc, mc.RegOp(hexagon.R(1)), mc.ImmOp(0xFFFFFFFF)),
			want: []string{"A2_tfrsi R1, -1 ; k.c:7:3"},
		},
		{
			name: "const32 negative immediate",
			in:   mc.NewInstr(hexagon.Const32Int, loc, mc.RegOp(hexagon.R(4)), mc.ImmOp(-5)),
			want: []string{"A2_tfrsi R4, -5 ; k.c:7:3"},
		},
		{
			name: "const32 float",
			in:   mc.NewInstr(hexagon.Const32Float, loc, mc.RegOp(hexagon.R(2)), mc.FPImm32Op(1.0)),
			want: []string{"A2_tfrsi R2, 1065353216 ; k.c:7:3"},
		},
		{
			name: "const32 negative zero keeps sign bit",
			in:   mc.NewInstr(hexagon.Const32Float, loc, mc.RegOp(hexagon.R(2)), mc.FPImmBitsOp(32, 0x80000000)),
			want: []string{"A2_tfrsi R2, -2147483648 ; k.c:7:3"},
		},
		{
			name: "const32 nan payload",
			in:   mc.NewInstr(hexagon.Const32Float, loc, mc.RegOp(hexagon.R(2)), mc.FPImmBitsOp(32, 0x7FC00001)),
			want: []string{"A2_tfrsi R2, 2143289345 ; k.c:7:3"},
		},
		{
			name: "const32 negative infinity",
			in:   mc.NewInstr(hexagon.Const32Float, loc, mc.RegOp(hexagon.R(2)), mc.FPImmBitsOp(32, 0xFF800000)),
			want: []string{"A2_tfrsi R2, -8388608 ; k.c:7:3"},
		},
		{
			name: "const64 integer",
			in:   mc.NewInstr(hexagon.Const64Int, loc, mc.RegOp(hexagon.D(1)), mc.ImmOp(0x1122334455667788)),
			want: []string{
				"A2_tfrsi R2, 1432778632 ; k.c:7:3",
				"A2_tfrsi R3, 287454020 ; k.c:7:3",
			},
		},
		{
			name: "const64 float",
			in:   mc.NewInstr(hexagon.Const64Float, loc, mc.RegOp(hexagon.D(0)), mc.FPImm64Op(-2.5)),
			want: []string{
				"A2_tfrsi R0, 0 ; k.c:7:3",
				"A2_tfrsi R1, -1073479680 ; k.c:7:3",
			},
		},
		{
			name: "const32 block address",
			in:   mc.NewInstr(hexagon.Const32Int, loc, mc.RegOp(hexagon.R(1)), mc.BlockAddrOp("fn", "L")),
			want: []string{
				"LO R1, blockaddress(fn, L) ; k.c:7:3",
				"HI R1, blockaddress(fn, L) ; k.c:7:3",
			},
		},
	}
	m := newMachine(t, "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := oneBlock(
				mc.NewInstr(hexagon.Nop, mc.DebugLoc{}),
				tt.in,
				mc.NewInstr(hexagon.JumpR, mc.DebugLoc{}, mc.RegOp(hexagon.R(31))),
			)
			changed, got := runSplit(t, m, f)
			if !changed {
				t.Fatal("pass reported no change")
			}
			want := "function fn\nbb.0.entry:\n  A2_nop\n"
			for _, w := range tt.want {
				want += "  " + w + "\n"
			}
			want += "  JMPret R31\n"
			if got != want {
				t.Fatalf("got:\n%s\nwant:\n%s", got, want)
			}
			for _, in := range f.Blocks[0].Instrs() {
				if hexagon.IsConstLoad(in.Opcode) {
					t.Fatalf("constant load survived: %s", mc.FormatInstr(in, m.Instrs(), m.Registers()))
				}
			}
		})
	}
}

func TestSplitConstAdjacentLoads(t *testing.T) {
	m := newMachine(t, "")
	f := oneBlock(
		mc.NewInstr(hexagon.Const32Int, loc, mc.RegOp(hexagon.R(0)), mc.ImmOp(1)),
		mc.NewInstr(hexagon.Const64Int, loc, mc.RegOp(hexagon.D(2)), mc.ImmOp(-1)),
		mc.NewInstr(hexagon.Const32Int, loc, mc.RegOp(hexagon.R(7)), mc.BlockAddrOp("fn", "exit")),
	)
	_, got := runSplit(t, m, f)
	want := "function fn\nbb.0.entry:\n" +
		"  A2_tfrsi R0, 1 ; k.c:7:3\n" +
		"  A2_tfrsi R4, -1 ; k.c:7:3\n" +
		"  A2_tfrsi R5, -1 ; k.c:7:3\n" +
		"  LO R7, blockaddress(fn, exit) ; k.c:7:3\n" +
		"  HI R7, blockaddress(fn, exit) ; k.c:7:3\n"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
	if f.NumInstrs() != 5 {
		t.Fatalf("NumInstrs = %d", f.NumInstrs())
	}
}

func TestSplitConstSmallDataIsNoop(t *testing.T) {
	m := newMachine(t, "+small-data")
	if !m.ObjectLowering().SmallDataEnabled() {
		t.Fatal("small data should be enabled")
	}
	f := oneBlock(mc.NewInstr(hexagon.Const32Int, loc, mc.RegOp(hexagon.R(1)), mc.ImmOp(42)))
	before := mc.Sprint(f, m.Instrs(), m.Registers())
	changed, after := runSplit(t, m, f)
	if changed || after != before {
		t.Fatalf("changed=%v\nbefore:\n%s\nafter:\n%s", changed, before, after)
	}
}

func TestSplitConstZeroThresholdDisablesSmallData(t *testing.T) {
	r := target.NewRegistry()
	hexagon.Register(r)
	r.Seal()
	m, err := r.Construct("", "hexagon", "", "+small-data", target.Options{SmallDataThreshold: 0})
	if err != nil {
		t.Fatal(err)
	}
	if m.ObjectLowering().SmallDataEnabled() {
		t.Fatal("threshold 0 must disable small data")
	}
}

func TestSplitConstIsIdempotentWithoutLoads(t *testing.T) {
	m := newMachine(t, "")
	f := oneBlock(
		mc.NewInstr(hexagon.TfrSI, loc, mc.RegOp(hexagon.R(1)), mc.ImmOp(3)),
		mc.NewInstr(hexagon.Add, loc, mc.RegOp(hexagon.R(1)), mc.RegOp(hexagon.R(1)), mc.RegOp(hexagon.R(2))),
	)
	before := f.Clone()
	changed, _ := runSplit(t, m, f)
	if changed {
		t.Fatal("pass changed a function without constant loads")
	}
	got, want := f.Blocks[0].Instrs(), before.Blocks[0].Instrs()
	if len(got) != len(want) {
		t.Fatalf("instruction count changed")
	}
	for i := range got {
		if !got[i].Equal(want[i]) || got[i].ID() != want[i].ID() {
			t.Fatalf("instruction %d changed", i)
		}
	}
}

func TestSplitConstInvariantViolations(t *testing.T) {
	tests := []struct {
		name string
		in   mc.Instr
		msg  string
	}{
		{"symbol on 64-bit path", mc.NewInstr(hexagon.Const64Int, loc, mc.RegOp(hexagon.D(0)), mc.GlobalOp("g")), "64-bit constant"},
		{"float on int32 path", mc.NewInstr(hexagon.Const32Int, loc, mc.RegOp(hexagon.R(0)), mc.FPImm32Op(1)), "unexpected fpimm source"},
		{"wide immediate", mc.NewInstr(hexagon.Const32Int, loc, mc.RegOp(hexagon.R(0)), mc.ImmOp(1<<33)), "does not fit in 32 bits"},
		{"double on float32 path", mc.NewInstr(hexagon.Const32Float, loc, mc.RegOp(hexagon.R(0)), mc.FPImm64Op(1)), "32-bit float"},
		{"single register for 64-bit", mc.NewInstr(hexagon.Const64Int, loc, mc.RegOp(hexagon.R(0)), mc.ImmOp(1)), "not a register pair"},
		{"virtual destination", mc.NewInstr(hexagon.Const32Int, loc, mc.RegOp(mc.VirtualReg(1)), mc.ImmOp(1)), "physical destination"},
	}
	m := newMachine(t, "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := oneBlock(tt.in)
			_, err := splitPass(m).Run(context.Background(), f)
			var inv *codegen.InvariantError
			if !errors.As(err, &inv) {
				t.Fatalf("err = %v, want InvariantError", err)
			}
			if inv.Function != "fn" || inv.Block != "bb.0.entry" || inv.Pass != hexagon.SplitConstName {
				t.Fatalf("error not located: %+v", inv)
			}
			if !strings.Contains(inv.Msg, tt.msg) {
				t.Fatalf("msg = %q, want it to contain %q", inv.Msg, tt.msg)
			}
		})
	}
}

func TestSplitJoinImm64(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	values := []uint64{0, 1, math.MaxUint64, 1 << 63, 0x1122334455667788, 0xFFFFFFFF, 0x100000000}
	for range 1000 {
		values = append(values, rng.Uint64())
	}
	for _, v := range values {
		lo, hi := hexagon.SplitImm64(v)
		if got := hexagon.JoinImm64(lo, hi); got != v {
			t.Fatalf("JoinImm64(SplitImm64(%#x)) = %#x", v, got)
		}
	}
}

func TestConst64FloatKeepsBits(t *testing.T) {
	m := newMachine(t, "")
	rng := rand.New(rand.NewPCG(3, 4))
	bits := []uint64{
		math.Float64bits(math.Copysign(0, -1)),
		0x7FF8000000000001, // quiet NaN with payload
		0x7FF0000000000001, // signalling NaN
		math.Float64bits(math.Inf(-1)),
		math.Float64bits(math.SmallestNonzeroFloat64),
	}
	for range 200 {
		bits = append(bits, rng.Uint64())
	}
	for _, want := range bits {
		f := oneBlock(mc.NewInstr(hexagon.Const64Float, loc, mc.RegOp(hexagon.D(3)), mc.FPImmBitsOp(64, want)))
		if _, err := splitPass(m).Run(context.Background(), f); err != nil {
			t.Fatal(err)
		}
		ins := f.Blocks[0].Instrs()
		if len(ins) != 2 {
			t.Fatalf("got %d instructions", len(ins))
		}
		lo, hi := uint32(ins[0].Operand(1).Imm), uint32(ins[1].Operand(1).Imm)
		got := hexagon.JoinImm64(lo, hi)
		if got != want || math.Float64bits(math.Float64frombits(got)) != want {
			t.Fatalf("bits %#016x came back as %#016x", want, got)
		}
	}
}

func TestStandardPipelineLowersHexagon(t *testing.T) {
	m := newMachine(t, "")
	f := oneBlock(
		mc.NewInstr(hexagon.Const64Int, loc, mc.RegOp(hexagon.D(1)), mc.ImmOp(0x1122334455667788)),
		mc.NewInstr(mc.OpCopy, mc.DebugLoc{}, mc.RegOp(hexagon.D(2)), mc.RegOp(hexagon.D(1))),
		mc.NewInstr(mc.OpKill, mc.DebugLoc{}, mc.RegOp(hexagon.D(1))),
		mc.NewInstr(mc.OpCopy, mc.DebugLoc{}, mc.RegOp(hexagon.R(0)), mc.RegOp(hexagon.R(4))),
		mc.NewInstr(hexagon.JumpR, mc.DebugLoc{}, mc.RegOp(hexagon.R(31))),
	)
	mod := &mc.Module{Name: "k", Triple: "hexagon", Funcs: []*mc.Function{f}}
	res, err := codegen.Run(context.Background(), m.NewPipeline(), mod, codegen.RunOptions{VerifyEach: true})
	if err != nil {
		t.Fatal(err)
	}
	want := "function fn\nbb.0.entry:\n" +
		"  A2_tfrsi R2, 1432778632 ; k.c:7:3\n" +
		"  A2_tfrsi R3, 287454020 ; k.c:7:3\n" +
		"  A2_tfrp D2, D1\n" +
		"  A2_tfr R0, R4\n" +
		"  JMPret R31\n"
	if got := mc.Sprint(f, m.Instrs(), m.Registers()); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
	if res.Changed(hexagon.SplitConstName) != 1 {
		t.Fatalf("stats = %+v", res.Passes)
	}
	if err := testkit.CheckNoOpcodes(mod, hexagon.IsConstLoad); err != nil {
		t.Fatal(err)
	}
}
