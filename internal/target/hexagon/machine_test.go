package hexagon_test

import (
	"slices"
	"testing"

	"mcgen/internal/mc"
	"mcgen/internal/target"
	"mcgen/internal/target/hexagon"
	"mcgen/internal/triple"
)

func TestHexagonLayout(t *testing.T) {
	const want = "e-m:e-p:32:32-i1:32-i64:64-a:0-n32"
	for _, s := range []string{"hexagon", "hexagon-unknown-elf", "hexagon-le"} {
		tr := triple.MustParse(s)
		a, b := hexagon.Layout(tr).String(), hexagon.Layout(tr).String()
		if a != want || a != b {
			t.Fatalf("layout for %s = %q / %q", s, a, b)
		}
	}
}

func TestHexagonConstruct(t *testing.T) {
	r := target.NewRegistry()
	hexagon.Register(r)
	r.Seal()

	m, err := r.Construct("", "hexagon-unknown-elf", "hexagonv55", "-duplex,+frobnicate", target.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Subtarget().Enabled(); !slices.Equal(got, []string{"v5"}) {
		t.Fatalf("features = %v", got)
	}
	if got := m.Subtarget().Ignored(); !slices.Equal(got, []string{"+frobnicate"}) {
		t.Fatalf("ignored = %v", got)
	}
	if m.DataLayout().PointerSize() != 4 || m.ObjectLowering().SmallDataEnabled() {
		t.Fatalf("unexpected machine configuration")
	}
	if ai := m.AsmInfo(); !ai.IsLittleEndian || ai.CommentString != "//" {
		t.Fatalf("asm info = %+v", ai)
	}

	for _, bad := range []string{"hexagon-eb", "bpfel"} {
		if _, err := r.Construct("hexagon", bad, "", "", target.DefaultOptions()); !target.IsKind(err, target.ErrTripleMismatch) {
			t.Fatalf("Construct(hexagon, %s) err = %v", bad, err)
		}
	}
}

func TestUnknownTargetConstructsNothing(t *testing.T) {
	r := target.NewRegistry()
	hexagon.Register(r)
	r.Seal()
	m, err := r.Construct("hexagonx", "hexagon", "", "", target.DefaultOptions())
	if m != nil || !target.IsKind(err, target.ErrUnknownTarget) {
		t.Fatalf("got %v, %v", m, err)
	}
}

func TestRegisterPairs(t *testing.T) {
	regs := hexagon.Registers()
	for n := range 16 {
		lo, ok1 := regs.SubReg(hexagon.D(n), mc.SubLo)
		hi, ok2 := regs.SubReg(hexagon.D(n), mc.SubHi)
		if !ok1 || !ok2 || lo != hexagon.R(2*n) || hi != hexagon.R(2*n+1) {
			t.Fatalf("D%d halves = %s, %s", n, regs.Name(lo), regs.Name(hi))
		}
	}
	if _, ok := regs.SubReg(hexagon.R(0), mc.SubLo); ok {
		t.Fatal("R0 should have no sub-registers")
	}
}
