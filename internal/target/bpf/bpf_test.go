package bpf_test

import (
	"context"
	"encoding/binary"
	"slices"
	"testing"

	"mcgen/internal/codegen"
	"mcgen/internal/mc"
	"mcgen/internal/target"
	"mcgen/internal/target/bpf"
	"mcgen/internal/triple"
)

func newRegistry() *target.Registry {
	r := target.NewRegistry()
	bpf.Register(r)
	r.Seal()
	return r
}

func TestLayoutByTriple(t *testing.T) {
	const (
		le = "e-m:e-p:64:64-i64:64-n32:64-S128"
		be = "E-m:e-p:64:64-i64:64-n32:64-S128"
	)
	tests := []struct {
		triple string
		want   string
	}{
		{"bpfel", le},
		{"bpfel-unknown-none", le},
		{"bpf-le", le},
		{"bpfeb", be},
		{"bpf-eb-unknown-none", be},
	}
	for _, tt := range tests {
		tr := triple.MustParse(tt.triple)
		if got := bpf.Layout(tr).String(); got != tt.want {
			t.Fatalf("Layout(%s) = %s, want %s", tt.triple, got, tt.want)
		}
		if bpf.Layout(tr).String() != bpf.Layout(triple.MustParse(tt.triple)).String() {
			t.Fatalf("layout of %s is not deterministic", tt.triple)
		}
	}
}

func TestVariants(t *testing.T) {
	r := newRegistry()
	if got := r.Names(); !slices.Equal(got, []string{"bpf", "bpfeb", "bpfel"}) {
		t.Fatalf("names = %v", got)
	}

	eb, err := r.Construct("bpfeb", "bpf-unknown-none", "", "", target.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if eb.DataLayout().ByteOrder() != binary.BigEndian || eb.AsmInfo().IsLittleEndian {
		t.Fatal("bpfeb machine should be big endian")
	}
	if eb.Triple().String() != "bpfeb-unknown-none" {
		t.Fatalf("triple = %s", eb.Triple())
	}

	el, err := r.Construct("", "bpfel", "", "", target.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if el.DataLayout().String()[0] != 'e' || !el.AsmInfo().IsLittleEndian {
		t.Fatal("bpfel machine should be little endian")
	}

	host, err := r.Construct("bpf", "bpf", "", "", target.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if host.Triple().Endian != bpf.HostEndian() {
		t.Fatalf("bpf alias picked %s, host is %s", host.Triple().Endian, bpf.HostEndian())
	}
}

func TestVariantMismatch(t *testing.T) {
	r := newRegistry()
	for _, tc := range []struct{ name, triple string }{
		{"bpfeb", "bpfel"},
		{"bpfel", "bpf-eb"},
		{"bpfel", "hexagon"},
	} {
		m, err := r.Construct(tc.name, tc.triple, "", "", target.DefaultOptions())
		if m != nil || !target.IsKind(err, target.ErrTripleMismatch) {
			t.Fatalf("Construct(%s, %s) = %v, %v", tc.name, tc.triple, m, err)
		}
	}
}

func TestAsmInfo(t *testing.T) {
	ai := bpf.AsmInfo(triple.MustParse("bpfel"))
	want := target.AsmInfo{
		IsLittleEndian:                true,
		PrivateGlobalPrefix:           ".L",
		WeakRefDirective:              "\t.weak\t",
		UsesELFSectionDirectiveForBSS: true,
		HasSingleParameterDotFile:     false,
		HasDotTypeDotSizeDirective:    false,
		CommentString:                 "#",
	}
	if ai != want {
		t.Fatalf("asm info = %+v", ai)
	}
}

func TestUnknownFeaturesAreIgnored(t *testing.T) {
	r := newRegistry()
	m, err := r.Construct("bpfel", "bpfel", "probe", "+alu32,+nonsense;-dwarfris", target.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	st := m.Subtarget()
	if !st.Has("alu32") || st.Has("dwarfris") || st.CPU() != "probe" {
		t.Fatalf("subtarget = %s %v", st.CPU(), st.Enabled())
	}
	if !slices.Equal(st.Ignored(), []string{"+nonsense"}) {
		t.Fatalf("ignored = %v", st.Ignored())
	}
	if m.ObjectLowering().SmallDataEnabled() {
		t.Fatal("bpf never uses small data")
	}
}

func TestPipeline(t *testing.T) {
	r := newRegistry()
	m, err := r.Construct("bpfel", "bpfel", "", "", target.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	f := mc.NewFunction("prog")
	b := f.NewBlock("entry")
	b.Append(mc.NewInstr(bpf.MovRI, mc.DebugLoc{}, mc.RegOp(bpf.R(1)), mc.ImmOp(7)))
	b.Append(mc.NewInstr(mc.OpCopy, mc.DebugLoc{}, mc.RegOp(bpf.R(0)), mc.RegOp(bpf.R(1))))
	b.Append(mc.NewInstr(bpf.Exit, mc.DebugLoc{}))
	mod := &mc.Module{Funcs: []*mc.Function{f}}
	if _, err := codegen.Run(context.Background(), m.NewPipeline(), mod, codegen.RunOptions{}); err != nil {
		t.Fatal(err)
	}
	want := "function prog\nbb.0.entry:\n  MOV_ri R1, 7\n  MOV_rr R0, R1\n  EXIT\n"
	if got := mc.Sprint(f, m.Instrs(), m.Registers()); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}
