package fuzztests

import (
	"bytes"
	"testing"
	"time"

	"mcgen/internal/mc"
	"mcgen/internal/mirfile"
	"mcgen/internal/target/hexagon"
	"mcgen/internal/triple"
)

// parseTimeout bounds a single parse; exceeding it signals a loop.
const parseTimeout = 5 * time.Second

func withTimeout(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(parseTimeout):
		t.Fatalf("parse did not finish within %s", parseTimeout)
	}
}

func FuzzTriple(f *testing.F) {
	for _, s := range tripleSeeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		tr, err := triple.Parse(s)
		if err != nil {
			return
		}
		if _, err := triple.Parse(tr.String()); err != nil {
			t.Fatalf("%q parsed but its rendering %q does not: %v", s, tr.String(), err)
		}
	})
}

func FuzzParseInstr(f *testing.F) {
	for _, s := range instrSeeds {
		f.Add(s)
	}
	ii, regs := hexagon.Instrs(), hexagon.Registers()
	f.Fuzz(func(t *testing.T, s string) {
		in, err := mirfile.ParseInstr(s, ii, regs)
		if err != nil {
			return
		}
		if in.Opcode == mc.OpInvalid {
			t.Fatalf("%q parsed to an invalid opcode", s)
		}
	})
}

func FuzzLoadModule(f *testing.F) {
	addModuleSeeds(f)
	ii, regs := hexagon.Instrs(), hexagon.Registers()
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clip(input)
		withTimeout(t, func() {
			m, err := mirfile.Parse("fuzz.toml", input, ii, regs)
			if err != nil {
				return
			}
			var buf bytes.Buffer
			if err := mirfile.Encode(&buf, m, ii, regs); err != nil {
				t.Errorf("encode of a parsed module failed: %v", err)
			}
		})
	})
}

func FuzzDecodeBinary(f *testing.F) {
	addBinarySeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clip(input)
		withTimeout(t, func() {
			_, _ = mirfile.DecodeBinary(bytes.NewReader(input))
		})
	})
}
