package fuzztests

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"mcgen/internal/mirfile"
	"mcgen/internal/target/hexagon"
)

const maxFuzzInput = 64 << 10

var moduleSeeds = []string{
	"",
	"name = \"empty\"\n",
	`triple = "hexagon"
[[function]]
name = "f"
  [[function.block]]
  name = "entry"
  instrs = ["CONST64_Float_Real D1, f64(-2.5) ; a.c:1:2", "JMPret R31"]
`,
	`[[function]]
name = "f"
  [[function.block]]
  name = "b"
  address-taken = true
  instrs = ["CONST32_Int_Real R0, blockaddress(f, b)", "A2_tfr R1, R0"]
`,
	"[[function]]\nname = \"f\"\n[[function]]\nname = \"f\"\n",
}

var instrSeeds = []string{
	"A2_tfrsi R1, -5",
	"CONST32_Float_Real R2, f32bits(0x7fc00001)",
	"CONST64_Int_Real D3, 0xffffffffffffffff",
	"A2_addi R1, R1, sub_lo(D1)",
	"J2_jump @tail",
	"COPY %v3, R0",
	"JMPret R31 ; k.c:3",
	"A2_addi R1,,",
	"f64(",
}

var tripleSeeds = []string{
	"bpfel", "bpfeb-unknown-none", "bpf", "hexagon-unknown-elf", "hexagon-v5", "-", "x86_64-pc-linux-gnu", "",
}

// addModuleSeeds adds the TOML seeds, their binary encodings and any
// .toml files under testdata.
func addModuleSeeds(f *testing.F) {
	for _, s := range moduleSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

func addBinarySeeds(f *testing.F) {
	ii, regs := hexagon.Instrs(), hexagon.Registers()
	for _, s := range moduleSeeds {
		m, err := mirfile.Parse("seed.toml", []byte(s), ii, regs)
		if err != nil {
			continue
		}
		var buf bytes.Buffer
		if err := mirfile.EncodeBinary(&buf, m); err == nil {
			f.Add(buf.Bytes())
		}
	}
	f.Add([]byte{0x80})
}

func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".toml" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil || len(src) > maxFuzzInput {
			return nil
		}
		f.Add(src)
		return nil
	})
}

func clip(input []byte) []byte {
	if len(input) > maxFuzzInput {
		input = input[:maxFuzzInput]
	}
	return append([]byte(nil), input...)
}
