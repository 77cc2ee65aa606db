package mirfile

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/unicode/norm"

	"mcgen/internal/mc"
)

type document struct {
	Name      string        `toml:"name"`
	Triple    string        `toml:"triple,omitempty"`
	Functions []functionDoc `toml:"function"`
}

type functionDoc struct {
	Name                string     `toml:"name"`
	Alignment           uint32     `toml:"alignment,omitempty"`
	ExposesReturnsTwice bool       `toml:"exposes-returns-twice,omitempty"`
	HasInlineAsm        bool       `toml:"has-inline-asm,omitempty"`
	Blocks              []blockDoc `toml:"block"`
}

type blockDoc struct {
	Name         string   `toml:"name"`
	Alignment    uint32   `toml:"alignment,omitempty"`
	AddressTaken bool     `toml:"address-taken,omitempty"`
	IsLandingPad bool     `toml:"landing-pad,omitempty"`
	Instrs       []string `toml:"instrs"`
}

// File is a decoded machine-module document whose instructions have not
// been resolved against a target yet.
type File struct {
	Path string
	doc  document
}

// Load decodes the TOML form of a machine module. An empty document yields
// an empty module named after the file.
func Load(path string, data []byte) (*File, error) {
	f := &File{Path: path}
	if len(bytes.TrimSpace(data)) == 0 {
		f.doc.Name = defaultName(path)
		return f, nil
	}
	meta, err := toml.Decode(string(data), &f.doc)
	if err != nil {
		return nil, &ParseError{File: path, Index: -1, Msg: "invalid TOML", Err: err}
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return nil, &ParseError{File: path, Index: -1, Msg: fmt.Sprintf("unknown key %q", undec[0].String())}
	}
	if !meta.IsDefined("name") || strings.TrimSpace(f.doc.Name) == "" {
		f.doc.Name = defaultName(path)
	}
	f.doc.Name = norm.NFC.String(f.doc.Name)
	return f, nil
}

func defaultName(path string) string {
	base := filepath.Base(path)
	if path == "" || base == "." {
		return "module"
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Name returns the module name.
func (f *File) Name() string { return f.doc.Name }

// Triple returns the module's triple, or "" when the file names none.
func (f *File) Triple() string { return strings.TrimSpace(f.doc.Triple) }

// FunctionNames returns the normalized function names in document order.
func (f *File) FunctionNames() []string {
	out := make([]string, 0, len(f.doc.Functions))
	for _, fd := range f.doc.Functions {
		out = append(out, norm.NFC.String(strings.TrimSpace(fd.Name)))
	}
	return out
}

// Module resolves the document against a target's tables.
func (f *File) Module(ii *mc.InstrInfo, regs *mc.RegisterInfo) (*mc.Module, error) {
	m := &mc.Module{Name: f.doc.Name, Triple: f.Triple()}
	seen := make(map[string]bool, len(f.doc.Functions))
	for _, fd := range f.doc.Functions {
		name := norm.NFC.String(strings.TrimSpace(fd.Name))
		if name == "" {
			return nil, &ParseError{File: f.Path, Index: -1, Msg: "machine function without a name"}
		}
		if seen[name] {
			return nil, &ParseError{File: f.Path, Index: -1, Msg: fmt.Sprintf("redefinition of machine function '%s'", name)}
		}
		seen[name] = true
		fn, err := f.function(name, fd, ii, regs)
		if err != nil {
			return nil, err
		}
		m.Funcs = append(m.Funcs, fn)
	}
	if err := f.checkBlockAddresses(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (f *File) function(name string, fd functionDoc, ii *mc.InstrInfo, regs *mc.RegisterInfo) (*mc.Function, error) {
	fn := mc.NewFunction(name)
	fn.Attrs = mc.FuncAttrs{Alignment: fd.Alignment, ExposesReturnsTwice: fd.ExposesReturnsTwice, HasInlineAsm: fd.HasInlineAsm}
	for bi, bd := range fd.Blocks {
		label := norm.NFC.String(strings.TrimSpace(bd.Name))
		if label == "" {
			return nil, &ParseError{File: f.Path, Function: name, Index: -1, Msg: fmt.Sprintf("block %d has no name", bi)}
		}
		if _, dup := fn.BlockByName(label); dup {
			return nil, &ParseError{File: f.Path, Function: name, Index: -1, Msg: fmt.Sprintf("redefinition of block '%s'", label)}
		}
		b := fn.NewBlock(label)
		b.Attrs = mc.BlockAttrs{Alignment: bd.Alignment, AddressTaken: bd.AddressTaken, IsLandingPad: bd.IsLandingPad}
		for i, text := range bd.Instrs {
			in, err := ParseInstr(text, ii, regs)
			if err != nil {
				return nil, &ParseError{File: f.Path, Function: name, Block: label, Index: i, Msg: err.Error()}
			}
			b.Append(in)
		}
	}
	return fn, nil
}

func (f *File) checkBlockAddresses(m *mc.Module) error {
	for _, fn := range m.Funcs {
		for _, b := range fn.Blocks {
			for i, in := range b.Instrs() {
				for _, op := range in.Operands {
					if !op.IsBlockAddress() {
						continue
					}
					target, ok := m.Func(op.Sym.Func)
					if ok {
						_, ok = target.BlockByName(op.Sym.Label)
					}
					if !ok {
						return &ParseError{File: f.Path, Function: fn.Name, Block: b.Name, Index: i,
							Msg: fmt.Sprintf("blockaddress refers to undefined block '%s' in function '%s'", op.Sym.Label, op.Sym.Func)}
					}
				}
			}
		}
	}
	return nil
}

// Parse loads data and resolves it in one step.
func Parse(path string, data []byte, ii *mc.InstrInfo, regs *mc.RegisterInfo) (*mc.Module, error) {
	f, err := Load(path, data)
	if err != nil {
		return nil, err
	}
	return f.Module(ii, regs)
}

// Encode writes m in the TOML form Load reads.
func Encode(w io.Writer, m *mc.Module, ii *mc.InstrInfo, regs *mc.RegisterInfo) error {
	doc := document{Name: m.Name, Triple: m.Triple, Functions: make([]functionDoc, 0, len(m.Funcs))}
	for _, fn := range m.Funcs {
		fd := functionDoc{
			Name:                fn.Name,
			Alignment:           fn.Attrs.Alignment,
			ExposesReturnsTwice: fn.Attrs.ExposesReturnsTwice,
			HasInlineAsm:        fn.Attrs.HasInlineAsm,
		}
		for _, b := range fn.Blocks {
			bd := blockDoc{
				Name:         b.Name,
				Alignment:    b.Attrs.Alignment,
				AddressTaken: b.Attrs.AddressTaken,
				IsLandingPad: b.Attrs.IsLandingPad,
				Instrs:       make([]string, 0, b.Len()),
			}
			for _, in := range b.Instrs() {
				bd.Instrs = append(bd.Instrs, mc.FormatInstr(in, ii, regs))
			}
			fd.Blocks = append(fd.Blocks, bd)
		}
		doc.Functions = append(doc.Functions, fd)
	}
	return toml.NewEncoder(w).Encode(doc)
}
