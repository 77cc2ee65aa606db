package target

import (
	"errors"
	"sync"

	"mcgen/internal/codegen"
	"mcgen/internal/mc"
	"mcgen/internal/triple"
)

// Capabilities is everything a target family contributes to a Machine.
// Families fill in a value once; optional hooks may be nil.
type Capabilities struct {
	Family    string
	Layout    func(triple.Triple) DataLayout
	Features  FeatureTable
	Registers *mc.RegisterInfo
	Instrs    *mc.InstrInfo
	// ObjectLowering builds the object-file policy for a resolved subtarget.
	ObjectLowering func(*Subtarget, Options) ObjectFileLowering
	AsmInfo        func(triple.Triple) AsmInfo

	// InstSelector supplies the isel pass; nil keeps the default.
	InstSelector func(*Machine) codegen.Pass
	PreRegAlloc  func(*Machine) []codegen.Pass
	PostRegAlloc func(*Machine) []codegen.Pass
}

func (c *Capabilities) validate() error {
	var errs []error
	if c.Family == "" {
		errs = append(errs, errors.New("missing family name"))
	}
	if c.Layout == nil {
		errs = append(errs, errors.New("missing layout"))
	}
	if c.Registers == nil || c.Instrs == nil {
		errs = append(errs, errors.New("missing register or instruction tables"))
	}
	if c.ObjectLowering == nil {
		errs = append(errs, errors.New("missing object-file lowering"))
	}
	return errors.Join(errs...)
}

// Machine is a configured target: one triple, layout, subtarget, object-file
// lowering and option set. It is immutable after NewMachine except for the
// lazily built AsmInfo.
type Machine struct {
	caps   *Capabilities
	triple triple.Triple
	layout DataLayout
	sub    *Subtarget
	tlof   ObjectFileLowering
	opts   Options

	asmOnce sync.Once
	asm     AsmInfo
}

// NewMachine configures caps for t, cpu and the feature string fs.
func NewMachine(caps *Capabilities, t triple.Triple, cpu, fs string, opts Options) (*Machine, error) {
	if caps == nil {
		return nil, errors.New("target: nil capabilities")
	}
	if err := caps.validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	sub := ParseFeatures(caps.Features, cpu, fs)
	return &Machine{
		caps:   caps,
		triple: t,
		layout: caps.Layout(t),
		sub:    sub,
		tlof:   caps.ObjectLowering(sub, opts),
		opts:   opts,
	}, nil
}

// Family returns the target family name.
func (m *Machine) Family() string { return m.caps.Family }

// Triple returns the target identifier the machine was built for.
func (m *Machine) Triple() triple.Triple { return m.triple }

// DataLayout returns the machine's data layout.
func (m *Machine) DataLayout() DataLayout { return m.layout }

// Subtarget returns the resolved CPU and features.
func (m *Machine) Subtarget() *Subtarget { return m.sub }

// ObjectLowering returns the object-file lowering policy.
func (m *Machine) ObjectLowering() ObjectFileLowering { return m.tlof }

// Features returns the family's feature and CPU catalogue.
func (m *Machine) Features() FeatureTable { return m.caps.Features }

// Options returns the options the machine was built with.
func (m *Machine) Options() Options { return m.opts }

// Registers returns the target register file.
func (m *Machine) Registers() *mc.RegisterInfo { return m.caps.Registers }

// Instrs returns the target opcode table.
func (m *Machine) Instrs() *mc.InstrInfo { return m.caps.Instrs }

// AsmInfo returns the assembly properties, building them on first use.
func (m *Machine) AsmInfo() AsmInfo {
	m.asmOnce.Do(func() {
		if m.caps.AsmInfo != nil {
			m.asm = m.caps.AsmInfo(m.triple)
		} else {
			m.asm = DefaultAsmInfo()
		}
	})
	return m.asm
}

// NewPipeline builds the pass pipeline for this machine.
func (m *Machine) NewPipeline() *codegen.Pipeline {
	var hooks codegen.Hooks
	if m.caps.InstSelector != nil {
		hooks.InstSelector = m.caps.InstSelector(m)
	}
	if m.caps.PreRegAlloc != nil {
		hooks.PreRegAlloc = m.caps.PreRegAlloc(m)
	}
	if m.caps.PostRegAlloc != nil {
		hooks.PostRegAlloc = m.caps.PostRegAlloc(m)
	}
	return codegen.NewStandard(m.caps.Instrs, m.caps.Registers, hooks)
}
