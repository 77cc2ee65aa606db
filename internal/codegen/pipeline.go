package codegen

import (
	"fmt"
	"slices"
)

type entry struct {
	pass     Pass
	disabled bool
}

// Pipeline is an ordered, editable list of passes addressed by name.
type Pipeline struct {
	entries  []entry
	verifier Pass
}

// NewPipeline returns a pipeline running passes in the given order.
func NewPipeline(passes ...Pass) *Pipeline {
	p := &Pipeline{}
	for _, pass := range passes {
		p.Add(pass)
	}
	return p
}

func (p *Pipeline) index(name string) int {
	return slices.IndexFunc(p.entries, func(e entry) bool { return e.pass.Name() == name })
}

func (p *Pipeline) checkNew(pass Pass) error {
	if pass == nil {
		return fmt.Errorf("codegen: nil pass")
	}
	if p.index(pass.Name()) >= 0 {
		return fmt.Errorf("codegen: pass %q already in pipeline", pass.Name())
	}
	return nil
}

// Add appends pass. Adding a second pass with the same name panics.
func (p *Pipeline) Add(pass Pass) {
	if err := p.checkNew(pass); err != nil {
		panic(err.Error())
	}
	p.entries = append(p.entries, entry{pass: pass})
}

// InsertBefore places pass immediately ahead of the pass named anchor.
func (p *Pipeline) InsertBefore(anchor string, pass Pass) error {
	return p.insert(anchor, 0, pass)
}

// InsertAfter places pass immediately behind the pass named anchor.
func (p *Pipeline) InsertAfter(anchor string, pass Pass) error {
	return p.insert(anchor, 1, pass)
}

func (p *Pipeline) insert(anchor string, offset int, pass Pass) error {
	i := p.index(anchor)
	if i < 0 {
		return fmt.Errorf("codegen: no pass named %q", anchor)
	}
	if err := p.checkNew(pass); err != nil {
		return err
	}
	p.entries = slices.Insert(p.entries, i+offset, entry{pass: pass})
	return nil
}

// Replace substitutes the pass named name, keeping its position.
func (p *Pipeline) Replace(name string, pass Pass) error {
	i := p.index(name)
	if i < 0 {
		return fmt.Errorf("codegen: no pass named %q", name)
	}
	if pass == nil {
		return fmt.Errorf("codegen: nil pass")
	}
	if pass.Name() != name && p.index(pass.Name()) >= 0 {
		return fmt.Errorf("codegen: pass %q already in pipeline", pass.Name())
	}
	p.entries[i] = entry{pass: pass, disabled: p.entries[i].disabled}
	return nil
}

// Disable keeps the pass named name in place but skips it when running.
func (p *Pipeline) Disable(name string) error {
	i := p.index(name)
	if i < 0 {
		return fmt.Errorf("codegen: no pass named %q", name)
	}
	p.entries[i].disabled = true
	return nil
}

// SetVerifier installs the pass run after every pass when RunOptions.VerifyEach is set.
func (p *Pipeline) SetVerifier(v Pass) { p.verifier = v }

// Passes returns the enabled passes in run order.
func (p *Pipeline) Passes() []Pass {
	out := make([]Pass, 0, len(p.entries))
	for _, e := range p.entries {
		if !e.disabled {
			out = append(out, e.pass)
		}
	}
	return out
}

// Names returns the names of the enabled passes in run order.
func (p *Pipeline) Names() []string {
	out := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		if !e.disabled {
			out = append(out, e.pass.Name())
		}
	}
	return out
}

// Len returns the number of enabled passes.
func (p *Pipeline) Len() int { return len(p.Names()) }
