package target

import (
	"fmt"
	"slices"

	"mcgen/internal/triple"
)

// Constructor builds a Machine for a parsed triple.
type Constructor func(t triple.Triple, cpu, fs string, opts Options) (*Machine, error)

// Entry is a registered target as listed by Entries.
type Entry struct {
	Name        string
	Description string
}

type registration struct {
	Entry
	ctor Constructor
}

// Registry maps target names to constructors. Registration happens on one
// goroutine and ends with Seal; after that the registry is read-only and
// safe for concurrent lookups.
type Registry struct {
	regs   []registration
	byName map[string]int
	sealed bool
}

// NewRegistry returns an empty, open registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds a target. Registering a name twice, or after Seal, panics.
func (r *Registry) Register(name, desc string, ctor Constructor) {
	if r.sealed {
		panic(fmt.Sprintf("target: Register(%q) after Seal", name))
	}
	if name == "" || ctor == nil {
		panic("target: Register needs a name and a constructor")
	}
	if _, dup := r.byName[name]; dup {
		panic(fmt.Sprintf("target: %q registered twice", name))
	}
	r.byName[name] = len(r.regs)
	r.regs = append(r.regs, registration{Entry: Entry{Name: name, Description: desc}, ctor: ctor})
}

// Seal ends registration.
func (r *Registry) Seal() { r.sealed = true }

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool { return r.sealed }

func (r *Registry) mustBeSealed() {
	if !r.sealed {
		panic("target: registry used before Seal")
	}
}

// Lookup returns the constructor registered as name.
func (r *Registry) Lookup(name string) (Constructor, error) {
	r.mustBeSealed()
	i, ok := r.byName[name]
	if !ok {
		return nil, &ConfigError{Kind: ErrUnknownTarget, Target: name}
	}
	return r.regs[i].ctor, nil
}

// Construct parses tripleStr and builds a Machine with the target called
// name. An empty name selects the triple's architecture component.
func (r *Registry) Construct(name, tripleStr, cpu, fs string, opts Options) (*Machine, error) {
	r.mustBeSealed()
	t, err := triple.Parse(tripleStr)
	if err != nil {
		return nil, &ConfigError{Kind: ErrMalformedTriple, Target: name, Triple: tripleStr, Err: err}
	}
	if name == "" {
		name = t.ArchToken
	}
	ctor, err := r.Lookup(name)
	if err != nil {
		if ce, ok := err.(*ConfigError); ok {
			ce.Triple = tripleStr
		}
		return nil, err
	}
	return ctor(t, cpu, fs, opts)
}

// Entries lists registered targets in registration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.regs))
	for i, reg := range r.regs {
		out[i] = reg.Entry
	}
	return out
}

// Names lists registered target names sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.regs))
	for _, reg := range r.regs {
		out = append(out, reg.Name)
	}
	slices.Sort(out)
	return out
}
