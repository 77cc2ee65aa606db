// Package triple parses target identifiers of the form
// <architecture>[-<subvariant>][-<vendor>-<system>].
package triple

import (
	"fmt"
	"strings"
)

// Arch identifies an architecture family.
type Arch uint8

const (
	// ArchUnknown is any architecture token the parser does not recognize.
	ArchUnknown Arch = iota
	// ArchBPF is the BPF family; endianness comes from the token or subvariant.
	ArchBPF
	// ArchHexagon is the Hexagon DSP family.
	ArchHexagon
)

// String returns the canonical family token.
func (a Arch) String() string {
	switch a {
	case ArchBPF:
		return "bpf"
	case ArchHexagon:
		return "hexagon"
	default:
		return "unknown"
	}
}

// Endian is the byte order requested by a triple.
type Endian uint8

const (
	// EndianDefault means the triple did not name a byte order.
	EndianDefault Endian = iota
	EndianLittle
	EndianBig
)

func (e Endian) String() string {
	switch e {
	case EndianLittle:
		return "little"
	case EndianBig:
		return "big"
	default:
		return "default"
	}
}

// Triple is a parsed target identifier. It is a value type and never mutated.
type Triple struct {
	Raw       string
	ArchToken string // architecture component as written
	Arch      Arch
	Endian    Endian
	Vendor    string
	OS        string
}

// ParseError reports a malformed target identifier.
type ParseError struct {
	Input string
	Msg   string
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("malformed target triple %q: %s", e.Input, e.Msg)
}

// Parse splits s into its components. Unknown architectures are accepted and
// reported as ArchUnknown; structural problems are a *ParseError.
func Parse(s string) (Triple, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Triple{}, &ParseError{Input: s, Msg: "empty identifier"}
	}
	parts := strings.Split(raw, "-")
	if len(parts) > 4 {
		return Triple{}, &ParseError{Input: s, Msg: fmt.Sprintf("too many components (%d)", len(parts))}
	}
	for i, p := range parts {
		if p == "" {
			return Triple{}, &ParseError{Input: s, Msg: fmt.Sprintf("component %d is empty", i)}
		}
	}

	t := Triple{Raw: raw, ArchToken: strings.ToLower(parts[0])}
	t.Arch, t.Endian = archFromToken(t.ArchToken)

	var sub string
	switch len(parts) {
	case 2:
		sub = parts[1]
	case 3:
		t.Vendor, t.OS = parts[1], parts[2]
	case 4:
		sub = parts[1]
		t.Vendor, t.OS = parts[2], parts[3]
	}
	if sub != "" {
		e, ok := endianFromSubvariant(sub)
		if !ok {
			return Triple{}, &ParseError{Input: s, Msg: fmt.Sprintf("unknown subvariant %q", sub)}
		}
		if t.Endian != EndianDefault && t.Endian != e {
			return Triple{}, &ParseError{Input: s, Msg: fmt.Sprintf("subvariant %q conflicts with %q", sub, parts[0])}
		}
		t.Endian = e
	}
	return t, nil
}

// MustParse is Parse for identifiers known to be valid; it panics otherwise.
func MustParse(s string) Triple {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func archFromToken(tok string) (Arch, Endian) {
	switch tok {
	case "bpf":
		return ArchBPF, EndianDefault
	case "bpfel":
		return ArchBPF, EndianLittle
	case "bpfeb":
		return ArchBPF, EndianBig
	case "hexagon":
		return ArchHexagon, EndianDefault
	default:
		return ArchUnknown, EndianDefault
	}
}

func endianFromSubvariant(sub string) (Endian, bool) {
	switch strings.ToLower(sub) {
	case "el", "le":
		return EndianLittle, true
	case "eb", "be":
		return EndianBig, true
	default:
		return EndianDefault, false
	}
}

// WithEndian returns a copy of t bound to e.
func (t Triple) WithEndian(e Endian) Triple {
	t.Endian = e
	return t
}

// ArchName is the architecture component of the normalized form, spelling
// the byte order where the family has one.
func (t Triple) ArchName() string {
	switch t.Arch {
	case ArchBPF:
		switch t.Endian {
		case EndianLittle:
			return "bpfel"
		case EndianBig:
			return "bpfeb"
		}
		return "bpf"
	case ArchHexagon:
		return "hexagon"
	default:
		return t.ArchToken
	}
}

// String returns the normalized identifier.
func (t Triple) String() string {
	name := t.ArchName()
	if t.Vendor == "" && t.OS == "" {
		return name
	}
	return name + "-" + t.Vendor + "-" + t.OS
}

// IsBigEndian reports whether the triple explicitly requests big-endian.
func (t Triple) IsBigEndian() bool {
	return t.Endian == EndianBig
}
