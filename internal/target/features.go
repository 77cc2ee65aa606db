package target

import (
	"slices"
	"strings"
)

// FeatureInfo describes one subtarget feature.
type FeatureInfo struct {
	Name string
	Desc string
}

// CPUInfo names a processor and the features it enables by default.
type CPUInfo struct {
	Name     string
	Features []string
}

// FeatureTable is the static feature and CPU catalogue of a target family.
type FeatureTable struct {
	Features   []FeatureInfo
	CPUs       []CPUInfo
	DefaultCPU string
}

func (t FeatureTable) known(name string) bool {
	return slices.ContainsFunc(t.Features, func(f FeatureInfo) bool { return f.Name == name })
}

func (t FeatureTable) cpu(name string) (CPUInfo, bool) {
	i := slices.IndexFunc(t.CPUs, func(c CPUInfo) bool { return c.Name == name })
	if i < 0 {
		return CPUInfo{}, false
	}
	return t.CPUs[i], true
}

// Subtarget is the resolved CPU and feature set of one Machine.
type Subtarget struct {
	cpu     string
	enabled map[string]bool
	ignored []string
}

// ParseFeatures resolves cpu and the feature string fs against t. Tokens are
// separated by ',' or ';' and may carry a '+' or '-' prefix; no prefix
// enables. CPU defaults apply first, then tokens in order, the last one
// winning. Unknown CPUs fall back to the default CPU; unknown CPUs and
// feature tokens are kept in Ignored and otherwise have no effect.
func ParseFeatures(t FeatureTable, cpu, fs string) *Subtarget {
	st := &Subtarget{enabled: make(map[string]bool)}

	name := strings.TrimSpace(cpu)
	info, ok := t.cpu(name)
	if !ok {
		if name != "" && name != "generic" {
			st.ignored = append(st.ignored, "cpu="+name)
		}
		info, _ = t.cpu(t.DefaultCPU)
		name = t.DefaultCPU
	}
	st.cpu = name
	for _, f := range info.Features {
		st.enabled[f] = true
	}

	tokens := strings.FieldsFunc(fs, func(r rune) bool { return r == ',' || r == ';' })
	for _, raw := range tokens {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		on := true
		feat := tok
		switch tok[0] {
		case '+':
			feat = tok[1:]
		case '-':
			on, feat = false, tok[1:]
		}
		if !t.known(feat) {
			st.ignored = append(st.ignored, tok)
			continue
		}
		if on {
			st.enabled[feat] = true
		} else {
			delete(st.enabled, feat)
		}
	}
	return st
}

// CPU returns the resolved CPU name.
func (s *Subtarget) CPU() string { return s.cpu }

// Has reports whether feature name is enabled.
func (s *Subtarget) Has(name string) bool { return s.enabled[name] }

// Enabled returns the enabled features sorted by name.
func (s *Subtarget) Enabled() []string {
	out := make([]string, 0, len(s.enabled))
	for f := range s.enabled {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Ignored returns the tokens that had no effect, in input order. Unknown
// CPUs appear as "cpu=<name>".
func (s *Subtarget) Ignored() []string { return slices.Clone(s.ignored) }

// String returns the canonical feature string, e.g. "+duplex,+v5".
func (s *Subtarget) String() string {
	en := s.Enabled()
	for i, f := range en {
		en[i] = "+" + f
	}
	return strings.Join(en, ",")
}
