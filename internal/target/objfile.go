package target

// ObjectFileLowering decides object-file placement for a Machine.
type ObjectFileLowering interface {
	Name() string
	SmallDataEnabled() bool
	SectionForConstant(size int) string
}

// ELFLowering places constants in ELF sections. With a positive
// SmallDataThreshold, constants no larger than it go to .sdata.
type ELFLowering struct {
	Flavor             string
	SmallDataThreshold int
}

// Name returns the flavor, or "elf".
func (l ELFLowering) Name() string {
	if l.Flavor == "" {
		return "elf"
	}
	return l.Flavor
}

// SmallDataEnabled reports whether a small-data section is in use.
func (l ELFLowering) SmallDataEnabled() bool { return l.SmallDataThreshold > 0 }

// SectionForConstant returns the section a constant of size bytes goes to.
func (l ELFLowering) SectionForConstant(size int) string {
	if l.SmallDataEnabled() && size > 0 && size <= l.SmallDataThreshold {
		return ".sdata"
	}
	return ".rodata"
}
