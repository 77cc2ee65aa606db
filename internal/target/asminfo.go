package target

// AsmInfo holds the assembly syntax properties of a target.
type AsmInfo struct {
	IsLittleEndian                bool
	PrivateGlobalPrefix           string
	WeakRefDirective              string
	UsesELFSectionDirectiveForBSS bool
	HasSingleParameterDotFile     bool
	HasDotTypeDotSizeDirective    bool
	CommentString                 string
}

// DefaultAsmInfo returns the properties targets start from.
func DefaultAsmInfo() AsmInfo {
	return AsmInfo{
		IsLittleEndian:             true,
		PrivateGlobalPrefix:        "L",
		HasSingleParameterDotFile:  true,
		HasDotTypeDotSizeDirective: true,
		CommentString:              "#",
	}
}
