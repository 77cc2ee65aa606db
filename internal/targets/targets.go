// Package targets assembles the registry of every supported target.
package targets

import (
	"mcgen/internal/target"
	"mcgen/internal/target/bpf"
	"mcgen/internal/target/hexagon"
)

// NewRegistry returns a sealed registry holding all target families.
func NewRegistry() *target.Registry {
	r := target.NewRegistry()
	bpf.Register(r)
	hexagon.Register(r)
	r.Seal()
	return r
}
