// Package target describes code generation targets: data layouts,
// subtarget features, object-file lowering, assembly properties and the
// Machine that bundles them for one triple. Families register constructors
// in a Registry; see package targets for the populated registry.
package target
