// Package codegen configures and runs the ordered sequence of machine passes
// that lowers a selected machine module into its final instruction form.
//
// A Pipeline is a list of named passes. Targets start from the standard
// backbone returned by NewStandard and customize it through Hooks or by
// editing the pipeline by name:
//
//	p := codegen.NewStandard(instrs, regs, codegen.Hooks{
//		PostRegAlloc: []codegen.Pass{splitConst},
//	})
//	res, err := codegen.Run(ctx, p, module, codegen.RunOptions{Jobs: 4})
//
// Run applies each pass to every function before the next pass starts.
// Functions of a single pass may run concurrently; the output never depends
// on the degree of parallelism.
package codegen
