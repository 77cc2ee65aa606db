package codegen

import (
	"context"

	"mcgen/internal/mc"
)

// Pass transforms one machine function. It may only touch the function it is
// given and reports whether it changed anything.
type Pass interface {
	Name() string
	Run(ctx context.Context, f *mc.Function) (changed bool, err error)
}

type funcPass struct {
	name string
	fn   func(context.Context, *mc.Function) (bool, error)
}

func (p funcPass) Name() string { return p.name }

func (p funcPass) Run(ctx context.Context, f *mc.Function) (bool, error) {
	return p.fn(ctx, f)
}

// PassFunc adapts a function to the Pass interface.
func PassFunc(name string, fn func(context.Context, *mc.Function) (bool, error)) Pass {
	return funcPass{name: name, fn: fn}
}
