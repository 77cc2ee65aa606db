package target

import "fmt"

// DefaultSmallDataThreshold is the largest object, in bytes, placed in small data.
const DefaultSmallDataThreshold = 8

// Options are the user-selected code generation options of a Machine.
type Options struct {
	// SmallDataThreshold bounds small-data objects in bytes; 0 disables small data.
	SmallDataThreshold int
	// VerifyEach runs the machine verifier after every pass.
	VerifyEach bool
	// Jobs bounds per-function parallelism; 0 means GOMAXPROCS.
	Jobs int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{SmallDataThreshold: DefaultSmallDataThreshold}
}

// Validate rejects negative values.
func (o Options) Validate() error {
	if o.SmallDataThreshold < 0 {
		return &ConfigError{Kind: ErrInvalidOptions, Msg: fmt.Sprintf("small-data threshold %d is negative", o.SmallDataThreshold)}
	}
	if o.Jobs < 0 {
		return &ConfigError{Kind: ErrInvalidOptions, Msg: fmt.Sprintf("jobs %d is negative", o.Jobs)}
	}
	return nil
}
