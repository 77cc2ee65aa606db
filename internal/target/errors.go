package target

import (
	"errors"
	"fmt"
)

// ConfigErrorKind enumerates reasons a Machine could not be configured.
type ConfigErrorKind uint8

const (
	// ErrUnknownTarget means no registered target matches the request.
	ErrUnknownTarget ConfigErrorKind = iota + 1
	// ErrMalformedTriple means the target identifier does not parse.
	ErrMalformedTriple
	// ErrTripleMismatch means the triple belongs to another target or variant.
	ErrTripleMismatch
	// ErrInvalidOptions means Options failed validation.
	ErrInvalidOptions
)

func (k ConfigErrorKind) String() string {
	switch k {
	case ErrUnknownTarget:
		return "unknown target"
	case ErrMalformedTriple:
		return "malformed triple"
	case ErrTripleMismatch:
		return "triple mismatch"
	case ErrInvalidOptions:
		return "invalid options"
	default:
		return fmt.Sprintf("ConfigErrorKind(%d)", k)
	}
}

// ConfigError reports a failure to look up or construct a Machine.
type ConfigError struct {
	Kind   ConfigErrorKind
	Target string // registered name, if known
	Triple string // triple as given
	Msg    string
	Err    error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ErrUnknownTarget:
		if e.Target != "" {
			return fmt.Sprintf("unknown target %q", e.Target)
		}
		return fmt.Sprintf("no target for triple %q", e.Triple)
	case ErrMalformedTriple:
		if e.Err != nil {
			return fmt.Sprintf("malformed triple: %v", e.Err)
		}
		return fmt.Sprintf("malformed triple %q", e.Triple)
	case ErrTripleMismatch:
		return fmt.Sprintf("target %s cannot use triple %q: %s", e.Target, e.Triple, e.Msg)
	case ErrInvalidOptions:
		return "invalid options: " + e.Msg
	default:
		return fmt.Sprintf("target configuration error kind=%d: %s", e.Kind, e.Msg)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsKind reports whether err is a ConfigError of the given kind.
func IsKind(err error, kind ConfigErrorKind) bool {
	var ce *ConfigError
	return errors.As(err, &ce) && ce.Kind == kind
}
