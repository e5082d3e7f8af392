package event

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure in a run wraps exactly one of these.
var (
	ErrFetch     = errors.New("fetch failed")
	ErrStructure = errors.New("unexpected page structure")
	ErrParse     = errors.New("unparseable date or time")
	ErrConfig    = errors.New("configuration error")
)

// Error records which stage failed, the kind of failure and the underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Errorf builds an *Error of the given kind with a formatted cause.
func Errorf(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a kind and operation to err. A nil err stays nil.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsDiagnostic reports whether err is a configuration or fetch
// failure, the two kinds the command line reports as a plain diagnostic.
func IsDiagnostic(err error) bool {
	return errors.Is(err, ErrConfig) || errors.Is(err, ErrFetch)
}

// KindName returns a short label for the kind of err, or "other"
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, ErrStructure):
		return "structure"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrConfig):
		return "config"
	default:
		return "other"
	}
}
