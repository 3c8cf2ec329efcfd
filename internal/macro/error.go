package macro

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an Error signal.
type ErrorKind int

// ErrorKind constants.
const (
	KindStructural ErrorKind = iota // malformed clause arrangement or markup
	KindEvaluation                  // expression evaluation failed
	KindAggregated                  // nested errors found in a suppressed render
	KindLimit                       // expansion budget exhausted
	KindUnknown                     // no macro registered under the name
	KindInternal                    // handler panicked
)

func (k ErrorKind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindEvaluation:
		return "evaluation"
	case KindAggregated:
		return "aggregated"
	case KindLimit:
		return "limit"
	case KindUnknown:
		return "unknown"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// ErrIterationLimit is wrapped by the Error returned when a render pass
// exceeds its expansion budget.
var ErrIterationLimit = errors.New("maximum macro expansion count exceeded")

// Error is the structured failure value a handler returns instead of
// aborting the render. The renderer materialises it as an error marker at
// the position of the failing invocation.
type Error struct {
	Kind    ErrorKind
	Macro   string   // macro name, without the angle brackets
	Message string   // human-readable message
	Source  string   // raw markup of the failing invocation
	Pos     Position // position of the invocation
	Cause   error    // underlying error, if any
}

func (e *Error) Error() string {
	if e.Macro == "" {
		return e.Message
	}
	return fmt.Sprintf("<<%s>>: %s", e.Macro, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Errorf creates a structural error for the named macro.
func Errorf(name, format string, args ...any) *Error {
	return &Error{Kind: KindStructural, Macro: name, Message: fmt.Sprintf(format, args...)}
}

// NewError creates an error of the given kind.
func NewError(kind ErrorKind, name, msg string) *Error {
	return &Error{Kind: kind, Macro: name, Message: msg}
}

// AsError normalises err into an *Error attributed to inv. Errors that are
// already *Error keep their kind and message; their position and source
// are filled in from inv when missing.
func AsError(inv *Invocation, err error) *Error {
	if err == nil {
		return nil
	}

	var merr *Error
	if !errors.As(err, &merr) {
		merr = &Error{Kind: KindStructural, Message: err.Error(), Cause: err}
		if errors.Is(err, ErrIterationLimit) {
			merr.Kind = KindLimit
		}
	}

	if inv != nil {
		if merr.Macro == "" {
			merr.Macro = inv.Name
		}
		if merr.Source == "" {
			merr.Source = inv.Source
		}
		if merr.Pos == (Position{}) {
			merr.Pos = inv.Pos
		}
	}
	return merr
}

// LimitError creates the signal returned when the expansion budget is exhausted.
func LimitError(limit int) *Error {
	return &Error{
		Kind:    KindLimit,
		Message: fmt.Sprintf("exceeded maximum macro expansion count (%d)", limit),
		Cause:   ErrIterationLimit,
	}
}
