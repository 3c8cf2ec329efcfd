package starlark

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapstory/internal/script"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// DefaultMaxSteps bounds the work a single evaluation may perform.
const DefaultMaxSteps = 1_000_000

// fileOptions enables the statement forms story scripts need at top level.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// State is the shared narrative state that expressions and nested renders
// read and write. It is passed explicitly to every evaluation; mutations
// made through it are never rolled back.
type State struct {
	// Vars holds the story variables, reachable as $name / State.name.
	Vars *Variables

	// Helpers contains loaded helper namespaces.
	// Each key is a namespace (e.g., "inventory") with a module of functions.
	Helpers starlark.StringDict

	maxSteps uint64
	logger   *slog.Logger

	// globals is the combined set of all globals for execution
	globals starlark.StringDict

	// mu protects globals during initialization
	mu sync.RWMutex
}

// StateOption is a functional option for configuring State.
type StateOption func(*State)

// WithVariables sets the variable store.
func WithVariables(vars *Variables) StateOption {
	return func(s *State) {
		if vars != nil {
			s.Vars = vars
		}
	}
}

// WithHelpers sets the helper namespaces.
func WithHelpers(helpers starlark.StringDict) StateOption {
	return func(s *State) {
		s.Helpers = helpers
	}
}

// WithHelperRegistry sets helpers from a script.Registry.
func WithHelperRegistry(registry *script.Registry) StateOption {
	return func(s *State) {
		if registry != nil {
			s.Helpers = registry.ToStarlarkDict()
		}
	}
}

// WithMaxSteps bounds the execution steps of a single evaluation.
func WithMaxSteps(n uint64) StateOption {
	return func(s *State) {
		if n > 0 {
			s.maxSteps = n
		}
	}
}

// WithLogger sets the logger that receives script print() output.
func WithLogger(logger *slog.Logger) StateOption {
	return func(s *State) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewState creates a new evaluation state.
func NewState(opts ...StateOption) *State {
	s := &State{
		Vars:     NewVariables(),
		Helpers:  make(starlark.StringDict),
		maxSteps: DefaultMaxSteps,
		logger:   slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.buildGlobals()
	return s
}

// buildGlobals constructs the combined globals dict.
func (s *State) buildGlobals() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.globals = Predeclared(s.Vars)
	for name, helper := range s.Helpers {
		s.globals[name] = helper
	}
}

// Globals returns the combined globals dictionary for Starlark execution.
func (s *State) Globals() starlark.StringDict {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.globals
}

// AddHelpers adds helper namespaces to the state.
// Returns error if a namespace conflicts with a builtin.
func (s *State) AddHelpers(helpers starlark.StringDict) error {
	builtins := Predeclared(s.Vars)
	for name := range helpers {
		if _, ok := builtins[name]; ok {
			return fmt.Errorf("helper namespace %q conflicts with builtin", name)
		}
	}

	s.mu.Lock()
	for name, helper := range helpers {
		s.Helpers[name] = helper
	}
	s.mu.Unlock()

	s.buildGlobals()
	return nil
}

// EvalExpr evaluates a story-script expression and returns the result.
func (s *State) EvalExpr(expr, filename string, line int) (starlark.Value, error) {
	thread := s.newThread(filename)

	result, err := starlark.EvalOptions(fileOptions, thread, filename, Desugar(expr), s.Globals())
	if err != nil {
		return nil, &EvalError{
			File:    filename,
			Line:    line,
			Expr:    expr,
			Message: errorMessage(err),
			Cause:   err,
		}
	}

	return result, nil
}

// EvalExprString evaluates an expression and returns its printable form.
// Strings are returned unquoted and None prints as the empty string.
func (s *State) EvalExprString(expr, filename string, line int) (string, error) {
	result, err := s.EvalExpr(expr, filename, line)
	if err != nil {
		return "", err
	}
	return Printable(result), nil
}

// ExecStmt executes story-script statements, e.g. "$gold += 5".
// Top-level names bound by the statements are discarded; only mutations
// of story variables and helper state persist.
func (s *State) ExecStmt(stmt, filename string, line int) error {
	globals := s.Globals()

	// Program.Init leaves the resulting module unfrozen, so values bound
	// to story variables stay mutable across statements.
	_, prog, err := starlark.SourceProgramOptions(fileOptions, filename, Desugar(stmt), globals.Has)
	if err == nil {
		_, err = prog.Init(s.newThread(filename), globals)
	}
	if err != nil {
		return &EvalError{
			File:    filename,
			Line:    line,
			Expr:    stmt,
			Message: errorMessage(err),
			Cause:   err,
		}
	}
	return nil
}

// newThread creates a new Starlark thread for execution.
func (s *State) newThread(name string) *starlark.Thread {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			s.logger.Debug("script print", "file", name, "msg", msg)
		},
	}
	thread.SetMaxExecutionSteps(s.maxSteps)
	return thread
}

// Printable converts a value to the text a story prints for it.
func Printable(v starlark.Value) string {
	switch val := v.(type) {
	case starlark.String:
		return string(val)
	case starlark.NoneType:
		return ""
	case starlark.Bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return v.String()
	}
}

// errorMessage extracts the bare message of a Starlark failure.
func errorMessage(err error) string {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Msg
	}
	var syntaxErr syntax.Error
	if errors.As(err, &syntaxErr) {
		return syntaxErr.Msg
	}
	var resolveErrs resolve.ErrorList
	if errors.As(err, &resolveErrs) && len(resolveErrs) > 0 {
		return resolveErrs[0].Msg
	}
	return err.Error()
}

// EvalError represents an error during story-script evaluation.
type EvalError struct {
	File    string
	Line    int
	Expr    string
	Message string
	Cause   error
}

func (e *EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: error evaluating %q: %s", e.File, e.Line, e.Expr, e.Message)
	}
	return fmt.Sprintf("%s: error evaluating %q: %s", e.File, e.Expr, e.Message)
}

func (e *EvalError) Unwrap() error {
	return e.Cause
}

// ErrorMessage returns the bare evaluation message of err when it is an
// *EvalError, and err.Error() otherwise.
func ErrorMessage(err error) string {
	var evalErr *EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Message
	}
	return err.Error()
}
