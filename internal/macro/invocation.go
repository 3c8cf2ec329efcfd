// Package macro defines the contract between the markup renderer and macro
// handlers: parsed invocations split into clauses, the output sink handlers
// write to, the structured error signal they return, and the dispatch
// registry built at start-up.
package macro

import (
	"fmt"
	"log/slog"
	"strings"

	"go.starlark.net/starlark"
)

// Position tracks source location for error reporting.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File != "" {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Args holds the arguments of an invocation or clause.
type Args struct {
	Values []starlark.Value // evaluated argument values (empty when skipped)
	Raw    string           // argument text as written
}

// Len returns the number of evaluated values.
func (a Args) Len() int {
	return len(a.Values)
}

// Full returns the raw argument text trimmed of surrounding whitespace.
func (a Args) Full() string {
	return strings.TrimSpace(a.Raw)
}

// Clause is one named sub-block of a container invocation.
type Clause struct {
	Name      string // the invocation's own name for the primary clause
	Args      Args
	Contents  string   // body text, trimmed
	Raw       string   // body text exactly as written
	Marker    string   // raw markup that opened the clause ("" for the primary clause)
	MarkerPos Position // position of Marker, or of the invocation for the primary clause
	Pos       Position // position of the first byte of Contents
}

// Clauses is the ordered clause list of a container invocation.
// Index 0 is always the primary clause.
type Clauses []Clause

// Serialize reassembles the body text the clauses were split from.
func (cs Clauses) Serialize() string {
	var b strings.Builder
	for _, c := range cs {
		b.WriteString(c.Marker)
		b.WriteString(c.Raw)
	}
	return b.String()
}

// Evaluator runs embedded script against the shared narrative state.
type Evaluator interface {
	// EvalExpr evaluates an expression and returns its value.
	EvalExpr(expr, filename string, line int) (starlark.Value, error)
	// ExecStmt executes statements for their side effects.
	ExecStmt(stmt, filename string, line int) error
	// EvalArgs splits and evaluates macro argument text.
	EvalArgs(raw, filename string, line int) ([]starlark.Value, error)
}

// Renderer expands markup into an output sink. Failed nested invocations
// become error markers in out; the returned error is reserved for failures
// that must stop the caller, such as an exhausted expansion budget.
type Renderer interface {
	Render(src string, pos Position, out *Output) error
}

// PassageSource looks up passage text by name.
type PassageSource interface {
	Passage(name string) (string, bool)
}

// Env carries the collaborators a handler may use.
type Env struct {
	Eval     Evaluator
	Renderer Renderer
	Passages PassageSource // may be nil
	Logger   *slog.Logger
}

// Invocation is one parsed macro call.
type Invocation struct {
	Name    string
	Args    Args
	Clauses Clauses // empty for leaf macros
	Source  string  // raw markup of the whole invocation
	Pos     Position
	Env     *Env
}

// Error creates a structural error attributed to the invocation.
func (inv *Invocation) Error(format string, args ...any) *Error {
	return &Error{
		Kind:    KindStructural,
		Macro:   inv.Name,
		Message: fmt.Sprintf(format, args...),
		Source:  inv.Source,
		Pos:     inv.Pos,
	}
}

// EvalError creates an evaluation error attributed to the invocation.
func (inv *Invocation) EvalError(cause error, format string, args ...any) *Error {
	e := inv.Error(format, args...)
	e.Kind = KindEvaluation
	e.Cause = cause
	return e
}

// Render renders clause contents into out through the renderer.
func (inv *Invocation) Render(c Clause, out *Output) error {
	return inv.Env.Renderer.Render(c.Contents, c.Pos, out)
}

// Primary returns the primary clause, or a zero clause for leaf macros.
func (inv *Invocation) Primary() Clause {
	if len(inv.Clauses) == 0 {
		return Clause{Name: inv.Name, Args: inv.Args, Pos: inv.Pos}
	}
	return inv.Clauses[0]
}

// Logger returns the environment logger or a discard logger.
func (inv *Invocation) Logger() *slog.Logger {
	if inv.Env != nil && inv.Env.Logger != nil {
		return inv.Env.Logger
	}
	return slog.New(slog.DiscardHandler)
}
