// Package markup turns story markup into output. It recognises plain text
// and <<macro>> invocations, splits container bodies into clauses and
// dispatches each invocation to its registered handler.
package markup

import "github.com/leapstack-labs/leapstory/internal/macro"

// Position tracks source location for error reporting.
type Position = macro.Position

// Node is the interface for all markup AST nodes.
type Node interface {
	Pos() Position
	node() // marker method to restrict implementation
}

// nodeBase provides common Position handling for all nodes.
type nodeBase struct {
	pos Position
}

func (n *nodeBase) Pos() Position { return n.pos }
func (n *nodeBase) node()         {}

// TextNode represents literal story text.
type TextNode struct {
	nodeBase
	Text string
}

// MacroNode represents one macro invocation. Clauses is empty for leaf
// macros and for names with no registered macro.
type MacroNode struct {
	nodeBase
	Name    string
	Args    string        // raw argument text of the opening tag
	Clauses macro.Clauses // container body split into clauses
	Source  string        // raw markup of the whole invocation
}

// BadNode marks markup that could not be parsed into an invocation.
type BadNode struct {
	nodeBase
	Err *macro.Error
}

// Document represents parsed markup.
type Document struct {
	Nodes []Node
	File  string
}
