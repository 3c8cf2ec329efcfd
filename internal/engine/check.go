package engine

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapstory/internal/dag"
	"github.com/leapstack-labs/leapstory/internal/macro"
	"github.com/leapstack-labs/leapstory/internal/markup"
	"go.starlark.net/syntax"
)

// includeMacro is the macro whose literal arguments form include edges.
const includeMacro = "include"

// Issue is a problem found in a passage without rendering it.
type Issue struct {
	Passage string
	Err     *macro.Error
}

// CheckReport is the result of a static story check.
type CheckReport struct {
	Passages int
	Includes int
	Issues   []Issue
	Graph    *dag.Graph
}

// Check parses every passage and reports malformed markup, unknown macros,
// includes of missing passages and include cycles. Nothing is evaluated.
func (e *Engine) Check() *CheckReport {
	g := dag.NewGraph()
	names := e.story.Names()
	for _, name := range names {
		g.AddPassage(name)
	}

	c := &checker{reg: e.macros, graph: g}
	for _, name := range names {
		p := e.story.Get(name)
		c.walk(name, p.Text, markup.Position{File: name, Line: 1, Column: 1})
	}

	if cycle := g.FindCycle(); cycle != nil {
		err := macro.Errorf(includeMacro, "include cycle: %s", strings.Join(cycle, " -> "))
		err.Pos = markup.Position{File: cycle[0], Line: 1, Column: 1}
		c.issues = append(c.issues, Issue{Passage: cycle[0], Err: err})
	}

	e.logger.Debug("story checked", "passages", len(names), "issues", len(c.issues))
	return &CheckReport{
		Passages: g.PassageCount(),
		Includes: g.IncludeCount(),
		Issues:   c.issues,
		Graph:    g,
	}
}

type checker struct {
	reg    *macro.Registry
	graph  *dag.Graph
	issues []Issue
}

func (c *checker) add(passage string, err *macro.Error) {
	c.issues = append(c.issues, Issue{Passage: passage, Err: err})
}

func (c *checker) walk(passage, src string, pos markup.Position) {
	doc := markup.Parse(src, pos, c.reg)

	for _, n := range doc.Nodes {
		switch node := n.(type) {
		case *markup.BadNode:
			c.add(passage, node.Err)
		case *markup.MacroNode:
			if !c.reg.Has(node.Name) {
				c.add(passage, &macro.Error{
					Kind:    macro.KindUnknown,
					Message: fmt.Sprintf("macro <<%s>> does not exist", node.Name),
					Source:  node.Source,
					Pos:     node.Pos(),
				})
				continue
			}
			if node.Name == includeMacro {
				c.include(passage, node)
			}
			for _, clause := range node.Clauses {
				c.walk(passage, clause.Contents, clause.Pos)
			}
		}
	}
}

// include records an edge for a literal passage name. Computed names are
// only known at render time and are skipped.
func (c *checker) include(passage string, node *markup.MacroNode) {
	target, ok := literalString(node.Args)
	if !ok {
		return
	}
	if !c.graph.Has(target) {
		err := macro.Errorf(includeMacro, "passage %q does not exist", target)
		err.Source = node.Source
		err.Pos = node.Pos()
		c.add(passage, err)
		return
	}
	_ = c.graph.AddInclude(passage, target)
}

func literalString(args string) (string, bool) {
	expr, err := syntax.ParseExpr("include", strings.TrimSpace(args), 0)
	if err != nil {
		return "", false
	}
	lit, ok := expr.(*syntax.Literal)
	if !ok || lit.Token != syntax.STRING {
		return "", false
	}
	s, ok := lit.Value.(string)
	return s, ok
}
